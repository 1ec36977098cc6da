package service

import (
	"context"

	"github.com/arenalab/orchestrator/internal/domain"
)

const version = "0.1.0"

// Probe reports backend reachability and the strategy a run submitted right
// now would be served with.
func (s *Service) Probe(ctx context.Context) domain.HealthResponse {
	p := s.selector.Probe(ctx)
	return domain.HealthResponse{
		Status:                      "healthy",
		ModelBackendReachable:       p.ModelReachable,
		EnvironmentBackendReachable: p.EnvReachable,
		ActiveStrategy:              p.Active,
		Version:                     version,
	}
}

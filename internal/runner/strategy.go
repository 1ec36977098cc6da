package runner

import (
	"context"
	"time"

	"github.com/arenalab/orchestrator/internal/domain"
)

// HealthChecker reports backend reachability. Both the model gateway client
// and the arena provisioner satisfy it.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// Probe is the result of one health probe.
type Probe struct {
	ModelReachable bool
	EnvReachable   bool
	Active         domain.StrategyKind
}

// Selector chooses the execution strategy for each incoming run. The choice
// is made fresh per request so a degraded backend falls back to mock without
// a restart.
type Selector struct {
	preferReal   bool
	model        HealthChecker
	env          HealthChecker
	probeTimeout time.Duration
}

// NewSelector creates a strategy selector.
func NewSelector(preferReal bool, model, env HealthChecker) *Selector {
	return &Selector{
		preferReal:   preferReal,
		model:        model,
		env:          env,
		probeTimeout: 5 * time.Second,
	}
}

// Probe checks both backends and reports the strategy a run submitted now
// would use. Probe failures read as unhealthy, never as an error.
func (s *Selector) Probe(ctx context.Context) Probe {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	p := Probe{
		Active:         domain.StrategyMock,
		ModelReachable: s.model.Healthy(probeCtx),
		EnvReachable:   s.env.Healthy(probeCtx),
	}
	if s.preferReal && p.ModelReachable && p.EnvReachable {
		p.Active = domain.StrategyReal
	}
	return p
}

// Select returns the strategy for one run request. When the real backend is
// not preferred the probe is skipped so submission stays fast.
func (s *Selector) Select(ctx context.Context) domain.StrategyKind {
	if !s.preferReal {
		return domain.StrategyMock
	}
	return s.Probe(ctx).Active
}

// Package service wires the orchestrator components and exposes the run
// lifecycle operations consumed by the HTTP transport.
package service

import (
	"context"
	"sync"

	"github.com/arenalab/orchestrator/internal/adapter/arena"
	"github.com/arenalab/orchestrator/internal/adapter/llm"
	"github.com/arenalab/orchestrator/internal/adapter/progress"
	"github.com/arenalab/orchestrator/internal/config"
	"github.com/arenalab/orchestrator/internal/runner"
	"github.com/arenalab/orchestrator/internal/store"
	"github.com/arenalab/orchestrator/policy"
)

// Service owns the run registry and the shared collaborators. The arena
// client and model factory are stateless and shared across concurrent runs;
// everything per-run lives inside the runner instance.
type Service struct {
	store       store.Store
	arenaClient *arena.Client
	llmFactory  *llm.Factory
	guard       *policy.Engine
	progress    *progress.Client
	selector    *runner.Selector
	config      *config.Config

	// slots bounds concurrent run execution.
	slots chan struct{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New creates the service.
func New(st store.Store, arenaClient *arena.Client, llmFactory *llm.Factory, guard *policy.Engine, prog *progress.Client, cfg *config.Config) *Service {
	if prog == nil {
		prog = progress.NewClient("")
	}
	workers := cfg.MaxConcurrentRuns
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		store:       st,
		arenaClient: arenaClient,
		llmFactory:  llmFactory,
		guard:       guard,
		progress:    prog,
		selector:    runner.NewSelector(cfg.UseRealArena, llmFactory.GatewayClient(), arenaClient),
		config:      cfg,
		slots:       make(chan struct{}, workers),
		cancels:     make(map[string]context.CancelFunc),
	}
}

func (s *Service) registerCancel(runID string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels[runID] = cancel
}

func (s *Service) unregisterCancel(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancels, runID)
}

func (s *Service) lookupCancel(runID string) (context.CancelFunc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.cancels[runID]
	return cancel, ok
}

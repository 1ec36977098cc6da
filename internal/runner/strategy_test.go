package runner

import (
	"context"
	"testing"

	"github.com/arenalab/orchestrator/internal/domain"
)

type stubHealth struct {
	healthy bool
	probes  int
}

func (s *stubHealth) Healthy(ctx context.Context) bool {
	s.probes++
	return s.healthy
}

func TestSelectRealWhenBothHealthy(t *testing.T) {
	sel := NewSelector(true, &stubHealth{healthy: true}, &stubHealth{healthy: true})

	if got := sel.Select(context.Background()); got != domain.StrategyReal {
		t.Fatalf("expected real, got %s", got)
	}
}

func TestSelectFallsBackWhenModelUnhealthy(t *testing.T) {
	sel := NewSelector(true, &stubHealth{healthy: false}, &stubHealth{healthy: true})

	if got := sel.Select(context.Background()); got != domain.StrategyMock {
		t.Fatalf("expected mock, got %s", got)
	}
}

func TestSelectFallsBackWhenEnvUnhealthy(t *testing.T) {
	sel := NewSelector(true, &stubHealth{healthy: true}, &stubHealth{healthy: false})

	if got := sel.Select(context.Background()); got != domain.StrategyMock {
		t.Fatalf("expected mock, got %s", got)
	}
}

func TestSelectSkipsProbeWhenMockConfigured(t *testing.T) {
	model := &stubHealth{healthy: true}
	env := &stubHealth{healthy: true}
	sel := NewSelector(false, model, env)

	if got := sel.Select(context.Background()); got != domain.StrategyMock {
		t.Fatalf("expected mock, got %s", got)
	}
	if model.probes != 0 || env.probes != 0 {
		t.Fatalf("submission probe should be skipped, got %d/%d probes", model.probes, env.probes)
	}
}

func TestProbeReportsReachabilityRegardlessOfPreference(t *testing.T) {
	model := &stubHealth{healthy: true}
	env := &stubHealth{healthy: false}
	sel := NewSelector(false, model, env)

	p := sel.Probe(context.Background())

	if !p.ModelReachable {
		t.Fatalf("expected model reachable")
	}
	if p.EnvReachable {
		t.Fatalf("expected env unreachable")
	}
	if p.Active != domain.StrategyMock {
		t.Fatalf("expected mock active, got %s", p.Active)
	}
	if model.probes != 1 || env.probes != 1 {
		t.Fatalf("expected one probe each, got %d/%d", model.probes, env.probes)
	}
}

func TestProbeFreshPerCall(t *testing.T) {
	model := &stubHealth{healthy: false}
	env := &stubHealth{healthy: true}
	sel := NewSelector(true, model, env)

	if got := sel.Select(context.Background()); got != domain.StrategyMock {
		t.Fatalf("expected mock while model is down, got %s", got)
	}

	model.healthy = true
	if got := sel.Select(context.Background()); got != domain.StrategyReal {
		t.Fatalf("expected real after recovery, got %s", got)
	}
}

package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/arenalab/orchestrator/internal/adapter/arena"
	"github.com/arenalab/orchestrator/internal/adapter/llm"
	"github.com/arenalab/orchestrator/internal/config"
	"github.com/arenalab/orchestrator/internal/domain"
	"github.com/arenalab/orchestrator/policy"
	"github.com/arenalab/orchestrator/tests/helpers"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	cfg := &config.Config{
		UseRealArena:      false,
		ProvisionTimeout:  time.Second,
		StepCallTimeout:   time.Second,
		ModelTimeout:      time.Second,
		DefaultMaxSteps:   10,
		DefaultRunBudget:  10 * time.Second,
		MaxConcurrentRuns: 2,
	}

	guard, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	st := helpers.NewTestSQLiteStore(t)
	arenaClient := arena.NewClient("http://127.0.0.1:1", time.Second)
	llmFactory := llm.NewFactory("http://127.0.0.1:1", "", time.Second)

	return New(st, arenaClient, llmFactory, guard, nil, cfg)
}

func waitTerminal(t *testing.T, svc *Service, runID string) *domain.RunStatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := svc.GetRunStatus(context.Background(), runID)
		if err != nil {
			t.Fatalf("GetRunStatus: %v", err)
		}
		if resp != nil && resp.Status.IsTerminal() {
			return resp
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("run %s never reached a terminal status", runID)
	return nil
}

func easyRequest() domain.StartRunRequest {
	return domain.StartRunRequest{
		AgentID: "agent-1",
		Agent:   domain.AgentConfig{Provider: "mock", Model: "mock-model"},
		Task: domain.TaskSpec{
			TaskID:          "task-1",
			Title:           "Book a flight",
			Description:     "Book flight UA-42.",
			Difficulty:      domain.DifficultyEasy,
			EnvironmentType: "web_browsing",
			SuccessCriteria: domain.SuccessCriteria{ExpectedResult: "booked flight UA-42"},
			MaxSteps:        10,
		},
	}
}

func TestStartRunValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*domain.StartRunRequest)
	}{
		{"missing agent_id", func(r *domain.StartRunRequest) { r.AgentID = "" }},
		{"missing task_id", func(r *domain.StartRunRequest) { r.Task.TaskID = "" }},
		{"missing environment_type", func(r *domain.StartRunRequest) { r.Task.EnvironmentType = "" }},
		{"unsupported environment", func(r *domain.StartRunRequest) { r.Task.EnvironmentType = "minecraft" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := easyRequest()
			tc.mutate(&req)
			if _, err := svc.StartRun(ctx, req); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestMockRunCompletesEndToEnd(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.StartRun(context.Background(), easyRequest())
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if !strings.HasPrefix(resp.RunID, "run_") {
		t.Fatalf("unexpected run id: %q", resp.RunID)
	}
	if resp.Status != domain.RunStatusPending {
		t.Fatalf("expected PENDING, got %s", resp.Status)
	}
	if resp.Strategy != domain.StrategyMock {
		t.Fatalf("expected mock strategy, got %s", resp.Strategy)
	}

	status := waitTerminal(t, svc, resp.RunID)

	if status.Status != domain.RunStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", status.Status)
	}
	if status.Progress != 1 {
		t.Fatalf("expected progress 1 at terminal, got %v", status.Progress)
	}
	if status.Outcome == nil {
		t.Fatalf("expected outcome on terminal status")
	}
	if !status.Outcome.Matched {
		t.Fatalf("expected matched=true")
	}
	if status.Outcome.Score.StepsTaken != 3 {
		t.Fatalf("expected 3 steps, got %d", status.Outcome.Score.StepsTaken)
	}
	if status.Outcome.Strategy != domain.StrategyMock {
		t.Fatalf("expected mock outcome strategy, got %s", status.Outcome.Strategy)
	}
	if len(status.StepLog) != 3 {
		t.Fatalf("expected 3 persisted steps, got %d", len(status.StepLog))
	}
	for i, step := range status.StepLog {
		if step.Index != i {
			t.Fatalf("persisted step %d has index %d", i, step.Index)
		}
	}
}

func TestHardMockRunMissesCriteria(t *testing.T) {
	svc := newTestService(t)

	req := easyRequest()
	req.Task.Difficulty = domain.DifficultyHard
	req.Task.SuccessCriteria = domain.SuccessCriteria{ExpectedResult: "exact booking code XYZ-99"}

	resp, err := svc.StartRun(context.Background(), req)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	status := waitTerminal(t, svc, resp.RunID)

	if status.Outcome == nil {
		t.Fatalf("expected outcome")
	}
	if status.Outcome.Matched {
		t.Fatalf("hard mock run should miss its criteria")
	}
}

func TestGetRunStatusUnknownRun(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.GetRunStatus(context.Background(), "run_nope")
	if err != nil {
		t.Fatalf("GetRunStatus: %v", err)
	}
	if resp != nil {
		t.Fatalf("expected nil for unknown run, got %+v", resp)
	}
}

func TestCancelUnknownRun(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.CancelRun(context.Background(), "run_nope")
	if err != nil {
		t.Fatalf("CancelRun: %v", err)
	}
	if resp != nil {
		t.Fatalf("expected nil for unknown run, got %+v", resp)
	}
}

func TestCancelTerminalRunIsNoOp(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.StartRun(context.Background(), easyRequest())
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	waitTerminal(t, svc, resp.RunID)

	ack, err := svc.CancelRun(context.Background(), resp.RunID)
	if err != nil {
		t.Fatalf("CancelRun: %v", err)
	}
	if ack.Cancelled {
		t.Fatalf("cancelling a terminal run must be a no-op")
	}
	if ack.Status != domain.RunStatusCompleted {
		t.Fatalf("expected COMPLETED in ack, got %s", ack.Status)
	}
}

func TestCancelOrphanedActiveRun(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// An active run with no owning goroutine, as after a restart.
	run := &domain.Run{
		RunID:     "run_orphan",
		AgentID:   "agent-1",
		TaskID:    "task-1",
		Strategy:  domain.StrategyMock,
		Status:    domain.RunStatusRunning,
		MaxSteps:  10,
		StartedAt: time.Now(),
	}
	if err := svc.store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	ack, err := svc.CancelRun(ctx, "run_orphan")
	if err != nil {
		t.Fatalf("CancelRun: %v", err)
	}
	if !ack.Cancelled {
		t.Fatalf("expected cancellation")
	}
	if ack.Status != domain.RunStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", ack.Status)
	}

	got, err := svc.GetRunStatus(ctx, "run_orphan")
	if err != nil {
		t.Fatalf("GetRunStatus: %v", err)
	}
	if got.Status != domain.RunStatusCancelled {
		t.Fatalf("expected CANCELLED persisted, got %s", got.Status)
	}
}

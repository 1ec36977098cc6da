package store

import (
	"context"
	"testing"
	"time"

	"github.com/arenalab/orchestrator/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestRun(runID string) *domain.Run {
	return &domain.Run{
		RunID:     runID,
		AgentID:   "agent-1",
		TaskID:    "task-1",
		Strategy:  domain.StrategyMock,
		Status:    domain.RunStatusPending,
		MaxSteps:  10,
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRun(ctx, newTestRun("run_1")); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := s.GetRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got == nil {
		t.Fatalf("expected run, got nil")
	}
	if got.AgentID != "agent-1" || got.TaskID != "task-1" {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.Status != domain.RunStatusPending {
		t.Fatalf("expected PENDING, got %s", got.Status)
	}
	if got.MaxSteps != 10 {
		t.Fatalf("expected max steps 10, got %d", got.MaxSteps)
	}
}

func TestGetRunMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetRun(context.Background(), "run_nope")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing run, got %+v", got)
	}
}

func TestUpdateRunStatusAndProgress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRun(ctx, newTestRun("run_1")); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := s.UpdateRunStatus(ctx, "run_1", domain.RunStatusRunning); err != nil {
		t.Fatalf("UpdateRunStatus: %v", err)
	}
	if err := s.UpdateRunProgress(ctx, "run_1", "click #submit"); err != nil {
		t.Fatalf("UpdateRunProgress: %v", err)
	}

	got, err := s.GetRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != domain.RunStatusRunning {
		t.Fatalf("expected RUNNING, got %s", got.Status)
	}
	if got.LastAction != "click #submit" {
		t.Fatalf("expected last action, got %q", got.LastAction)
	}
}

func TestAppendAndGetStepsInOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRun(ctx, newTestRun("run_1")); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	for i := 0; i < 3; i++ {
		step := &domain.StepRecord{
			Index:       i,
			RunID:       "run_1",
			Observation: "page",
			Action:      domain.Action{Type: domain.ActionTypeClick, Selector: "#a"},
			Outcome:     domain.StepOutcomeApplied,
			Timestamp:   time.Now().UTC(),
		}
		if err := s.AppendStep(ctx, step); err != nil {
			t.Fatalf("AppendStep %d: %v", i, err)
		}
	}

	steps, err := s.GetSteps(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetSteps: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	for i, step := range steps {
		if step.Index != i {
			t.Fatalf("step %d out of order: index %d", i, step.Index)
		}
		if step.Action.Type != domain.ActionTypeClick {
			t.Fatalf("action lost in round trip: %+v", step.Action)
		}
	}
}

func TestAppendStepDuplicateIndexRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRun(ctx, newTestRun("run_1")); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	step := &domain.StepRecord{
		Index:     0,
		RunID:     "run_1",
		Action:    domain.Action{Type: domain.ActionTypeWait},
		Outcome:   domain.StepOutcomeApplied,
		Timestamp: time.Now().UTC(),
	}
	if err := s.AppendStep(ctx, step); err != nil {
		t.Fatalf("AppendStep: %v", err)
	}
	if err := s.AppendStep(ctx, step); err == nil {
		t.Fatalf("expected duplicate index to be rejected")
	}
}

func TestSaveAndGetOutcome(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRun(ctx, newTestRun("run_1")); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := s.AppendStep(ctx, &domain.StepRecord{
		Index:     0,
		RunID:     "run_1",
		Action:    domain.Action{Type: domain.ActionTypeFinish, Result: "done"},
		Outcome:   domain.StepOutcomeFinish,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("AppendStep: %v", err)
	}

	started := time.Now().UTC().Truncate(time.Second)
	outcome := &domain.RunOutcome{
		RunID:       "run_1",
		ExecutionID: "exec_abc",
		Strategy:    domain.StrategyMock,
		Status:      domain.RunStatusCompleted,
		Matched:     true,
		Score: domain.ScoreInputs{
			Accuracy:   1.0,
			StepsTaken: 1,
			TimeTaken:  1500 * time.Millisecond,
		},
		StartedAt: started,
		EndedAt:   started.Add(2 * time.Second),
	}
	if err := s.SaveOutcome(ctx, outcome); err != nil {
		t.Fatalf("SaveOutcome: %v", err)
	}

	got, err := s.GetOutcome(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetOutcome: %v", err)
	}
	if got == nil {
		t.Fatalf("expected outcome, got nil")
	}
	if !got.Matched || got.Status != domain.RunStatusCompleted {
		t.Fatalf("unexpected outcome: %+v", got)
	}
	if got.Score.Accuracy != 1.0 || got.Score.StepsTaken != 1 {
		t.Fatalf("unexpected score: %+v", got.Score)
	}
	if got.Score.TimeTaken != 1500*time.Millisecond {
		t.Fatalf("unexpected time taken: %v", got.Score.TimeTaken)
	}
	if got.Error != nil {
		t.Fatalf("expected nil error info, got %+v", got.Error)
	}
	if len(got.StepLog) != 1 || got.StepLog[0].Action.Result != "done" {
		t.Fatalf("unexpected step log: %+v", got.StepLog)
	}

	// SaveOutcome also marks the run terminal.
	run, err := s.GetRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("expected run marked COMPLETED, got %s", run.Status)
	}
	if run.EndedAt == nil {
		t.Fatalf("expected ended_at set")
	}
}

func TestOutcomeErrorInfoRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRun(ctx, newTestRun("run_1")); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	outcome := &domain.RunOutcome{
		RunID:       "run_1",
		ExecutionID: "exec_def",
		Strategy:    domain.StrategyReal,
		Status:      domain.RunStatusFailed,
		Error: &domain.ErrorInfo{
			Kind:    domain.ErrorKindAuth,
			Message: "model provider rejected credentials",
		},
		StartedAt: now,
		EndedAt:   now,
	}
	if err := s.SaveOutcome(ctx, outcome); err != nil {
		t.Fatalf("SaveOutcome: %v", err)
	}

	got, err := s.GetOutcome(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetOutcome: %v", err)
	}
	if got.Error == nil || got.Error.Kind != domain.ErrorKindAuth {
		t.Fatalf("expected auth error info, got %+v", got.Error)
	}
	if got.StepLog == nil || len(got.StepLog) != 0 {
		t.Fatalf("expected empty non-nil step log, got %#v", got.StepLog)
	}
}

func TestGetOutcomeMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetOutcome(context.Background(), "run_nope")
	if err != nil {
		t.Fatalf("GetOutcome: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing outcome, got %+v", got)
	}
}

package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arenalab/orchestrator/internal/adapter/arena"
	"github.com/arenalab/orchestrator/internal/adapter/llm"
	"github.com/arenalab/orchestrator/internal/agent"
	"github.com/arenalab/orchestrator/internal/domain"
	"github.com/arenalab/orchestrator/internal/runner"
)

// StartRun accepts a run request, persists the run record, and schedules the
// execution on a bounded worker pool. It returns as soon as the run is
// registered; callers poll GetRunStatus for progress.
func (s *Service) StartRun(ctx context.Context, req domain.StartRunRequest) (*domain.StartRunResponse, error) {
	if req.AgentID == "" {
		return nil, fmt.Errorf("agent_id is required")
	}
	if req.Task.TaskID == "" {
		return nil, fmt.Errorf("task.task_id is required")
	}
	if req.Task.EnvironmentType == "" {
		return nil, fmt.Errorf("task.environment_type is required")
	}
	if !arena.SupportedEnvironment(req.Task.EnvironmentType) {
		return nil, fmt.Errorf("unsupported environment type %q", req.Task.EnvironmentType)
	}

	task := req.Task
	if task.MaxSteps <= 0 {
		task.MaxSteps = s.config.DefaultMaxSteps
	}
	if task.MaxDuration <= 0 {
		task.MaxDuration = s.config.DefaultRunBudget
	}

	// Strategy is chosen fresh per request so a degraded backend falls back
	// to mock without a restart.
	strategy := s.selector.Select(ctx)

	runID := "run_" + uuid.New().String()[:8]
	now := time.Now()
	run := &domain.Run{
		RunID:     runID,
		AgentID:   req.AgentID,
		TaskID:    task.TaskID,
		Strategy:  strategy,
		Status:    domain.RunStatusPending,
		MaxSteps:  task.MaxSteps,
		StartedAt: now,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	runReq := domain.RunRequest{
		RunID:   runID,
		AgentID: req.AgentID,
		Agent:   req.Agent,
		Task:    task,
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.registerCancel(runID, cancel)

	go s.executeRun(runCtx, runReq, strategy)

	return &domain.StartRunResponse{
		RunID:    runID,
		Status:   domain.RunStatusPending,
		Strategy: strategy,
	}, nil
}

// executeRun is the supervised per-run goroutine. It acquires a worker slot,
// drives the runner, and hands exactly one outcome to the store.
func (s *Service) executeRun(ctx context.Context, req domain.RunRequest, strategy domain.StrategyKind) {
	defer s.unregisterCancel(req.RunID)

	// Wait for a worker slot; cancellation while queued still yields an
	// outcome through the runner's normal path.
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
	}

	if err := s.store.UpdateRunStatus(context.Background(), req.RunID, domain.RunStatusRunning); err != nil {
		log.Printf("ERROR: run %s: failed to update status: %v", req.RunID, err)
	}

	r := s.buildRunner(strategy, req)
	r.OnStep = func(rec domain.StepRecord) {
		stepCtx, stepCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stepCancel()
		if err := s.store.AppendStep(stepCtx, &rec); err != nil {
			log.Printf("ERROR: run %s: failed to append step %d: %v", req.RunID, rec.Index, err)
		}
		if err := s.store.UpdateRunProgress(stepCtx, req.RunID, rec.Action.Describe()); err != nil {
			log.Printf("WARN: run %s: failed to update progress: %v", req.RunID, err)
		}
	}

	outcome := r.Execute(ctx, req)

	// Terminal handoff to the persistence collaborator.
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer saveCancel()
	if err := s.store.SaveOutcome(saveCtx, outcome); err != nil {
		log.Printf("ERROR: run %s: failed to save outcome: %v", req.RunID, err)
	}

	log.Printf("INFO: run %s finished: status=%s matched=%v steps=%d", req.RunID, outcome.Status, outcome.Matched, outcome.Score.StepsTaken)
}

// buildRunner assembles the strategy's collaborators. Both strategies run the
// same state machine; they differ only in the adapters behind it.
func (s *Service) buildRunner(strategy domain.StrategyKind, req domain.RunRequest) *runner.Runner {
	cfg := runner.Config{
		ProvisionTimeout: s.config.ProvisionTimeout,
		StepCallTimeout:  s.config.StepCallTimeout,
		ModelTimeout:     s.config.ModelTimeout,
	}

	if strategy == domain.StrategyReal {
		client := s.llmFactory.ClientFor(req.Agent.Provider, req.Agent.APIKey)
		brain := agent.NewBrain(client, req.Agent, req.Task)
		return runner.New(domain.StrategyReal, s.arenaClient, s.arenaClient, brain, s.guard, s.progress, cfg)
	}

	mockArena, mockModel := s.mockCollaborators(req.Task)
	brain := agent.NewBrain(mockModel, req.Agent, req.Task)
	return runner.New(domain.StrategyMock, mockArena, mockArena, brain, s.guard, s.progress, cfg)
}

// mockCollaborators shapes the deterministic mock run by task difficulty:
// easy and medium tasks satisfy their success criteria, hard tasks miss them.
func (s *Service) mockCollaborators(task domain.TaskSpec) (*arena.MockArena, *llm.MockClient) {
	mockArena := arena.NewMockArena()
	mockModel := llm.NewMockClient()

	if task.Difficulty != domain.DifficultyHard {
		if len(task.SuccessCriteria.RequiredContent) > 0 {
			mockArena.PageContent = "Mock page: " + strings.Join(task.SuccessCriteria.RequiredContent, " ")
		}
		if task.SuccessCriteria.ExpectedResult != "" {
			mockModel.Script = []string{
				`{"type":"click","selector":"#search"}`,
				`{"type":"click","selector":"#results"}`,
				fmt.Sprintf(`{"type":"finish","result":%q}`, task.SuccessCriteria.ExpectedResult),
			}
		}
	}

	return mockArena, mockModel
}

// GetRunStatus returns the poll-based view of a run: status, ordered partial
// step log, and the outcome once terminal.
func (s *Service) GetRunStatus(ctx context.Context, runID string) (*domain.RunStatusResponse, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, nil
	}

	steps, err := s.store.GetSteps(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}

	resp := &domain.RunStatusResponse{
		RunID:      run.RunID,
		Status:     run.Status,
		Strategy:   run.Strategy,
		LastAction: run.LastAction,
		StepLog:    steps,
		StartedAt:  run.StartedAt,
		EndedAt:    run.EndedAt,
	}
	if run.MaxSteps > 0 {
		resp.Progress = float64(len(steps)) / float64(run.MaxSteps)
		if resp.Progress > 1 {
			resp.Progress = 1
		}
	}
	if run.Status.IsTerminal() {
		resp.Progress = 1
		outcome, err := s.store.GetOutcome(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("failed to get outcome: %w", err)
		}
		resp.Outcome = outcome
	}
	return resp, nil
}

// CancelRun requests cancellation of an in-flight run. Cancelling a terminal
// run is a no-op acknowledgement.
func (s *Service) CancelRun(ctx context.Context, runID string) (*domain.CancelRunResponse, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, nil
	}

	if run.Status.IsTerminal() {
		return &domain.CancelRunResponse{RunID: runID, Status: run.Status, Cancelled: false}, nil
	}

	if cancel, ok := s.lookupCancel(runID); ok {
		cancel()
		return &domain.CancelRunResponse{RunID: runID, Status: run.Status, Cancelled: true}, nil
	}

	// No live goroutine owns the run (e.g. the process restarted with the
	// run still marked active); finalize it directly.
	if err := s.store.UpdateRunStatus(ctx, runID, domain.RunStatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to cancel run: %w", err)
	}
	return &domain.CancelRunResponse{RunID: runID, Status: domain.RunStatusCancelled, Cancelled: true}, nil
}

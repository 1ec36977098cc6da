package runner

import (
	"time"

	"github.com/arenalab/orchestrator/internal/domain"
)

// outcomeBuilder assembles the terminal RunOutcome. Exactly one of its
// terminal methods is called per run, at the single point the loop exits.
type outcomeBuilder struct {
	runID       string
	executionID string
	strategy    domain.StrategyKind
	started     time.Time
}

func newOutcomeBuilder(runID, executionID string, strategy domain.StrategyKind) *outcomeBuilder {
	return &outcomeBuilder{
		runID:       runID,
		executionID: executionID,
		strategy:    strategy,
		started:     time.Now(),
	}
}

func (b *outcomeBuilder) completed(matched bool, ratio float64, stepLog []domain.StepRecord) *domain.RunOutcome {
	accuracy := ratio
	if matched && accuracy == 0 {
		accuracy = 1.0
	}
	return b.build(domain.RunStatusCompleted, matched, accuracy, stepLog, nil)
}

func (b *outcomeBuilder) timedOut(stepLog []domain.StepRecord, ratio float64) *domain.RunOutcome {
	return b.build(domain.RunStatusTimedOut, false, ratio, stepLog, &domain.ErrorInfo{
		Kind:    domain.ErrorKindBudgetExceeded,
		Message: "step budget exhausted without completion",
	})
}

func (b *outcomeBuilder) failed(kind domain.ErrorKind, message string, stepLog []domain.StepRecord, ratio float64) *domain.RunOutcome {
	return b.build(domain.RunStatusFailed, false, ratio, stepLog, &domain.ErrorInfo{
		Kind:    kind,
		Message: message,
	})
}

// interrupted builds the outcome for caller cancellation or an exhausted
// time budget.
func (b *outcomeBuilder) interrupted(kind domain.ErrorKind, stepLog []domain.StepRecord) *domain.RunOutcome {
	if kind == domain.ErrorKindBudgetExceeded {
		return b.build(domain.RunStatusTimedOut, false, 0, stepLog, &domain.ErrorInfo{
			Kind:    kind,
			Message: "time budget exhausted",
		})
	}
	return b.build(domain.RunStatusCancelled, false, 0, stepLog, &domain.ErrorInfo{
		Kind:    domain.ErrorKindCancelled,
		Message: "run cancelled by caller",
	})
}

func (b *outcomeBuilder) build(status domain.RunStatus, matched bool, accuracy float64, stepLog []domain.StepRecord, errInfo *domain.ErrorInfo) *domain.RunOutcome {
	ended := time.Now()
	if stepLog == nil {
		stepLog = []domain.StepRecord{}
	}
	return &domain.RunOutcome{
		RunID:       b.runID,
		ExecutionID: b.executionID,
		Strategy:    b.strategy,
		Status:      status,
		Matched:     matched,
		Score: domain.ScoreInputs{
			Accuracy:   accuracy,
			StepsTaken: len(stepLog),
			TimeTaken:  ended.Sub(b.started),
		},
		StepLog:   stepLog,
		Error:     errInfo,
		StartedAt: b.started,
		EndedAt:   ended,
	}
}

// Package domain defines the core domain models for the orchestrator.
package domain

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusTimedOut  RunStatus = "TIMED_OUT"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsTerminal reports whether the status is terminal.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusTimedOut, RunStatusCancelled:
		return true
	}
	return false
}

// Verdict is the completion evaluator's decision for a run in progress.
type Verdict string

const (
	VerdictContinue Verdict = "continue"
	VerdictSuccess  Verdict = "success"
	VerdictFailure  Verdict = "failure"
)

// ErrorKind classifies failures surfaced in a RunOutcome.
type ErrorKind string

const (
	ErrorKindProvision       ErrorKind = "provision_error"
	ErrorKindTransientIO     ErrorKind = "transient_io"
	ErrorKindAuth            ErrorKind = "auth_error"
	ErrorKindMalformedAction ErrorKind = "malformed_action"
	ErrorKindBudgetExceeded  ErrorKind = "budget_exceeded"
	ErrorKindCancelled       ErrorKind = "cancelled"
)

// ActionType represents the kind of action an agent can take in the arena.
type ActionType string

const (
	ActionTypeClick    ActionType = "click"
	ActionTypeType     ActionType = "type"
	ActionTypeNavigate ActionType = "navigate"
	ActionTypeSelect   ActionType = "select"
	ActionTypeWait     ActionType = "wait"
	ActionTypeFinish   ActionType = "finish"
)

// StepOutcome represents the result of applying one step's action.
type StepOutcome string

const (
	StepOutcomeApplied   StepOutcome = "applied"
	StepOutcomeBlocked   StepOutcome = "blocked"
	StepOutcomeMalformed StepOutcome = "malformed"
	StepOutcomeFailed    StepOutcome = "failed"
	StepOutcomeFinish    StepOutcome = "finish"
)

// StrategyKind identifies which execution strategy served a run.
type StrategyKind string

const (
	StrategyReal StrategyKind = "real"
	StrategyMock StrategyKind = "mock"
)

// TaskDifficulty is the declared difficulty of a benchmark task.
type TaskDifficulty string

const (
	DifficultyEasy   TaskDifficulty = "EASY"
	DifficultyMedium TaskDifficulty = "MEDIUM"
	DifficultyHard   TaskDifficulty = "HARD"
)

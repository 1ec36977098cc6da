package domain

import "time"

// AgentConfig holds the model configuration for the agent under evaluation.
// APIKey is a caller-supplied credential; it lives only for the duration of
// one run and must never be logged or persisted.
type AgentConfig struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	APIKey       string  `json:"api_key,omitempty"`
}

// SuccessCriteria declares how a task's completion is judged.
type SuccessCriteria struct {
	// RequiredContent are substrings expected in the final page content.
	RequiredContent []string `json:"required_content,omitempty"`
	// ExpectedActions is an ordered action-type sequence that must appear
	// as a subsequence of the executed steps.
	ExpectedActions []ActionType `json:"expected_actions,omitempty"`
	// ExpectedResult, when set, must match the agent's claimed finish result.
	ExpectedResult string `json:"expected_result,omitempty"`
}

// TaskSpec is the task definition for a run.
type TaskSpec struct {
	TaskID          string            `json:"task_id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Difficulty      TaskDifficulty    `json:"difficulty,omitempty"`
	EnvironmentType string            `json:"environment_type"`
	EnvironmentCfg  map[string]string `json:"environment_config,omitempty"`
	SuccessCriteria SuccessCriteria   `json:"success_criteria"`
	MaxSteps        int               `json:"max_steps"`
	MaxDuration     time.Duration     `json:"max_duration"`
}

// RunRequest is the immutable input for one run. Created by the caller,
// consumed read-only by the orchestrator.
type RunRequest struct {
	RunID   string      `json:"run_id"`
	AgentID string      `json:"agent_id"`
	Agent   AgentConfig `json:"agent"`
	Task    TaskSpec    `json:"task"`
}

// Run is the persisted record of a run's lifecycle.
type Run struct {
	RunID       string       `json:"run_id"`
	AgentID     string       `json:"agent_id"`
	TaskID      string       `json:"task_id"`
	Strategy    StrategyKind `json:"strategy"`
	Status      RunStatus    `json:"status"`
	MaxSteps    int          `json:"max_steps"`
	StartedAt   time.Time    `json:"started_at"`
	EndedAt     *time.Time   `json:"ended_at,omitempty"`
	LastAction  string       `json:"last_action,omitempty"`
	ErrorDetail string       `json:"error_detail,omitempty"`
}

// StepRecord is one entry of the append-only step log. Index starts at 0 and
// is strictly increasing within a run.
type StepRecord struct {
	Index       int         `json:"index"`
	RunID       string      `json:"run_id,omitempty"`
	Observation string      `json:"observation_summary"`
	Action      Action      `json:"action"`
	Outcome     StepOutcome `json:"outcome"`
	Detail      string      `json:"detail,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// ErrorInfo is the structured error carried by a failed RunOutcome.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// ScoreInputs are the derived metrics handed to the scoring collaborator.
type ScoreInputs struct {
	Accuracy   float64       `json:"accuracy"`
	StepsTaken int           `json:"steps_taken"`
	TimeTaken  time.Duration `json:"time_taken"`
}

// RunOutcome is the terminal record for a run. Built exactly once at the
// single point where the state machine exits; immutable afterward.
type RunOutcome struct {
	RunID       string       `json:"run_id"`
	ExecutionID string       `json:"execution_id"`
	Strategy    StrategyKind `json:"strategy"`
	Status      RunStatus    `json:"status"`
	Matched     bool         `json:"matched"`
	Score       ScoreInputs  `json:"score_inputs"`
	StepLog     []StepRecord `json:"step_log"`
	Error       *ErrorInfo   `json:"error,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	EndedAt     time.Time    `json:"ended_at"`
}

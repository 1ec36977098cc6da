package domain

import "time"

// StartRunRequest is the inbound request from the submission service.
type StartRunRequest struct {
	AgentID string      `json:"agent_id"`
	Agent   AgentConfig `json:"agent"`
	Task    TaskSpec    `json:"task"`
}

// StartRunResponse acknowledges an accepted run.
type StartRunResponse struct {
	RunID    string       `json:"run_id"`
	Status   RunStatus    `json:"status"`
	Strategy StrategyKind `json:"strategy"`
}

// RunStatusResponse is the poll-based progress view of a run.
type RunStatusResponse struct {
	RunID      string       `json:"run_id"`
	Status     RunStatus    `json:"status"`
	Strategy   StrategyKind `json:"strategy"`
	Progress   float64      `json:"progress"`
	LastAction string       `json:"last_action,omitempty"`
	StepLog    []StepRecord `json:"step_log,omitempty"`
	Outcome    *RunOutcome  `json:"outcome,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	EndedAt    *time.Time   `json:"ended_at,omitempty"`
}

// CancelRunResponse acknowledges a cancellation request.
type CancelRunResponse struct {
	RunID     string    `json:"run_id"`
	Status    RunStatus `json:"status"`
	Cancelled bool      `json:"cancelled"`
}

// HealthResponse reports backend reachability and the strategy that a run
// submitted right now would be served with.
type HealthResponse struct {
	Status                      string       `json:"status"`
	ModelBackendReachable       bool         `json:"model_backend_reachable"`
	EnvironmentBackendReachable bool         `json:"environment_backend_reachable"`
	ActiveStrategy              StrategyKind `json:"active_strategy"`
	Version                     string       `json:"version"`
}

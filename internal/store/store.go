// Package store defines the persistence interface and implementations for
// runs, step logs, and outcomes.
package store

import (
	"context"

	"github.com/arenalab/orchestrator/internal/domain"
)

// Store defines the interface for run persistence. Credentials never pass
// through it: RunRequest.Agent.APIKey stays with the in-flight run.
type Store interface {
	// Run operations
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error
	UpdateRunProgress(ctx context.Context, runID string, lastAction string) error

	// Step log operations. Steps are append-only and read back in index order.
	AppendStep(ctx context.Context, step *domain.StepRecord) error
	GetSteps(ctx context.Context, runID string) ([]domain.StepRecord, error)

	// Outcome operations. SaveOutcome is the terminal handoff: it stores the
	// outcome and marks the run terminal in one transaction.
	SaveOutcome(ctx context.Context, outcome *domain.RunOutcome) error
	GetOutcome(ctx context.Context, runID string) (*domain.RunOutcome, error)

	// Lifecycle
	Close() error
}

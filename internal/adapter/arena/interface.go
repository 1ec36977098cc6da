// Package arena provides the environment provisioner and the browser action
// interface against a provisioned benchmark environment.
package arena

import (
	"context"
	"errors"

	"github.com/arenalab/orchestrator/internal/domain"
)

// Call failure classes. Transient failures may be retried; a destroyed
// environment is unrecoverable and forces the run to fail.
var (
	ErrTransient = errors.New("arena call failed transiently")
	ErrDestroyed = errors.New("environment destroyed")

	// ErrUnsupportedEnvironment is returned for environment types not in
	// the catalogue.
	ErrUnsupportedEnvironment = errors.New("unsupported environment type")
)

// EnvironmentHandle is an opaque reference to a provisioned environment. It
// is exclusively owned by one run's orchestrator and must be released exactly
// once; Release is idempotent.
type EnvironmentHandle interface {
	// ID returns the environment's unique identifier.
	ID() string

	// Address returns the environment's endpoint address.
	Address() string

	// Release tears the environment down. Safe to call more than once.
	Release(ctx context.Context) error
}

// Provisioner allocates isolated environments for runs.
type Provisioner interface {
	// Provision creates an environment of the given type.
	Provision(ctx context.Context, environmentType string, config map[string]string) (EnvironmentHandle, error)

	// Healthy reports whether the provisioning backend is reachable.
	Healthy(ctx context.Context) bool
}

// ActionInterface exposes observe/act against a provisioned environment.
type ActionInterface interface {
	// Observe snapshots the current environment state.
	Observe(ctx context.Context, handle EnvironmentHandle) (*domain.Observation, error)

	// Act applies an action to the environment.
	Act(ctx context.Context, handle EnvironmentHandle, action domain.Action) (*domain.ActionResult, error)
}

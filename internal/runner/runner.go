// Package runner implements the run state machine: it provisions an
// environment, drives the observe-decide-act loop under step and time
// budgets, and always exits through a single outcome-building path.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/arenalab/orchestrator/internal/adapter/arena"
	"github.com/arenalab/orchestrator/internal/adapter/llm"
	"github.com/arenalab/orchestrator/internal/adapter/progress"
	"github.com/arenalab/orchestrator/internal/agent"
	"github.com/arenalab/orchestrator/internal/domain"
	"github.com/arenalab/orchestrator/internal/evaluator"
	"github.com/arenalab/orchestrator/policy"
)

const (
	// maxConsecutiveMalformed bounds retries of unusable model output before
	// the run fails.
	maxConsecutiveMalformed = 3

	// maxTransientRetries bounds observe/act retries per call site.
	maxTransientRetries = 2

	releaseTimeout = 10 * time.Second
)

// Config holds per-call budgets. The per-run budget comes from the task.
type Config struct {
	ProvisionTimeout time.Duration
	StepCallTimeout  time.Duration
	ModelTimeout     time.Duration
}

// Decider chooses the next action from an observation and the step history.
// *agent.Brain is the production implementation.
type Decider interface {
	Decide(ctx context.Context, obs *domain.Observation, history []domain.StepRecord) (domain.Action, error)
}

// ActionGuard vets a decided action before it is applied.
// *policy.Engine is the production implementation.
type ActionGuard interface {
	Evaluate(ctx context.Context, input policy.ActionInput) (string, string, error)
}

// Runner executes exactly one run and is then discarded. All per-run state
// lives on the instance; nothing is shared across runs except the (stateless)
// model client behind the Decider.
type Runner struct {
	strategy    domain.StrategyKind
	provisioner arena.Provisioner
	actions     arena.ActionInterface
	brain       Decider
	guard       ActionGuard
	progress    *progress.Client
	cfg         Config

	// OnStep, when set, is invoked synchronously after each step record is
	// appended, in step order.
	OnStep func(domain.StepRecord)
}

// New creates a runner for one run.
func New(strategy domain.StrategyKind, provisioner arena.Provisioner, actions arena.ActionInterface, brain Decider, guard ActionGuard, prog *progress.Client, cfg Config) *Runner {
	if prog == nil {
		prog = progress.NewClient("")
	}
	return &Runner{
		strategy:    strategy,
		provisioner: provisioner,
		actions:     actions,
		brain:       brain,
		guard:       guard,
		progress:    prog,
		cfg:         cfg,
	}
}

// Execute drives the run to a terminal outcome. It never returns nil and
// never panics outward: every failure mode is captured as a RunOutcome. The
// caller cancels ctx to request cancellation.
func (r *Runner) Execute(ctx context.Context, req domain.RunRequest) *domain.RunOutcome {
	b := newOutcomeBuilder(req.RunID, "exec_"+uuid.New().String()[:8], r.strategy)

	runCtx, cancel := context.WithTimeout(ctx, req.Task.MaxDuration)
	defer cancel()

	// Provisioning
	provCtx, provCancel := context.WithTimeout(runCtx, r.cfg.ProvisionTimeout)
	handle, err := r.provisioner.Provision(provCtx, req.Task.EnvironmentType, req.Task.EnvironmentCfg)
	provCancel()
	if err != nil {
		if kind, ok := interrupted(ctx, runCtx); ok {
			return b.interrupted(kind, nil)
		}
		return b.failed(domain.ErrorKindProvision, fmt.Sprintf("environment provisioning failed: %v", err), nil, 0)
	}

	// Released: teardown runs on every exit path. Failures are logged and
	// never override the decided outcome.
	defer func() {
		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer releaseCancel()
		if err := handle.Release(releaseCtx); err != nil {
			log.Printf("WARN: run %s: environment release failed: %v", req.RunID, err)
		}
	}()

	outcome := r.loop(ctx, runCtx, req, handle, b)
	r.pushTerminal(outcome)
	return outcome
}

// loop is the Running state. It exits with the terminal outcome.
func (r *Runner) loop(parent, runCtx context.Context, req domain.RunRequest, handle arena.EnvironmentHandle, b *outcomeBuilder) *domain.RunOutcome {
	var stepLog []domain.StepRecord
	var lastRatio float64
	consecutiveMalformed := 0

	for index := 0; ; {
		// Budget and cancellation checks between iterations.
		if kind, ok := interrupted(parent, runCtx); ok {
			return b.interrupted(kind, stepLog)
		}

		obs, err := r.observe(runCtx, handle)
		if err != nil {
			return r.classifyFatal(parent, runCtx, err, stepLog, lastRatio, b)
		}

		decideCtx, decideCancel := context.WithTimeout(runCtx, r.cfg.ModelTimeout)
		action, err := r.brain.Decide(decideCtx, obs, stepLog)
		decideCancel()

		if err != nil {
			if errors.Is(err, agent.ErrMalformedAction) {
				consecutiveMalformed++
				rec := r.appendStep(&stepLog, domain.StepRecord{
					Index:       index,
					RunID:       req.RunID,
					Observation: obs.Summary(),
					Action:      domain.Action{},
					Outcome:     domain.StepOutcomeMalformed,
					Detail:      err.Error(),
				})
				index++
				if consecutiveMalformed >= maxConsecutiveMalformed {
					return b.failed(domain.ErrorKindMalformedAction,
						fmt.Sprintf("%d consecutive malformed actions, last: %s", consecutiveMalformed, rec.Detail),
						stepLog, lastRatio)
				}
				if index >= req.Task.MaxSteps {
					return b.timedOut(stepLog, lastRatio)
				}
				continue
			}
			return r.classifyFatal(parent, runCtx, err, stepLog, lastRatio, b)
		}
		consecutiveMalformed = 0

		// Completing: the agent signalled finish. The finish is recorded as
		// a step, then the evaluator decides matched.
		if action.Type == domain.ActionTypeFinish {
			r.appendStep(&stepLog, domain.StepRecord{
				Index:       index,
				RunID:       req.RunID,
				Observation: obs.Summary(),
				Action:      action,
				Outcome:     domain.StepOutcomeFinish,
			})
			ev := evaluator.Evaluate(req.Task.SuccessCriteria, stepLog, obs)
			return b.completed(ev.Verdict == domain.VerdictSuccess, ev.MatchRatio, stepLog)
		}

		rec := domain.StepRecord{
			Index:       index,
			RunID:       req.RunID,
			Observation: obs.Summary(),
			Action:      action,
		}

		decision, reason := r.checkGuard(runCtx, req, action)
		if decision == "block" {
			rec.Outcome = domain.StepOutcomeBlocked
			rec.Detail = reason
		} else {
			result, err := r.act(runCtx, handle, action)
			if err != nil {
				return r.classifyFatal(parent, runCtx, err, stepLog, lastRatio, b)
			}
			if result.Success {
				rec.Outcome = domain.StepOutcomeApplied
			} else {
				rec.Outcome = domain.StepOutcomeFailed
			}
			rec.Detail = result.Detail
		}
		r.appendStep(&stepLog, rec)
		index++

		// The evaluator may declare success the agent never claimed. Checked
		// before the step budget so that success on the final allowed step
		// still completes the run.
		ev := evaluator.Evaluate(req.Task.SuccessCriteria, stepLog, obs)
		lastRatio = ev.MatchRatio
		if ev.Verdict == domain.VerdictSuccess {
			return b.completed(true, ev.MatchRatio, stepLog)
		}
		if ev.Verdict == domain.VerdictFailure {
			return b.completed(false, ev.MatchRatio, stepLog)
		}

		if index >= req.Task.MaxSteps {
			return b.timedOut(stepLog, lastRatio)
		}
	}
}

func (r *Runner) checkGuard(ctx context.Context, req domain.RunRequest, action domain.Action) (string, string) {
	if r.guard == nil {
		return "allow", ""
	}
	decision, reason, err := r.guard.Evaluate(ctx, policy.ActionInput{
		ActionType:      string(action.Type),
		Selector:        action.Selector,
		URL:             action.URL,
		EnvironmentType: req.Task.EnvironmentType,
		AgentID:         req.AgentID,
	})
	if err != nil {
		// Guardrail trouble must not kill the run; fail open and log.
		log.Printf("WARN: run %s: policy evaluation failed: %v", req.RunID, err)
		return "allow", ""
	}
	if reason == "" && decision == "block" {
		reason = "blocked by action policy"
	}
	return decision, reason
}

func (r *Runner) appendStep(stepLog *[]domain.StepRecord, rec domain.StepRecord) domain.StepRecord {
	rec.Timestamp = time.Now()
	*stepLog = append(*stepLog, rec)
	if r.OnStep != nil {
		r.OnStep(rec)
	}
	if err := r.progress.PushEvent(rec.RunID, map[string]interface{}{
		"type":   "step",
		"index":  rec.Index,
		"action": rec.Action.Describe(),
		"ts":     rec.Timestamp.UnixMilli(),
	}); err != nil {
		log.Printf("WARN: run %s: progress push failed: %v", rec.RunID, err)
	}
	return rec
}

func (r *Runner) pushTerminal(outcome *domain.RunOutcome) {
	if err := r.progress.PushEvent(outcome.RunID, map[string]interface{}{
		"type":   "terminal",
		"status": string(outcome.Status),
		"ts":     outcome.EndedAt.UnixMilli(),
	}); err != nil {
		log.Printf("WARN: run %s: progress push failed: %v", outcome.RunID, err)
	}
}

// observe calls the action interface with a per-call timeout and bounded
// transient retries.
func (r *Runner) observe(runCtx context.Context, handle arena.EnvironmentHandle) (*domain.Observation, error) {
	var obs *domain.Observation
	err := r.withRetries(runCtx, func(callCtx context.Context) error {
		var err error
		obs, err = r.actions.Observe(callCtx, handle)
		return err
	})
	return obs, err
}

// act applies the action with a per-call timeout and bounded transient retries.
func (r *Runner) act(runCtx context.Context, handle arena.EnvironmentHandle, action domain.Action) (*domain.ActionResult, error) {
	var result *domain.ActionResult
	err := r.withRetries(runCtx, func(callCtx context.Context) error {
		var err error
		result, err = r.actions.Act(callCtx, handle, action)
		return err
	})
	return result, err
}

func (r *Runner) withRetries(runCtx context.Context, call func(ctx context.Context) error) error {
	var lastErr error
	backoff := 200 * time.Millisecond

	for attempt := 0; attempt <= maxTransientRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(runCtx, r.cfg.StepCallTimeout)
		err := call(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		// The run budget or a cancellation wins over per-call retries.
		if runCtx.Err() != nil {
			return runCtx.Err()
		}
		if errors.Is(err, arena.ErrDestroyed) {
			return err
		}
		if !errors.Is(err, arena.ErrTransient) && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		select {
		case <-runCtx.Done():
			return runCtx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return fmt.Errorf("retries exhausted: %w", lastErr)
}

// classifyFatal maps a loop-breaking error onto the terminal branch.
func (r *Runner) classifyFatal(parent, runCtx context.Context, err error, stepLog []domain.StepRecord, ratio float64, b *outcomeBuilder) *domain.RunOutcome {
	if kind, ok := interrupted(parent, runCtx); ok {
		return b.interrupted(kind, stepLog)
	}
	switch {
	case errors.Is(err, llm.ErrAuth):
		return b.failed(domain.ErrorKindAuth, "model provider rejected credentials", stepLog, ratio)
	case errors.Is(err, arena.ErrDestroyed):
		return b.failed(domain.ErrorKindTransientIO, fmt.Sprintf("environment destroyed: %v", err), stepLog, ratio)
	default:
		return b.failed(domain.ErrorKindTransientIO, err.Error(), stepLog, ratio)
	}
}

// interrupted reports whether the run was cancelled by the caller or ran out
// of its time budget. The parent context carries only caller cancellation;
// the run context additionally carries the budget deadline.
func interrupted(parent, runCtx context.Context) (domain.ErrorKind, bool) {
	if parent.Err() != nil {
		return domain.ErrorKindCancelled, true
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return domain.ErrorKindBudgetExceeded, true
	}
	if runCtx.Err() != nil {
		return domain.ErrorKindCancelled, true
	}
	return "", false
}

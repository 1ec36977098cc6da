// Package policy evaluates agent actions against a rego guardrail before they
// are applied to the environment.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.action_policy.decision"),
		rego.Module("action_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// ActionInput is the evaluation input for one decided action.
type ActionInput struct {
	ActionType      string `json:"action_type"`
	Selector        string `json:"selector,omitempty"`
	URL             string `json:"url,omitempty"`
	EnvironmentType string `json:"environment_type"`
	AgentID         string `json:"agent_id"`
}

// Evaluate checks the action guardrail.
// Returns: decision ("allow" or "block"), reason (optional), error.
func (e *Engine) Evaluate(ctx context.Context, input ActionInput) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy is expected to define a default.
		return "allow", "default", nil
	}

	val := results[0].Expressions[0].Value
	if s, ok := val.(string); ok {
		return s, "", nil
	}
	if obj, ok := val.(map[string]interface{}); ok {
		decision, _ := obj["decision"].(string)
		reason, _ := obj["reason"].(string)
		if decision != "" {
			return decision, reason, nil
		}
	}

	return "allow", "unexpected return type", nil
}

// DefaultPolicy is the default guardrail content. Benchmark environments are
// sandboxed, so the default only blocks navigation off the arena and
// obviously destructive selectors.
const DefaultPolicy = `
package action_policy

default decision = "allow"

# Agents must stay inside the arena or the public demo site.
decision = "block" {
	input.action_type == "navigate"
	not allowed_host
}

allowed_host {
	contains(input.url, ".arena.local")
}

allowed_host {
	startswith(input.url, "https://example.com")
}

# Never allow interaction with account-deletion controls.
decision = "block" {
	input.action_type == "click"
	contains(input.selector, "delete-account")
}
`

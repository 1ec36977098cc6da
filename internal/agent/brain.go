// Package agent implements the decision engine that turns observations into
// actions via a model client.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/arenalab/orchestrator/internal/adapter/llm"
	"github.com/arenalab/orchestrator/internal/domain"
)

// ErrMalformedAction is returned when the model output cannot be parsed into
// a usable action. The runner records it as a failed step; only a run of
// consecutive malformed actions fails the run.
var ErrMalformedAction = errors.New("malformed action")

const defaultSystemPrompt = "You are a web agent completing a benchmark task."

// historyWindow bounds how many recent steps are replayed into the prompt.
const historyWindow = 8

// Brain decides the next action for a run. One instance serves one run; it
// holds no mutable state, so the runner can call it from its sequential loop.
type Brain struct {
	client llm.ModelClient
	agent  domain.AgentConfig
	task   domain.TaskSpec
}

// NewBrain creates a decision engine for one run.
func NewBrain(client llm.ModelClient, agentCfg domain.AgentConfig, task domain.TaskSpec) *Brain {
	return &Brain{client: client, agent: agentCfg, task: task}
}

// Decide produces the next action from the current observation and the
// accumulated step history.
func (b *Brain) Decide(ctx context.Context, obs *domain.Observation, history []domain.StepRecord) (domain.Action, error) {
	req := &llm.CompletionRequest{
		Model: b.agent.Model,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: b.systemPrompt()},
			{Role: "user", Content: b.observationPrompt(obs, history)},
		},
	}
	if b.agent.Temperature > 0 {
		t := b.agent.Temperature
		req.Temperature = &t
	}
	if b.agent.MaxTokens > 0 {
		n := b.agent.MaxTokens
		req.MaxTokens = &n
	}

	resp, err := b.client.Complete(ctx, req)
	if err != nil {
		return domain.Action{}, err
	}

	action, err := ParseAction(resp.Content)
	if err != nil {
		return domain.Action{}, err
	}
	return action, nil
}

func (b *Brain) systemPrompt() string {
	prompt := b.agent.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}

	var sb strings.Builder
	sb.WriteString(prompt)
	sb.WriteString("\n\nTask: ")
	sb.WriteString(b.task.Title)
	sb.WriteString("\nGoal: ")
	sb.WriteString(b.task.Description)
	sb.WriteString("\n\nRespond with a single JSON object describing the next action.\n")
	sb.WriteString(`Valid types: click, type, navigate, select, wait, finish.` + "\n")
	sb.WriteString(`Examples: {"type":"click","selector":"#submit"} or {"type":"finish","result":"<what you achieved>"}`)
	return sb.String()
}

func (b *Brain) observationPrompt(obs *domain.Observation, history []domain.StepRecord) string {
	var sb strings.Builder
	sb.WriteString("Current page:\n")
	fmt.Fprintf(&sb, "URL: %s\nTitle: %s\n\n%s\n", obs.URL, obs.Title, obs.ContentText)

	if len(obs.Links)+len(obs.Buttons)+len(obs.Inputs) > 0 {
		sb.WriteString("\nAvailable elements:\n")
		fmt.Fprintf(&sb, "- Links: %s\n", strings.Join(obs.Links, ", "))
		fmt.Fprintf(&sb, "- Buttons: %s\n", strings.Join(obs.Buttons, ", "))
		fmt.Fprintf(&sb, "- Inputs: %s\n", strings.Join(obs.Inputs, ", "))
	}

	if len(history) > 0 {
		start := 0
		if len(history) > historyWindow {
			start = len(history) - historyWindow
		}
		sb.WriteString("\nPrevious actions:\n")
		for _, step := range history[start:] {
			fmt.Fprintf(&sb, "%d. %s (%s)\n", step.Index, step.Action.Describe(), step.Outcome)
		}
	}

	sb.WriteString("\nDecide the next action toward the goal.")
	return sb.String()
}

// ParseAction extracts the action JSON object from a model response. Models
// often wrap the object in prose or code fences, so the parser scans for the
// outermost braces.
func ParseAction(content string) (domain.Action, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return domain.Action{}, fmt.Errorf("%w: no JSON object in response", ErrMalformedAction)
	}

	var action domain.Action
	if err := json.Unmarshal([]byte(content[start:end+1]), &action); err != nil {
		return domain.Action{}, fmt.Errorf("%w: %v", ErrMalformedAction, err)
	}

	switch action.Type {
	case domain.ActionTypeClick, domain.ActionTypeSelect:
		if action.Selector == "" {
			return domain.Action{}, fmt.Errorf("%w: %s action without selector", ErrMalformedAction, action.Type)
		}
	case domain.ActionTypeType:
		if action.Selector == "" {
			return domain.Action{}, fmt.Errorf("%w: type action without selector", ErrMalformedAction)
		}
	case domain.ActionTypeNavigate:
		if action.URL == "" {
			return domain.Action{}, fmt.Errorf("%w: navigate action without url", ErrMalformedAction)
		}
	case domain.ActionTypeWait, domain.ActionTypeFinish:
	default:
		return domain.Action{}, fmt.Errorf("%w: unknown action type %q", ErrMalformedAction, action.Type)
	}

	return action, nil
}

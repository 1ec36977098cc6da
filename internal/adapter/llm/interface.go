// Package llm provides an abstraction for model provider clients.
package llm

import "context"

// ChatMessage represents a chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest represents a chat completion request.
type CompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse represents a chat completion response.
type CompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content string `json:"content"`
	Usage   *Usage `json:"usage,omitempty"`
}

// ModelClient defines the interface for model provider operations. A client
// may be shared across concurrently executing runs; implementations must be
// safe for concurrent use and must not retain credentials beyond the call.
type ModelClient interface {
	// Complete sends a chat completion request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Provider returns the provider family identity.
	Provider() string

	// Healthy reports whether the backend is reachable.
	Healthy(ctx context.Context) bool
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MockClient is a deterministic ModelClient used by the mock strategy and in
// tests. It never performs network calls.
type MockClient struct {
	// Script, when non-empty, is returned response-by-response. Once
	// exhausted the client falls back to generated responses.
	Script []string

	calls int
}

// NewMockClient creates a new mock model client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements ModelClient interface.
var _ ModelClient = (*MockClient)(nil)

// Provider returns the provider family identity.
func (m *MockClient) Provider() string {
	return "mock"
}

// Complete returns a scripted or generated response.
func (m *MockClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.calls++
	content := m.nextContent(req)

	promptTokens := 0
	for _, msg := range req.Messages {
		promptTokens += len(msg.Content) / 4
	}

	return &CompletionResponse{
		ID:      fmt.Sprintf("mock-cmpl-%d", time.Now().UnixNano()),
		Model:   req.Model,
		Content: content,
		Usage: &Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: len(content) / 4,
			TotalTokens:      promptTokens + len(content)/4,
		},
	}, nil
}

func (m *MockClient) nextContent(req *CompletionRequest) string {
	if len(m.Script) > 0 {
		content := m.Script[0]
		m.Script = m.Script[1:]
		return content
	}

	// Generated fallback: click around for a few steps, then finish.
	if m.calls < 3 {
		action := map[string]string{
			"type":      "click",
			"selector":  fmt.Sprintf("#mock-element-%d", m.calls),
			"reasoning": "exploring the page",
		}
		b, _ := json.Marshal(action)
		return string(b)
	}

	var lastUser string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUser = req.Messages[i].Content
			break
		}
	}
	result := "task complete"
	if strings.Contains(strings.ToLower(lastUser), "goal") {
		result = "goal reached"
	}
	b, _ := json.Marshal(map[string]string{"type": "finish", "result": result})
	return string(b)
}

// Healthy always reports true.
func (m *MockClient) Healthy(ctx context.Context) bool {
	return true
}

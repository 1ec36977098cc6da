package arena

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/arenalab/orchestrator/internal/domain"
)

// MockArena is a deterministic in-memory stand-in for the arena backend. One
// instance serves one run; it implements both Provisioner and ActionInterface.
type MockArena struct {
	// PageContent seeds the observed page text; tests set this to exercise
	// content-based success criteria.
	PageContent string

	mu       sync.Mutex
	released map[string]bool
	history  []domain.Action
	url      string
}

// NewMockArena creates a mock arena.
func NewMockArena() *MockArena {
	return &MockArena{released: make(map[string]bool)}
}

var (
	_ Provisioner     = (*MockArena)(nil)
	_ ActionInterface = (*MockArena)(nil)
)

// mockHandle is a provisioned mock environment.
type mockHandle struct {
	id      string
	address string
	arena   *MockArena
}

func (h *mockHandle) ID() string      { return h.id }
func (h *mockHandle) Address() string { return h.address }

func (h *mockHandle) Release(ctx context.Context) error {
	h.arena.mu.Lock()
	defer h.arena.mu.Unlock()
	h.arena.released[h.id] = true
	return nil
}

// Provision creates a mock environment without any backend call.
func (m *MockArena) Provision(ctx context.Context, environmentType string, config map[string]string) (EnvironmentHandle, error) {
	if !SupportedEnvironment(environmentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEnvironment, environmentType)
	}

	m.mu.Lock()
	m.url = InitialURL(environmentType, config)
	m.mu.Unlock()

	return &mockHandle{
		id:      "env_" + uuid.New().String()[:8],
		address: "mock://" + environmentType,
		arena:   m,
	}, nil
}

// Released reports whether the given environment has been torn down.
func (m *MockArena) Released(environmentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released[environmentID]
}

// Observe returns a deterministic page snapshot reflecting applied actions.
func (m *MockArena) Observe(ctx context.Context, handle EnvironmentHandle) (*domain.Observation, error) {
	if err := m.checkLive(handle); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	content := m.PageContent
	if content == "" {
		content = fmt.Sprintf("Mock page after %d actions", len(m.history))
	}

	return &domain.Observation{
		URL:         m.url,
		Title:       "Mock Page",
		ContentText: content,
		Links:       []string{"#home", "#results"},
		Buttons:     []string{"#submit", "#search"},
		Inputs:      []string{"#query"},
	}, nil
}

// Act records the action and mutates the mock page state.
func (m *MockArena) Act(ctx context.Context, handle EnvironmentHandle, action domain.Action) (*domain.ActionResult, error) {
	if err := m.checkLive(handle); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, action)
	if action.Type == domain.ActionTypeNavigate && action.URL != "" {
		m.url = action.URL
	}

	return &domain.ActionResult{
		Success: true,
		Detail:  "mock " + strings.ToLower(string(action.Type)),
	}, nil
}

// History returns the actions applied so far, in order.
func (m *MockArena) History() []domain.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Action, len(m.history))
	copy(out, m.history)
	return out
}

// Healthy always reports true.
func (m *MockArena) Healthy(ctx context.Context) bool {
	return true
}

func (m *MockArena) checkLive(handle EnvironmentHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released[handle.ID()] {
		return fmt.Errorf("%w: %s", ErrDestroyed, handle.ID())
	}
	return nil
}

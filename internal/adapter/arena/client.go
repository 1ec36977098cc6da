package arena

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/arenalab/orchestrator/internal/domain"
)

// Client talks to the arena backend over HTTP. It implements both the
// Provisioner and ActionInterface contracts.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new arena backend client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var (
	_ Provisioner     = (*Client)(nil)
	_ ActionInterface = (*Client)(nil)
)

// remoteHandle is an environment provisioned by the arena backend.
type remoteHandle struct {
	id      string
	address string
	client  *Client

	releaseOnce sync.Once
	releaseErr  error
}

func (h *remoteHandle) ID() string      { return h.id }
func (h *remoteHandle) Address() string { return h.address }

// Release tears down the remote environment. Idempotent: only the first call
// reaches the backend.
func (h *remoteHandle) Release(ctx context.Context) error {
	h.releaseOnce.Do(func() {
		h.releaseErr = h.client.release(ctx, h.id)
	})
	return h.releaseErr
}

type provisionRequest struct {
	EnvironmentType string            `json:"environment_type"`
	Config          map[string]string `json:"config,omitempty"`
}

type provisionResponse struct {
	EnvironmentID string `json:"environment_id"`
	Address       string `json:"address"`
}

// Provision creates an environment of the given type.
func (c *Client) Provision(ctx context.Context, environmentType string, config map[string]string) (EnvironmentHandle, error) {
	if !SupportedEnvironment(environmentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEnvironment, environmentType)
	}

	var resp provisionResponse
	if err := c.post(ctx, "/v1/environments", &provisionRequest{
		EnvironmentType: environmentType,
		Config:          config,
	}, &resp); err != nil {
		return nil, fmt.Errorf("failed to provision environment: %w", err)
	}
	if resp.EnvironmentID == "" {
		return nil, fmt.Errorf("backend returned empty environment id")
	}

	return &remoteHandle{id: resp.EnvironmentID, address: resp.Address, client: c}, nil
}

func (c *Client) release(ctx context.Context, environmentID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/environments/"+environmentID, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to release environment: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// 404 means the backend already reclaimed it; release stays a no-op.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("release returned status %d", resp.StatusCode)
	}
	return nil
}

// Observe snapshots the current environment state.
func (c *Client) Observe(ctx context.Context, handle EnvironmentHandle) (*domain.Observation, error) {
	var obs domain.Observation
	if err := c.get(ctx, "/v1/environments/"+handle.ID()+"/observation", &obs); err != nil {
		return nil, err
	}
	return &obs, nil
}

// Act applies an action to the environment.
func (c *Client) Act(ctx context.Context, handle EnvironmentHandle, action domain.Action) (*domain.ActionResult, error) {
	var result domain.ActionResult
	if err := c.post(ctx, "/v1/environments/"+handle.ID()+"/actions", &action, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Healthy probes the backend health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrTransient, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", ErrDestroyed, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	default:
		return fmt.Errorf("arena returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

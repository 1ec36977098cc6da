// Package progress pushes live run progress to an optional downstream feed.
package progress

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/rpc/jsonrpc"
	"net/url"
	"strings"
	"time"
)

// Client delivers progress events over JSON-RPC. A client built from an empty
// address is a no-op, so callers never need a nil check. Events for one run
// are delivered in the order they are pushed.
type Client struct {
	addr        string
	dialTimeout time.Duration
	callTimeout time.Duration
}

// NewClient creates a progress client.
func NewClient(baseURL string) *Client {
	return &Client{
		addr:        resolveRPCAddr(baseURL),
		dialTimeout: 5 * time.Second,
		callTimeout: 5 * time.Second,
	}
}

// PushRequest is the request body for progress delivery.
type PushRequest struct {
	RunID string                 `json:"run_id"`
	Event map[string]interface{} `json:"event"`
}

// PushResponse is the response for progress delivery.
type PushResponse struct {
	OK        bool `json:"ok"`
	Delivered bool `json:"delivered"`
}

// PushEvent delivers one progress event. Delivery is best effort; failures
// are returned for logging but never affect the run.
func (c *Client) PushEvent(runID string, event map[string]interface{}) error {
	if c.addr == "" {
		return nil
	}

	req := &PushRequest{RunID: runID, Event: event}

	var resp PushResponse
	ctx, cancel := context.WithTimeout(context.Background(), c.callTimeout)
	defer cancel()

	if err := c.call(ctx, "Progress.PushEvent", req, &resp); err != nil {
		return fmt.Errorf("failed to push progress event: %w", err)
	}
	if !resp.OK {
		log.Printf("WARN: progress rpc returned ok=false (delivered=%v)", resp.Delivered)
		return fmt.Errorf("progress rpc returned ok=false")
	}

	return nil
}

func (c *Client) call(ctx context.Context, method string, args, reply interface{}) error {
	conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if c.callTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.callTimeout))
	}

	client := jsonrpc.NewClient(conn)
	call := client.Go(method, args, reply, nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-call.Done:
		return call.Error
	}
}

func resolveRPCAddr(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err == nil && parsed.Host != "" {
			return parsed.Host
		}
	}
	return raw
}

package progress

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"
	"testing"
)

// Progress is the test-side RPC receiver.
type Progress struct {
	mu  sync.Mutex
	got []PushRequest
}

func (p *Progress) PushEvent(req *PushRequest, resp *PushResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, *req)
	resp.OK = true
	resp.Delivered = true
	return nil
}

func (p *Progress) received() []PushRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PushRequest, len(p.got))
	copy(out, p.got)
	return out
}

func startRPCServer(t *testing.T) (*Progress, string) {
	t.Helper()

	receiver := &Progress{}
	srv := rpc.NewServer()
	if err := srv.Register(receiver); err != nil {
		t.Fatalf("failed to register receiver: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.ServeCodec(jsonrpc.NewServerCodec(conn))
		}
	}()

	return receiver, ln.Addr().String()
}

func TestPushEventDeliversInOrder(t *testing.T) {
	receiver, addr := startRPCServer(t)

	c := NewClient("http://" + addr)
	for i := 0; i < 3; i++ {
		if err := c.PushEvent("run_1", map[string]interface{}{"index": float64(i)}); err != nil {
			t.Fatalf("PushEvent %d: %v", i, err)
		}
	}

	got := receiver.received()
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, req := range got {
		if req.RunID != "run_1" {
			t.Fatalf("unexpected run id: %q", req.RunID)
		}
		if req.Event["index"] != float64(i) {
			t.Fatalf("events out of order: got %v at %d", req.Event["index"], i)
		}
	}
}

func TestPushEventNoopWhenUnconfigured(t *testing.T) {
	c := NewClient("")
	if err := c.PushEvent("run_1", map[string]interface{}{"type": "step"}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestPushEventErrorOnUnreachableFeed(t *testing.T) {
	c := NewClient("127.0.0.1:1")
	if err := c.PushEvent("run_1", map[string]interface{}{"type": "step"}); err == nil {
		t.Fatalf("expected delivery error")
	}
}

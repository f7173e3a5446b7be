package pinger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// freePort returns a port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer func() { _ = ln.Close() }()
	return ln.Addr().(*net.TCPAddr).Port
}

// heartbeatServer answers with a fresh heartbeat carrying status.
func heartbeatServer(t *testing.T, status string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"lastrun": %q, "status": %q, "frequency": 10, "process": "import", "server": "worker-1", "reason": "disk full"}`,
			time.Now().UTC().Format(time.RFC3339), status)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func mustEndpoint(t *testing.T, url string, opts ...EndpointOption) Endpoint {
	t.Helper()
	ep, err := NewEndpoint(url, opts...)
	if err != nil {
		t.Fatalf("NewEndpoint(%q) error = %v", url, err)
	}
	return ep
}

type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (c *captureNotifier) Send(_ context.Context, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
	return nil
}

func (c *captureNotifier) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...)
}

// runFor starts m, waits d and shuts it down, failing if Start does not
// return promptly.
func runFor(t *testing.T, m *Monitor, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	time.Sleep(d)
	cancel()

	select {
	case err := <-done:
		return err
	case <-time.After(15 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
		return nil
	}
}

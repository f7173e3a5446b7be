package poller

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"strings"
	"testing"
	"time"
)

// TestClient_ConnectionReuse verifies that sequential fetches to the same
// host reuse pooled connections.
func TestClient_ConnectionReuse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "OK"}`))
	}))
	defer server.Close()

	client := NewClient()

	var reusedCount int
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				reusedCount++
			}
		},
	}

	const numRequests = 5
	for i := 0; i < numRequests; i++ {
		ctx := httptrace.WithClientTrace(context.Background(), trace)
		resp := client.Fetch(ctx, server.URL, nil, 5*time.Second)
		if resp.Error != nil {
			t.Fatalf("request %d failed: %v", i, resp.Error)
		}
	}

	expectedMinReuse := numRequests - 2 // allow some tolerance
	if reusedCount < expectedMinReuse {
		t.Errorf("expected at least %d reused connections, got %d out of %d requests",
			expectedMinReuse, reusedCount, numRequests)
	}
}

func TestClient_FetchSendsHeaders(t *testing.T) {
	var gotAuth, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("X-Auth-Token")
		gotMethod = r.Method
		_, _ = w.Write([]byte(`{"status": "OK"}`))
	}))
	defer server.Close()

	resp := NewClient().Fetch(context.Background(), server.URL, map[string]string{"X-Auth-Token": "abc"}, time.Second)
	if resp.Error != nil {
		t.Fatalf("Fetch() error = %v", resp.Error)
	}
	if gotAuth != "abc" {
		t.Errorf("X-Auth-Token = %q, want %q", gotAuth, "abc")
	}
	if gotMethod != http.MethodGet {
		t.Errorf("method = %q, want GET", gotMethod)
	}
	if string(resp.Body) != `{"status": "OK"}` {
		t.Errorf("Body = %q", resp.Body)
	}
}

func TestClient_HTTPStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resp := NewClient().Fetch(context.Background(), server.URL, nil, time.Second)

	var terr *TransportError
	if !errors.As(resp.Error, &terr) {
		t.Fatalf("Error = %T %v, want *TransportError", resp.Error, resp.Error)
	}
	if terr.Kind != KindHTTPStatus || terr.Code != http.StatusServiceUnavailable {
		t.Errorf("got kind=%v code=%d", terr.Kind, terr.Code)
	}
	want := "Warn: HTTP Error: " + server.URL + " - Code 503 - Service Unavailable"
	if terr.Message() != want {
		t.Errorf("Message() = %q, want %q", terr.Message(), want)
	}
}

func TestClient_ConnectionError(t *testing.T) {
	// grab a free port, then close it so the dial is refused
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	url := "http://" + ln.Addr().String() + "/status"
	_ = ln.Close()

	resp := NewClient().Fetch(context.Background(), url, nil, time.Second)

	var terr *TransportError
	if !errors.As(resp.Error, &terr) {
		t.Fatalf("Error = %T %v, want *TransportError", resp.Error, resp.Error)
	}
	if terr.Kind != KindConnection {
		t.Errorf("Kind = %v, want %v", terr.Kind, KindConnection)
	}
	if !strings.HasPrefix(terr.Message(), "Warn: URLError: "+url) {
		t.Errorf("Message() = %q", terr.Message())
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	resp := NewClient().Fetch(context.Background(), server.URL, nil, 50*time.Millisecond)

	var terr *TransportError
	if !errors.As(resp.Error, &terr) {
		t.Fatalf("Error = %T %v, want *TransportError", resp.Error, resp.Error)
	}
	if terr.Kind != KindRetrieval {
		t.Errorf("Kind = %v, want %v", terr.Kind, KindRetrieval)
	}
	want := "Warn: Problem retrieving " + server.URL + ". Will try again in a few minutes."
	if terr.Message() != want {
		t.Errorf("Message() = %q, want %q", terr.Message(), want)
	}
}

func TestClient_CallerCancellationIsNotATransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	resp := NewClient().Fetch(ctx, server.URL, nil, 5*time.Second)
	if !errors.Is(resp.Error, context.Canceled) {
		t.Fatalf("Error = %v, want context.Canceled", resp.Error)
	}
	var terr *TransportError
	if errors.As(resp.Error, &terr) {
		t.Error("cancellation must not be reported as a TransportError")
	}
}

func TestClient_InvalidURL(t *testing.T) {
	resp := NewClient().Fetch(context.Background(), "http://bad host/", nil, time.Second)

	var terr *TransportError
	if !errors.As(resp.Error, &terr) || terr.Kind != KindConnection {
		t.Fatalf("Error = %v, want connection TransportError", resp.Error)
	}
}

// TestClient_Close verifies that Close() is safe to call and idempotent.
func TestClient_Close(t *testing.T) {
	client := NewClient()
	client.Close()
	client.Close()

	var nilClient *Client
	nilClient.Close()
}

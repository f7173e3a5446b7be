package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func captureServer(t *testing.T, status int, into *map[string]any, r **http.Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		*r = req.Clone(context.Background())
		if err := json.NewDecoder(req.Body).Decode(into); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSlack_Send(t *testing.T) {
	var body map[string]any
	var req *http.Request
	srv := captureServer(t, http.StatusOK, &body, &req)

	slack := NewSlack(SlackConfig{
		URL:     srv.URL,
		Channel: "#ops",
		Token:   "xoxb-1234",
		User:    "pinger",
	}, WebhookOptions{Logger: testLogger()})

	require.NoError(t, slack.Send(context.Background(), "import/worker-1 is late"))

	assert.Equal(t, "slack", slack.Name())
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "application/json; charset=utf-8", req.Header.Get("Content-Type"))
	assert.Equal(t, map[string]any{
		"token":      "xoxb-1234",
		"channel":    "#ops",
		"as_user":    true,
		"icon_emoji": ":robot:",
		"username":   "pinger",
		"text":       "import/worker-1 is late",
	}, body)
}

func TestSlack_NonSuccessStatusIsError(t *testing.T) {
	var body map[string]any
	var req *http.Request
	srv := captureServer(t, http.StatusTooManyRequests, &body, &req)

	slack := NewSlack(SlackConfig{URL: srv.URL}, WebhookOptions{Logger: testLogger()})
	err := slack.Send(context.Background(), "msg")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 429")
}

func TestSlack_OnlyLogDoesNotDeliver(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	slack := NewSlack(SlackConfig{URL: srv.URL}, WebhookOptions{OnlyLog: true, Logger: testLogger()})
	require.NoError(t, slack.Send(context.Background(), "msg"))
	assert.Zero(t, hits.Load())
}

func TestSlack_RateLimiterRespectsContext(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	slack := NewSlack(SlackConfig{URL: srv.URL}, WebhookOptions{Limiter: limiter, Logger: testLogger()})

	require.NoError(t, slack.Send(context.Background(), "first"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := slack.Send(ctx, "second")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.EqualValues(t, 1, hits.Load())
}

func TestHipChat_Send(t *testing.T) {
	var body map[string]any
	var req *http.Request
	srv := captureServer(t, http.StatusNoContent, &body, &req)

	hc := NewHipChat(HipChatConfig{
		BaseURL: srv.URL,
		Auth:    "s3cr3t",
		Room:    "ops room",
	}, WebhookOptions{Logger: testLogger()})

	require.NoError(t, hc.Send(context.Background(), "all good"))

	assert.Equal(t, "hipchat", hc.Name())
	assert.Equal(t, "/v2/room/ops%20room/notification", req.URL.EscapedPath())
	assert.Equal(t, "s3cr3t", req.URL.Query().Get("auth_token"))
	assert.Equal(t, map[string]any{
		"color":          "green",
		"message":        "all good (yey)",
		"notify":         true,
		"message_format": "text",
	}, body)
}

func TestSentry_SendAndFlush(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dsn := "http://public@" + srv.Listener.Addr().String() + "/1"
	s, err := NewSentry(dsn, WebhookOptions{Logger: testLogger()})
	require.NoError(t, err)
	assert.Equal(t, "sentry", s.Name())

	require.NoError(t, s.Send(context.Background(), "import is late"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Flush(ctx))
	assert.Positive(t, hits.Load())
}

func TestNewSentry_InvalidDSN(t *testing.T) {
	_, err := NewSentry("::not a dsn::", WebhookOptions{})
	require.Error(t, err)
}

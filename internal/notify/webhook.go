package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const maxErrorBodySize = 4 << 10

// WebhookOptions holds the settings shared by the HTTP based channels.
type WebhookOptions struct {
	// Client performs the requests. Defaults to a client with a 20s timeout.
	Client *http.Client

	// Limiter throttles deliveries. Defaults to one message per second with
	// a burst of five, which stays inside the chat services' posting limits.
	Limiter *rate.Limiter

	// OnlyLog logs messages at debug level instead of delivering them.
	OnlyLog bool

	// Logger receives log-only messages. Defaults to slog.Default().
	Logger *slog.Logger
}

type webhook struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	onlyLog bool
	logger  *slog.Logger
}

func newWebhook(name string, opts WebhookOptions) webhook {
	w := webhook{
		name:    name,
		client:  opts.Client,
		limiter: opts.Limiter,
		onlyLog: opts.OnlyLog,
		logger:  opts.Logger,
	}
	if w.client == nil {
		w.client = &http.Client{Timeout: defaultSendTimeout}
	}
	if w.limiter == nil {
		w.limiter = rate.NewLimiter(rate.Every(time.Second), 5)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// postJSON sends payload to url, waiting for the rate limiter first.
// Any non-2xx response is an error.
func (w webhook) postJSON(ctx context.Context, url string, payload any, contentType string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

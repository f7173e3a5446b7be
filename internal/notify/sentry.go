package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// Sentry captures every message as a Sentry event.
type Sentry struct {
	hub     *sentry.Hub
	onlyLog bool
	logger  *slog.Logger
}

var _ Channel = (*Sentry)(nil)

// NewSentry creates a Sentry channel reporting to dsn.
func NewSentry(dsn string, opts WebhookOptions) (*Sentry, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:        dsn,
		HTTPClient: opts.Client,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry client: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sentry{
		hub:     sentry.NewHub(client, sentry.NewScope()),
		onlyLog: opts.OnlyLog,
		logger:  logger,
	}, nil
}

// Name implements [Channel].
func (s *Sentry) Name() string {
	return "sentry"
}

// Send implements [Channel]. Events are transported asynchronously by the
// Sentry client; [Sentry.Flush] waits for them.
func (s *Sentry) Send(_ context.Context, message string) error {
	if s.onlyLog {
		s.logger.Debug("sentry message (log only)", "message", message)
		return nil
	}
	s.hub.CaptureMessage(message)
	return nil
}

// Flush waits for buffered events until ctx is done.
func (s *Sentry) Flush(ctx context.Context) error {
	timeout := defaultSendTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !s.hub.Flush(timeout) {
		return fmt.Errorf("sentry flush timed out after %s", timeout)
	}
	return nil
}

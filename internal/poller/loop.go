package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jpalmerr/pinger/internal/evaluate"
	"github.com/jpalmerr/pinger/internal/notify"
	"github.com/jpalmerr/pinger/internal/payload"
	"github.com/jpalmerr/pinger/internal/store"
	"github.com/jpalmerr/pinger/internal/timeutil"
)

const (
	// DefaultInterval is the delay between polls of a healthy endpoint.
	DefaultInterval = 60 * time.Second

	// DefaultErrorInterval is the longer delay used while an endpoint is in
	// error, so operators are not flooded with repeated alerts.
	DefaultErrorInterval = 300 * time.Second
)

// Endpoint is one monitored URL.
type Endpoint struct {
	URL string

	// Headers are sent with every fetch.
	Headers map[string]string

	// Timeout bounds one fetch; zero uses [DefaultTimeout].
	Timeout time.Duration
}

// Auth adds a credential header to every fetch.
type Auth struct {
	Header string
	Source TokenSource
}

// Committer is the write side of the state table.
type Committer interface {
	Register(url string) store.EndpointState
	Commit(state store.EndpointState)
}

// Recorder observes poll loop events.
type Recorder interface {
	PollCompleted(url string, d time.Duration)
	LoopRestarted(url string)
}

type nopRecorder struct{}

func (nopRecorder) PollCompleted(string, time.Duration) {}
func (nopRecorder) LoopRestarted(string)                {}

// LoopConfig holds the collaborators and settings of a [Loop].
type LoopConfig struct {
	Client        *Client
	Table         Committer
	Notifier      notify.Notifier
	Auth          *Auth
	Interval      time.Duration
	ErrorInterval time.Duration

	// Clock defaults to [timeutil.Now].
	Clock timeutil.Clock

	// Recorder may be nil.
	Recorder Recorder

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Loop monitors one endpoint. It is the only writer of that endpoint's
// state; the state it holds survives supervised restarts.
type Loop struct {
	endpoint      Endpoint
	client        *Client
	table         Committer
	notifier      notify.Notifier
	auth          *Auth
	interval      time.Duration
	errorInterval time.Duration
	clock         timeutil.Clock
	recorder      Recorder
	logger        *slog.Logger

	state store.EndpointState
}

// NewLoop registers ep in the table and returns its loop.
func NewLoop(ep Endpoint, cfg LoopConfig) *Loop {
	l := &Loop{
		endpoint:      ep,
		client:        cfg.Client,
		table:         cfg.Table,
		notifier:      cfg.Notifier,
		auth:          cfg.Auth,
		interval:      cfg.Interval,
		errorInterval: cfg.ErrorInterval,
		clock:         cfg.Clock,
		recorder:      cfg.Recorder,
		logger:        cfg.Logger,
	}
	if l.client == nil {
		l.client = NewClient()
	}
	if l.interval <= 0 {
		l.interval = DefaultInterval
	}
	if l.errorInterval <= 0 {
		l.errorInterval = DefaultErrorInterval
	}
	if l.clock == nil {
		l.clock = timeutil.Now
	}
	if l.recorder == nil {
		l.recorder = nopRecorder{}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.logger = l.logger.With("url", ep.URL)
	l.state = l.table.Register(ep.URL)
	return l
}

// URL returns the monitored URL.
func (l *Loop) URL() string {
	return l.endpoint.URL
}

// State returns the loop's current state.
func (l *Loop) State() store.EndpointState {
	return l.state
}

// Run polls until ctx is cancelled. It returns nil on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	for {
		state := l.Poll(ctx)
		if ctx.Err() != nil {
			return nil
		}

		delay := l.Delay(state.Status)
		if state.Status == store.StatusError {
			l.logger.Warn("sleeping after error", "seconds", delay.Seconds())
		} else {
			l.logger.Debug("sleeping", "seconds", delay.Seconds())
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Delay returns the wait before the next poll for an endpoint in status.
func (l *Loop) Delay(status store.Status) time.Duration {
	if status == store.StatusError {
		return l.errorInterval
	}
	return l.interval
}

// Poll performs one fetch → evaluate → commit cycle and returns the
// committed state.
func (l *Loop) Poll(ctx context.Context) store.EndpointState {
	l.state = l.state.Ping()
	l.logger.Debug("pinging")

	resp := l.client.Fetch(ctx, l.endpoint.URL, l.headers(ctx), l.endpoint.Timeout)
	l.recorder.PollCompleted(l.endpoint.URL, resp.Latency)
	now := l.clock()

	if resp.Error != nil {
		var terr *TransportError
		if !errors.As(resp.Error, &terr) {
			// shutdown interrupted the fetch; keep the ping, skip classification
			l.commit(now)
			return l.state
		}
		l.logger.Warn("fetch failed", "kind", terr.Kind.String(), "error", terr)
		msg := terr.Message()
		l.state = l.state.Fail()
		l.state.LastMessage = msg
		l.commit(now)
		l.alert(ctx, msg)
		return l.state
	}

	l.logger.Debug("received response", "body", string(resp.Body))
	p, perr := payload.Parse(resp.Body)
	if perr != nil {
		l.logger.Warn("unparsable response", "error", perr)
	}

	out := evaluate.Evaluate(l.state, now, p, perr)
	l.state = out.State
	l.commit(now)

	for _, n := range out.Notifications {
		switch n.Level {
		case evaluate.LevelAlert:
			l.alert(ctx, n.Message)
		case evaluate.LevelWarn:
			l.logger.Warn(n.Message)
		default:
			l.logger.Info(n.Message)
		}
	}
	return l.state
}

func (l *Loop) commit(now time.Time) {
	l.state.CheckedAt = now
	l.table.Commit(l.state)
}

func (l *Loop) alert(ctx context.Context, msg string) {
	l.logger.Error(msg, "status", l.state.Status.String())
	if l.notifier == nil {
		return
	}
	if err := l.notifier.Send(ctx, msg); err != nil {
		l.logger.Warn("notification not queued", "error", err)
	}
}

// headers returns the endpoint headers plus the auth header, if any. A
// token that cannot be obtained is logged and the fetch proceeds without it.
func (l *Loop) headers(ctx context.Context) map[string]string {
	if l.auth == nil || l.auth.Header == "" || l.auth.Source == nil {
		return l.endpoint.Headers
	}

	token, err := l.auth.Source.Token(ctx)
	if err != nil {
		l.logger.Error("failed to obtain auth token", "error", err)
		return l.endpoint.Headers
	}

	headers := make(map[string]string, len(l.endpoint.Headers)+1)
	for k, v := range l.endpoint.Headers {
		headers[k] = v
	}
	headers[l.auth.Header] = token
	return headers
}

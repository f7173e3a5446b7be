package pinger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/pinger/internal/metrics"
	"github.com/jpalmerr/pinger/internal/notify"
	"github.com/jpalmerr/pinger/internal/poller"
	"github.com/jpalmerr/pinger/internal/server"
	"github.com/jpalmerr/pinger/internal/store"
)

const (
	defaultPort           = 3002
	defaultRequestTimeout = poller.DefaultTimeout

	// drainTimeout bounds delivery of queued notifications at shutdown.
	drainTimeout = 10 * time.Second

	shutdownMessage = "Monitoring service shutting down! C-ya later!"
)

// Monitor polls heartbeat endpoints, classifies them, alerts on transitions
// and serves the results over HTTP.
//
// The typical lifecycle is:
//
//	m, err := pinger.New(pinger.WithEndpoint(ep))
//	if err != nil {
//	    slog.Error("failed to create monitor", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	m.Start(ctx) // blocks until context cancelled
type Monitor struct {
	endpoints       []Endpoint
	interval        time.Duration
	errorInterval   time.Duration
	requestTimeout  time.Duration
	restartCooldown time.Duration
	port            int
	debug           bool
	logger          *slog.Logger
	notifier        Notifier
	channels        []Channel
	auth            *poller.Auth
	registry        *prometheus.Registry
	stateCallbacks  []func(EndpointState)
}

// New creates a new [Monitor] instance with the given options.
//
// At least one endpoint must be configured via [WithEndpoint] or [WithEndpoints].
// Other options have defaults:
//   - Interval: 60 seconds
//   - Error interval: 300 seconds
//   - Request timeout: 20 seconds
//   - Restart cooldown: 60 seconds
//   - Port: 3002
//
// Returns an error if no endpoints are configured, a URL is configured twice,
// or any option is invalid.
func New(opts ...Option) (*Monitor, error) {
	cfg := &monitorConfig{
		interval:        poller.DefaultInterval,
		errorInterval:   poller.DefaultErrorInterval,
		requestTimeout:  defaultRequestTimeout,
		restartCooldown: poller.DefaultCooldown,
		port:            defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.endpoints) == 0 {
		return nil, errors.New("at least one endpoint is required")
	}

	// the URL is the state table key
	seen := make(map[string]bool, len(cfg.endpoints))
	for _, ep := range cfg.endpoints {
		if seen[ep.url] {
			return nil, fmt.Errorf("duplicate endpoint url: %q", ep.url)
		}
		seen[ep.url] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		endpoints:       cfg.endpoints,
		interval:        cfg.interval,
		errorInterval:   cfg.errorInterval,
		requestTimeout:  cfg.requestTimeout,
		restartCooldown: cfg.restartCooldown,
		port:            cfg.port,
		debug:           cfg.debug,
		logger:          logger,
		notifier:        cfg.notifier,
		channels:        cfg.channels,
		auth:            cfg.auth,
		registry:        cfg.registry,
		stateCallbacks:  cfg.stateCallbacks,
	}, nil
}

// Start polls every endpoint and serves the query API until ctx is cancelled.
//
// Every endpoint is polled immediately, then after the interval (or the
// error interval while it is in error). A crashed poll loop or query server
// is restarted after the restart cooldown and never affects the others.
// A notification listing the monitored URLs is sent on startup, and a final
// one on shutdown; queued notifications are drained before Start returns.
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server
// cannot bind its port or the metrics cannot be registered.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info("pinger starting", "endpoint_count", len(m.endpoints), "debug", m.debug)
	m.logger.Info("polling configured",
		"interval", m.interval.String(),
		"error_interval", m.errorInterval.String(),
	)

	if ctx.Err() != nil {
		return nil
	}

	table := store.NewTable()

	registry := m.registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	collector := metrics.New(table, "")
	if err := collector.Register(registry); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	notifier, closeNotifier := m.buildNotifier(collector)
	defer closeNotifier()

	srv := server.NewServer(table, m.port, registry, m.logger)
	ln, err := srv.Listen()
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	m.logger.Info("query API available", "url", fmt.Sprintf("http://localhost:%d", m.port))

	// subscribe before the loops register so no committed state is missed
	var updates <-chan store.EndpointState
	if len(m.stateCallbacks) > 0 {
		updates = table.Subscribe()
		defer table.Unsubscribe(updates)
	}

	client := poller.NewClient()
	loops := m.buildLoops(client, table, notifier, collector)
	scheduler := poller.NewScheduler(loops, m.restartCooldown, collector, m.logger)

	m.notify(ctx, notifier, m.startupMessage())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	g.Go(func() error {
		// the first run reuses the listener bound above
		task := func(ctx context.Context) error {
			if l := ln; l != nil {
				ln = nil
				return srv.Serve(ctx, l)
			}
			return srv.Run(ctx)
		}
		return poller.Supervise(gctx, "query server", task, m.restartCooldown, m.logger, nil)
	})

	if updates != nil {
		g.Go(func() error {
			m.dispatchStates(gctx, updates)
			return nil
		})
	}

	err = g.Wait()

	// ctx is done; the final message must still be queued
	m.notify(context.WithoutCancel(ctx), notifier, shutdownMessage)
	m.logger.Info("pinger stopped")
	return err
}

// buildNotifier returns the notifier used by the loops and a function that
// drains it.
func (m *Monitor) buildNotifier(recorder notify.Recorder) (Notifier, func()) {
	if m.notifier != nil {
		return m.notifier, func() {}
	}

	b := notify.NewBroadcaster(m.channels, m.logger, notify.WithRecorder(recorder))
	if names := b.Channels(); len(names) > 0 {
		m.logger.Info("notification channels configured", "channels", strings.Join(names, ","))
	} else {
		m.logger.Warn("no notification channels configured; alerts are only logged")
	}

	return b, func() {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := b.Close(ctx); err != nil {
			m.logger.Error("failed to drain notifications", "error", err)
		}
	}
}

func (m *Monitor) buildLoops(client *poller.Client, table *store.Table, notifier Notifier, recorder poller.Recorder) []*poller.Loop {
	cfg := poller.LoopConfig{
		Client:        client,
		Table:         table,
		Notifier:      notifier,
		Auth:          m.auth,
		Interval:      m.interval,
		ErrorInterval: m.errorInterval,
		Recorder:      recorder,
		Logger:        m.logger,
	}

	loops := make([]*poller.Loop, len(m.endpoints))
	for i, ep := range m.endpoints {
		timeout := ep.timeout
		if timeout == 0 {
			timeout = m.requestTimeout
		}
		loops[i] = poller.NewLoop(poller.Endpoint{
			URL:     ep.url,
			Headers: copyMap(ep.headers),
			Timeout: timeout,
		}, cfg)
	}
	return loops
}

func (m *Monitor) startupMessage() string {
	urls := make([]string, len(m.endpoints))
	for i, ep := range m.endpoints {
		urls[i] = ep.url
	}
	return fmt.Sprintf("Monitoring service starting! Watching %d URLs (debug: %t)\n%s",
		len(urls), m.debug, strings.Join(urls, "\n"))
}

func (m *Monitor) notify(ctx context.Context, notifier Notifier, message string) {
	m.logger.Info(message)
	if err := notifier.Send(ctx, message); err != nil {
		m.logger.Warn("notification not queued", "error", err)
	}
}

// dispatchStates invokes the state callbacks for every update until ctx is
// done.
func (m *Monitor) dispatchStates(ctx context.Context, updates <-chan store.EndpointState) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-updates:
			if !ok {
				return
			}
			public := stateFromStore(s)
			for _, cb := range m.stateCallbacks {
				invokeCallbackSafe(cb, public, m.logger)
			}
		}
	}
}

// Endpoints returns a copy of the configured endpoints.
func (m *Monitor) Endpoints() []Endpoint {
	cp := make([]Endpoint, len(m.endpoints))
	copy(cp, m.endpoints)
	return cp
}

// Port returns the configured HTTP port of the query API.
func (m *Monitor) Port() int {
	return m.port
}

// Interval returns the delay between polls of a healthy endpoint.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// ErrorInterval returns the delay between polls of an endpoint in error.
func (m *Monitor) ErrorInterval() time.Duration {
	return m.errorInterval
}

// invokeCallbackSafe calls a state callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(EndpointState), state EndpointState, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("state callback panicked",
				"panic", r,
				"url", state.URL,
			)
		}
	}()
	cb(state)
}

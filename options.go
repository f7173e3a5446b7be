package pinger

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/pinger/internal/notify"
	"github.com/jpalmerr/pinger/internal/poller"
)

// Notifier delivers alert messages to operators.
type Notifier = notify.Notifier

// Channel is one notification destination, such as Slack or Sentry.
type Channel = notify.Channel

// monitorConfig holds mutable state during Monitor construction.
type monitorConfig struct {
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

// Option is a function that configures a [Monitor] instance during construction.
//
// Options return an error if validation fails.
type Option func(*monitorConfig) error

// WithEndpoint adds a single [Endpoint] to monitor.
//
// Can be called multiple times. At least one endpoint must be configured
// for [New] to succeed.
func WithEndpoint(e Endpoint) Option {
	return func(cfg *monitorConfig) error {
		cfg.endpoints = append(cfg.endpoints, e)
		return nil
	}
}

// WithEndpoints adds multiple [Endpoint] values to monitor.
//
// Example:
//
//	m, err := pinger.New(
//	    pinger.WithEndpoints(ep1, ep2, ep3),
//	)
func WithEndpoints(endpoints ...Endpoint) Option {
	return func(cfg *monitorConfig) error {
		cfg.endpoints = append(cfg.endpoints, endpoints...)
		return nil
	}
}

// WithInterval sets the delay between polls of an endpoint that is not in
// error. Defaults to 60 seconds.
//
// Returns an error if the duration is shorter than one second.
func WithInterval(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d < time.Second {
			return errors.New("interval must be at least 1 second")
		}
		cfg.interval = d
		return nil
	}
}

// WithErrorInterval sets the delay between polls of an endpoint in error.
// Defaults to 300 seconds; a longer delay keeps a failing endpoint from
// re-alerting every interval.
//
// Returns an error if the duration is shorter than one second.
func WithErrorInterval(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d < time.Second {
			return errors.New("error interval must be at least 1 second")
		}
		cfg.errorInterval = d
		return nil
	}
}

// WithRequestTimeout sets the fetch timeout for endpoints that do not set
// their own via [WithTimeout]. Defaults to 20 seconds.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithRestartCooldown sets how long a crashed poll loop or query server waits
// before it is restarted. Defaults to 60 seconds.
func WithRestartCooldown(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("restart cooldown must be positive")
		}
		cfg.restartCooldown = d
		return nil
	}
}

// WithPort sets the HTTP port for the query API. Defaults to 3002.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *monitorConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithDebug marks the monitor as running against development endpoints. It
// is reported in the startup notification.
func WithDebug(debug bool) Option {
	return func(cfg *monitorConfig) error {
		cfg.debug = debug
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Monitor instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *monitorConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithChannels adds notification channels. Alerts are fanned out to every
// channel from a background queue, so a slow channel never delays polling.
func WithChannels(channels ...Channel) Option {
	return func(cfg *monitorConfig) error {
		for _, ch := range channels {
			if ch == nil {
				return errors.New("channel cannot be nil")
			}
		}
		cfg.channels = append(cfg.channels, channels...)
		return nil
	}
}

// WithNotifier replaces the built-in channel fan-out with n. Channels added
// with [WithChannels] are ignored when a notifier is set.
//
// n must not block: it is called from the poll loops.
func WithNotifier(n Notifier) Option {
	return func(cfg *monitorConfig) error {
		if n == nil {
			return errors.New("notifier cannot be nil")
		}
		cfg.notifier = n
		return nil
	}
}

// WithStaticToken sends token in header with every fetch.
func WithStaticToken(header, token string) Option {
	return func(cfg *monitorConfig) error {
		if header == "" {
			return errors.New("auth header cannot be empty")
		}
		if token == "" {
			return errors.New("auth token cannot be empty")
		}
		cfg.auth = &poller.Auth{Header: header, Source: poller.StaticToken(token)}
		return nil
	}
}

// WithIssuedToken requests a token from tokenURL with the given credentials
// and sends it in header with every fetch. Tokens with an expiry are reused
// until shortly before they expire.
//
// A token that cannot be obtained is logged, and the fetch proceeds without
// the header.
func WithIssuedToken(header, tokenURL, username, password string) Option {
	return func(cfg *monitorConfig) error {
		if header == "" {
			return errors.New("auth header cannot be empty")
		}
		if tokenURL == "" || username == "" || password == "" {
			return errors.New("issued token requires url, username and password")
		}
		cfg.auth = &poller.Auth{
			Header: header,
			Source: poller.NewIssuedTokens(poller.IssuedTokenConfig{
				URL:      tokenURL,
				Username: username,
				Password: password,
			}),
		}
		return nil
	}
}

// WithRegistry registers the monitor's metrics with reg and serves reg at
// /metrics. By default a private registry is used.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(cfg *monitorConfig) error {
		if reg == nil {
			return errors.New("registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}

// WithStateCallback registers a function called with every committed
// endpoint state.
//
// Callbacks run on a single goroutine in registration order and must not
// block; updates arriving while a callback is busy may be dropped. Panics
// within callbacks are recovered and logged.
//
// Nil callbacks are silently ignored.
func WithStateCallback(cb func(EndpointState)) Option {
	return func(cfg *monitorConfig) error {
		if cb == nil {
			return nil
		}
		cfg.stateCallbacks = append(cfg.stateCallbacks, cb)
		return nil
	}
}

package config

import (
	"fmt"
	"log/slog"

	"github.com/jpalmerr/pinger"
	"github.com/jpalmerr/pinger/internal/notify"
)

// BuildEndpoints converts the selected URL list into SDK Endpoint objects.
func BuildEndpoints(cfg *Config) ([]pinger.Endpoint, error) {
	targets := cfg.Targets()
	endpoints := make([]pinger.Endpoint, 0, len(targets))

	for _, u := range targets {
		ep, err := pinger.NewEndpoint(u)
		if err != nil {
			return nil, fmt.Errorf("endpoint %q: %w", u, err)
		}
		endpoints = append(endpoints, ep)
	}

	return endpoints, nil
}

// BuildChannels creates a notification channel for every configured
// notification section, in the order slack, hipchat, sentry.
func BuildChannels(cfg *Config, logger *slog.Logger) ([]pinger.Channel, error) {
	opts := notify.WebhookOptions{
		OnlyLog: cfg.Main.OnlyLog,
		Logger:  logger,
	}

	var channels []pinger.Channel

	if s := cfg.Slack; s != nil {
		channels = append(channels, notify.NewSlack(notify.SlackConfig{
			URL:     s.URL,
			Channel: s.Channel,
			Token:   s.Token,
			User:    s.User,
			Emoji:   s.Emoji,
		}, opts))
	}

	if h := cfg.HipChat; h != nil {
		channels = append(channels, notify.NewHipChat(notify.HipChatConfig{
			BaseURL: h.URL,
			Auth:    h.Auth,
			Room:    h.Room,
			Emoji:   h.Emoji,
			Color:   h.Color,
		}, opts))
	}

	if s := cfg.Sentry; s != nil {
		ch, err := notify.NewSentry(s.URL, opts)
		if err != nil {
			return nil, &ConfigurationError{Field: "sentry.url", Message: err.Error()}
		}
		channels = append(channels, ch)
	}

	return channels, nil
}

// BuildOptions converts parsed configuration into monitor options: the
// selected endpoints, intervals, port, auth and notification channels.
func BuildOptions(cfg *Config, logger *slog.Logger) ([]pinger.Option, error) {
	endpoints, err := BuildEndpoints(cfg)
	if err != nil {
		return nil, err
	}

	channels, err := BuildChannels(cfg, logger)
	if err != nil {
		return nil, err
	}

	m := cfg.Main
	opts := []pinger.Option{
		pinger.WithEndpoints(endpoints...),
		pinger.WithInterval(m.Interval.Duration()),
		pinger.WithErrorInterval(m.ErrorInterval.Duration()),
		pinger.WithRequestTimeout(m.RequestTimeout.Duration()),
		pinger.WithPort(m.Port),
		pinger.WithDebug(m.Debug),
	}
	if m.RestartCooldown > 0 {
		opts = append(opts, pinger.WithRestartCooldown(m.RestartCooldown.Duration()))
	}
	if len(channels) > 0 {
		opts = append(opts, pinger.WithChannels(channels...))
	}
	if logger != nil {
		opts = append(opts, pinger.WithLogger(logger))
	}

	if t := cfg.TokenAuth; t != nil {
		if t.Static() {
			opts = append(opts, pinger.WithStaticToken(t.Header, t.Token))
		} else {
			opts = append(opts, pinger.WithIssuedToken(t.Header, t.URL, t.Username, t.Password))
		}
	}

	return opts, nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/pinger"
	"github.com/jpalmerr/pinger/config"
	"github.com/spf13/cobra"
)

// shutdownTimeout covers the server grace period plus draining queued
// notifications.
const shutdownTimeout = 20 * time.Second

// newLogger creates a JSON logger for CLI use. Logs go to w; debug enables
// debug level.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// openLogOutput returns the log destination and a function closing it.
func openLogOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// serveCmd starts monitoring.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start monitoring",
	Long: `Start the heartbeat monitor.

The monitor will:
  - Load configuration from the specified YAML file
  - Poll every URL of the selected list (urls.dev when main.debug is set)
  - Send alerts to the configured notification channels
  - Serve endpoint state on the configured port

The monitor runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  pinger serve -c pinger.yaml
  pinger serve --config /etc/pinger/pinger.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out, closeLog, err := openLogOutput(cfg.Main.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := newLogger(out, cfg.Main.Debug)

	logger.Info("config loaded",
		"urls", len(cfg.Targets()),
		"debug", cfg.Main.Debug,
		"only_log", cfg.Main.OnlyLog,
	)

	opts, err := config.BuildOptions(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build monitor: %w", err)
	}

	m, err := pinger.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start monitor - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- m.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("monitor error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("monitor error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

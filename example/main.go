package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/pinger"
	"github.com/jpalmerr/pinger/example/heartbeat"
)

func main() {
	ln, err := net.Listen("tcp", "127.0.0.1:9999")
	if err != nil {
		slog.Error("failed to start mock heartbeat server", "error", err)
		os.Exit(1)
	}
	mock := &http.Server{Handler: heartbeat.Handler(nil), ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = mock.Serve(ln) }()
	defer func() { _ = mock.Close() }()

	var endpoints []pinger.Endpoint
	for _, job := range append(heartbeat.Jobs(), "broken") {
		ep, err := pinger.NewEndpoint("http://127.0.0.1:9999/jobs/" + job)
		if err != nil {
			slog.Error("failed to create endpoint", "error", err)
			os.Exit(1)
		}
		endpoints = append(endpoints, ep)
	}

	m, err := pinger.New(
		pinger.WithEndpoints(endpoints...),
		pinger.WithInterval(5*time.Second),
		pinger.WithErrorInterval(15*time.Second),
		pinger.WithPort(3002),
		pinger.WithStateCallback(func(s pinger.EndpointState) {
			fmt.Printf("%-40s %-9s pings=%d errors=%d\n", s.URL, s.Status, s.Pings, s.Errors)
		}),
	)
	if err != nil {
		slog.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  Pinger demo")
	fmt.Println()
	fmt.Println("  State:   http://localhost:3002/")
	fmt.Println("  One job: http://localhost:3002/task/http://127.0.0.1:9999/jobs/stale")
	fmt.Println("  Metrics: http://localhost:3002/metrics")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Start(ctx); err != nil {
		slog.Error("pinger error", "error", err)
		os.Exit(1)
	}
}

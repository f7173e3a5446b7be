// Standalone mock heartbeat server for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockheartbeat
//
// Then in another terminal:
//
//	go run ./cmd/pinger serve -c example/pinger.yaml
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jpalmerr/pinger/example/heartbeat"
)

func main() {
	fmt.Println("Mock heartbeat server starting on :9999")
	for _, job := range heartbeat.Jobs() {
		fmt.Printf("  http://localhost:9999/jobs/%s\n", job)
	}
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	srv := &http.Server{
		Addr:              ":9999",
		Handler:           heartbeat.Handler(nil),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

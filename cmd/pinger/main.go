// Package main is the entry point for the pinger CLI.
//
// Pinger can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	pinger serve -c pinger.yaml    # Start monitoring
//	pinger validate -c pinger.yaml # Validate configuration
//	pinger version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "pinger",
	Short: "A heartbeat monitor for background jobs",
	Long: `Pinger polls heartbeat endpoints of background jobs and alerts when a
job stops running on time, reports a failure, or recovers.

Each endpoint answers with a small JSON document:
  {"lastrun": "2024-03-01T11:58:00Z", "status": "OK", "frequency": 10,
   "process": "import", "server": "worker-1"}

Alerts go to Slack, HipChat and Sentry. The current state of every endpoint
is served as JSON on the configured port.

Quick start:
  1. Create a config file (pinger.yaml)
  2. Run: pinger serve -c pinger.yaml
  3. Open http://localhost:3002 in your browser

Example config:
  main:
    interval: 60
    error_interval: 300
  urls:
    prod: https://jobs.example.com/import/status`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this pinger binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pinger %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

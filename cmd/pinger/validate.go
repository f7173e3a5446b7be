package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/jpalmerr/pinger/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the monitor.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a pinger configuration file without starting the monitor.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  pinger validate -c pinger.yaml
  pinger validate --config /etc/pinger/pinger.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	list := "prod"
	if cfg.Main.Debug {
		list = "dev"
	}

	var channels []string
	if cfg.Slack != nil {
		channels = append(channels, "slack")
	}
	if cfg.HipChat != nil {
		channels = append(channels, "hipchat")
	}
	if cfg.Sentry != nil {
		channels = append(channels, "sentry")
	}
	channelList := strings.Join(channels, ", ")
	if channelList == "" {
		channelList = gray("none (alerts are only logged)")
	}

	auth := "none"
	if t := cfg.TokenAuth; t != nil {
		auth = t.Header + " (issued)"
		if t.Static() {
			auth = t.Header + " (static)"
		}
	}

	fmt.Printf("%s\n", green("Config is valid!"))
	fmt.Printf("  Port:           %d\n", cfg.Main.Port)
	fmt.Printf("  Interval:       %s\n", cfg.Main.Interval.Duration())
	fmt.Printf("  Error interval: %s\n", cfg.Main.ErrorInterval.Duration())
	fmt.Printf("  URLs:           %d (%s)\n", len(cfg.Targets()), list)
	for _, u := range cfg.Targets() {
		fmt.Printf("    - %s\n", u)
	}
	fmt.Printf("  Auth:           %s\n", auth)
	fmt.Printf("  Channels:       %s\n", channelList)
	if cfg.Main.OnlyLog {
		fmt.Printf("  %s\n", gray("only_log: notifications are logged, not sent"))
	}

	return nil
}

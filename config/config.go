// Package config provides YAML configuration parsing for pinger.
//
// This package enables running pinger as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	main:
//	  interval: 60
//	  error_interval: 300
//	  debug: false
//	  port: 3002
//
//	urls:
//	  dev: http://localhost:9000/status
//	  prod: https://a.example.com/status,https://b.example.com/status
//
//	token_auth:
//	  header: Authorization
//	  url: https://auth.example.com/token
//	  username: bot@example.com
//	  password: ${PINGER_PASSWORD}
//
//	slack:
//	  url: https://slack.com/api/chat.postMessage
//	  channel: "#ops"
//	  token: ${SLACK_TOKEN}
//
// Environment variables ${VAR} and ${VAR:-default} are expanded in URLs,
// credentials and the log file path.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// minInterval is the minimum allowed polling interval.
// This prevents accidental DoS of endpoints with overly aggressive polling.
const minInterval = 1 * time.Second

const (
	defaultInterval        = 60 * time.Second
	defaultErrorInterval   = 300 * time.Second
	defaultPort            = 3002
	defaultRestartCooldown = 60 * time.Second
	defaultRequestTimeout  = 20 * time.Second
)

// Config is the root configuration structure for pinger.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	Main MainConfig `yaml:"main"`
	URLs URLsConfig `yaml:"urls"`

	// Optional sections; nil when absent.
	TokenAuth *TokenAuthConfig `yaml:"token_auth"`
	Slack     *SlackConfig     `yaml:"slack"`
	HipChat   *HipChatConfig   `yaml:"hipchat"`
	Sentry    *SentryConfig    `yaml:"sentry"`
}

// MainConfig holds the process-wide settings.
type MainConfig struct {
	// Interval is the delay between polls of an endpoint not in error.
	// Accepts whole seconds (60) or a duration string ("1m"). Defaults to 60s.
	Interval Duration `yaml:"interval"`

	// ErrorInterval is the delay between polls of an endpoint in error.
	// Defaults to 300s.
	ErrorInterval Duration `yaml:"error_interval"`

	// Debug selects the dev URL list and debug logging.
	Debug bool `yaml:"debug"`

	// OnlyLog makes every notification channel log instead of send.
	OnlyLog bool `yaml:"only_log"`

	// Port is the query API port. Defaults to 3002.
	Port int `yaml:"port"`

	// LogFile receives JSON logs when set; stderr otherwise.
	LogFile string `yaml:"log_file"`

	// RestartCooldown is the wait before a crashed task restarts. Defaults to 60s.
	RestartCooldown Duration `yaml:"restart_cooldown"`

	// RequestTimeout bounds each fetch. Defaults to 20s.
	RequestTimeout Duration `yaml:"request_timeout"`
}

// URLsConfig holds the monitored URL lists. Each list is either a
// comma-separated string or a YAML sequence.
type URLsConfig struct {
	Dev  URLList `yaml:"dev"`
	Prod URLList `yaml:"prod"`
}

// TokenAuthConfig configures the credential header sent with every fetch.
// Either Token is set, or URL, Username and Password are used to request one.
type TokenAuthConfig struct {
	Header   string `yaml:"header"`
	Token    string `yaml:"token"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Static reports whether a fixed token is configured.
func (t *TokenAuthConfig) Static() bool {
	return t.Token != ""
}

// SlackConfig configures the Slack channel.
type SlackConfig struct {
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
	Token   string `yaml:"token"`
	User    string `yaml:"user"`
	Emoji   string `yaml:"emoji"`
}

// HipChatConfig configures the HipChat room channel.
type HipChatConfig struct {
	// URL overrides the API base URL.
	URL   string `yaml:"url"`
	Auth  string `yaml:"auth"`
	Room  string `yaml:"room"`
	Emoji string `yaml:"emoji"`
	Color string `yaml:"color"`
}

// SentryConfig configures the Sentry channel.
type SentryConfig struct {
	// URL is the Sentry DSN.
	URL string `yaml:"url"`
}

// ConfigurationError reports an invalid configuration value.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Duration wraps time.Duration for YAML unmarshalling.
//
// Integers are read as whole seconds; strings use [time.ParseDuration].
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got %v", node.Kind)
	}

	if node.ShortTag() == "!!int" {
		var seconds int64
		if err := node.Decode(&seconds); err != nil {
			return err
		}
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// URLList is a list of URLs written either as a comma-separated string or
// as a YAML sequence. Blank entries are dropped.
type URLList []string

// UnmarshalYAML implements yaml.Unmarshaler for URLList.
func (l *URLList) UnmarshalYAML(node *yaml.Node) error {
	var raw []string

	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		raw = strings.Split(s, ",")
	case yaml.SequenceNode:
		if err := node.Decode(&raw); err != nil {
			return err
		}
	default:
		return fmt.Errorf("url list must be a string or sequence, got %v", node.Kind)
	}

	out := make([]string, 0, len(raw))
	for _, u := range raw {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	*l = out
	return nil
}

// Targets returns the URL list selected by main.debug.
func (c *Config) Targets() []string {
	if c.Main.Debug {
		return c.URLs.Dev
	}
	return c.URLs.Prod
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// expandField expands *s in place, qualifying any error with field.
func expandField(field string, s *string) error {
	expanded, err := expandEnvVars(*s)
	if err != nil {
		return invalid(field, "%v", err)
	}
	*s = expanded
	return nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Defaults are applied for every main setting left unset, environment
// variables are expanded, and the result is validated. Validation failures
// are returned as *[ConfigurationError].
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	m := &c.Main
	if m.Interval == 0 {
		m.Interval = Duration(defaultInterval)
	}
	if m.ErrorInterval == 0 {
		m.ErrorInterval = Duration(defaultErrorInterval)
	}
	if m.Port == 0 {
		m.Port = defaultPort
	}
	if m.RestartCooldown == 0 {
		m.RestartCooldown = Duration(defaultRestartCooldown)
	}
	if m.RequestTimeout == 0 {
		m.RequestTimeout = Duration(defaultRequestTimeout)
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	m := &c.Main

	if m.Interval.Duration() < minInterval {
		return invalid("main.interval", "must be at least %s, got %s", minInterval, m.Interval.Duration())
	}
	if m.ErrorInterval.Duration() < minInterval {
		return invalid("main.error_interval", "must be at least %s, got %s", minInterval, m.ErrorInterval.Duration())
	}
	if m.RestartCooldown.Duration() < 0 {
		return invalid("main.restart_cooldown", "cannot be negative, got %s", m.RestartCooldown.Duration())
	}
	if m.RequestTimeout.Duration() < time.Second {
		return invalid("main.request_timeout", "must be at least 1s, got %s", m.RequestTimeout.Duration())
	}
	if m.Port < 1 || m.Port > 65535 {
		return invalid("main.port", "must be between 1 and 65535, got %d", m.Port)
	}
	if err := expandField("main.log_file", &m.LogFile); err != nil {
		return err
	}

	if err := validateURLList("urls.dev", c.URLs.Dev); err != nil {
		return err
	}
	if err := validateURLList("urls.prod", c.URLs.Prod); err != nil {
		return err
	}
	if len(c.Targets()) == 0 {
		field := "urls.prod"
		if m.Debug {
			field = "urls.dev"
		}
		return invalid(field, "at least one URL is required")
	}

	if t := c.TokenAuth; t != nil {
		fields := []struct {
			name  string
			value *string
		}{
			{"token_auth.token", &t.Token},
			{"token_auth.url", &t.URL},
			{"token_auth.username", &t.Username},
			{"token_auth.password", &t.Password},
		}
		for _, f := range fields {
			if err := expandField(f.name, f.value); err != nil {
				return err
			}
		}
		if t.Header == "" {
			return invalid("token_auth.header", "is required")
		}
		if !t.Static() {
			if t.URL == "" || t.Username == "" || t.Password == "" {
				return invalid("token_auth", "either token or url, username and password are required")
			}
			if err := validateHTTPURL("token_auth.url", t.URL); err != nil {
				return err
			}
		}
	}

	if s := c.Slack; s != nil {
		if err := expandField("slack.url", &s.URL); err != nil {
			return err
		}
		if err := expandField("slack.token", &s.Token); err != nil {
			return err
		}
		if s.URL == "" {
			return invalid("slack.url", "is required")
		}
		if err := validateHTTPURL("slack.url", s.URL); err != nil {
			return err
		}
	}

	if h := c.HipChat; h != nil {
		if err := expandField("hipchat.auth", &h.Auth); err != nil {
			return err
		}
		if h.Auth == "" {
			return invalid("hipchat.auth", "is required")
		}
		if h.Room == "" {
			return invalid("hipchat.room", "is required")
		}
		if h.URL != "" {
			if err := validateHTTPURL("hipchat.url", h.URL); err != nil {
				return err
			}
		}
	}

	if s := c.Sentry; s != nil {
		if err := expandField("sentry.url", &s.URL); err != nil {
			return err
		}
		if s.URL == "" {
			return invalid("sentry.url", "is required")
		}
	}

	return nil
}

// validateURLList expands and validates every URL of list in place and
// rejects duplicates.
func validateURLList(field string, list URLList) error {
	seen := make(map[string]struct{}, len(list))
	for i := range list {
		f := fmt.Sprintf("%s[%d]", field, i)
		if err := expandField(f, &list[i]); err != nil {
			return err
		}
		if err := validateHTTPURL(f, list[i]); err != nil {
			return err
		}
		if _, dup := seen[list[i]]; dup {
			return invalid(f, "duplicate URL %q", list[i])
		}
		seen[list[i]] = struct{}{}
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	parsedURL, err := url.Parse(raw)
	if err != nil {
		return invalid(field, "invalid url: %v", err)
	}
	if parsedURL.Scheme == "" {
		return invalid(field, "url must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return invalid(field, "url scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return invalid(field, "url must have a host")
	}
	return nil
}

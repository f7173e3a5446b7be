package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrEmptyTimestamp is returned by [ParseUTC] for blank input.
var ErrEmptyTimestamp = errors.New("empty timestamp")

// Clock returns the current instant. Tests substitute a fixed clock.
type Clock func() time.Time

// Now returns the current time in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// Fixed returns a [Clock] that always reports t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}

// ParseUTC parses an ISO-ish timestamp and returns it as a UTC instant.
// Timestamps without an explicit zone or offset are interpreted as UTC.
func ParseUTC(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyTimestamp
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

package store

import "time"

// Status is the classification of a monitored endpoint.
type Status string

const (
	// StatusUnknown is held only before the first classification.
	StatusUnknown Status = "unknown"

	// StatusOK means the last heartbeat was fresh and reported "OK".
	StatusOK Status = "ok"

	// StatusError means the endpoint was unreachable, unparsable, stale,
	// reported a failure or is misconfigured.
	StatusError Status = "error"

	// StatusSleeping means the endpoint is inside a declared sleep window.
	StatusSleeping Status = "sleeping"
)

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// EndpointState is the monitoring record of one URL.
//
// Values are immutable in practice: the transition methods return modified
// copies, which keeps the invariants in one place:
//   - SleepStart and SleepEnd are set if and only if Status is sleeping
//   - Pings and Errors never decrease
type EndpointState struct {
	URL         string     `json:"url"`
	Pings       int64      `json:"pings"`
	Errors      int64      `json:"errors"`
	Status      Status     `json:"status"`
	SleepStart  *time.Time `json:"sleep_start"`
	SleepEnd    *time.Time `json:"sleep_end"`
	Server      string     `json:"server"`
	Process     string     `json:"process"`
	CheckedAt   time.Time  `json:"checked_at"`
	LastMessage string     `json:"last_message,omitempty"`
}

// NewEndpointState returns the initial state of url.
func NewEndpointState(url string) EndpointState {
	return EndpointState{URL: url, Status: StatusUnknown}
}

// Ping records one poll attempt.
func (s EndpointState) Ping() EndpointState {
	s.Pings++
	return s
}

// Fail moves the state to error, counting the error and clearing any sleep
// window.
func (s EndpointState) Fail() EndpointState {
	s.Status = StatusError
	s.Errors++
	s.SleepStart, s.SleepEnd = nil, nil
	return s
}

// Healthy moves the state to ok, clearing any sleep window and the last alert.
func (s EndpointState) Healthy() EndpointState {
	s.Status = StatusOK
	s.SleepStart, s.SleepEnd = nil, nil
	s.LastMessage = ""
	return s
}

// Asleep moves the state to sleeping for the window [start, end] and clears
// the last alert.
func (s EndpointState) Asleep(start, end time.Time) EndpointState {
	s.Status = StatusSleeping
	s.LastMessage = ""
	s.SleepStart, s.SleepEnd = &start, &end
	return s
}

// Labelled records the process and server names reported by the endpoint.
// Empty values keep the previously reported names.
func (s EndpointState) Labelled(process, server string) EndpointState {
	if process != "" {
		s.Process = process
	}
	if server != "" {
		s.Server = server
	}
	return s
}

// InSleepWindow reports whether t falls inside the stored window, bounds
// included. It is false when no window is stored.
func (s EndpointState) InSleepWindow(t time.Time) bool {
	if s.SleepStart == nil || s.SleepEnd == nil {
		return false
	}
	return !t.Before(*s.SleepStart) && !t.After(*s.SleepEnd)
}

// Reader is the read-only view of a [Table].
//
// Implementations must be safe for concurrent access.
type Reader interface {
	// Get returns the state of url and whether it is monitored.
	Get(url string) (EndpointState, bool)

	// All returns a snapshot of every state, ordered by URL.
	All() []EndpointState

	// Subscribe returns a channel of committed states. Slow consumers miss
	// updates. Callers must Unsubscribe when done.
	Subscribe() <-chan EndpointState

	// Unsubscribe removes a subscription and closes its channel. Safe to
	// call with an unknown or already removed channel.
	Unsubscribe(ch <-chan EndpointState)
}

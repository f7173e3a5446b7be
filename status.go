package pinger

import (
	"time"

	"github.com/jpalmerr/pinger/internal/store"
)

// Status is the classification of a monitored endpoint.
//
// Status is a string type so it serializes and logs as a readable value.
type Status string

const (
	// StatusUnknown is held only until the first poll completes a
	// classification.
	StatusUnknown Status = "unknown"

	// StatusOK indicates the endpoint's heartbeat is fresh and reports "OK".
	StatusOK Status = "ok"

	// StatusError indicates the endpoint is unreachable, unparsable, stale,
	// misconfigured or reporting a failure.
	StatusError Status = "error"

	// StatusSleeping indicates the endpoint is inside a declared sleep window
	// and staleness is not alerted.
	StatusSleeping Status = "sleeping"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// EndpointState is a snapshot of one endpoint's monitoring record, delivered
// to callbacks registered with [WithStateCallback].
type EndpointState struct {
	// URL is the monitored URL.
	URL string

	// Pings counts poll attempts; Errors counts error classifications.
	Pings  int64
	Errors int64

	Status Status

	// SleepStart and SleepEnd bound the active sleep window. Both are nil
	// unless Status is [StatusSleeping].
	SleepStart *time.Time
	SleepEnd   *time.Time

	// Server and Process are the labels last reported by the endpoint.
	Server  string
	Process string

	// CheckedAt is when the state was committed.
	CheckedAt time.Time

	// LastMessage is the most recent alert raised for the endpoint, if it is
	// still in error.
	LastMessage string
}

// stateFromStore converts the internal record to the public type, copying
// the sleep window pointers.
func stateFromStore(s store.EndpointState) EndpointState {
	return EndpointState{
		URL:         s.URL,
		Pings:       s.Pings,
		Errors:      s.Errors,
		Status:      Status(s.Status),
		SleepStart:  copyTime(s.SleepStart),
		SleepEnd:    copyTime(s.SleepEnd),
		Server:      s.Server,
		Process:     s.Process,
		CheckedAt:   s.CheckedAt,
		LastMessage: s.LastMessage,
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

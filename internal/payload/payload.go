// Package payload decodes the JSON heartbeat document served by monitored
// processes.
//
// A heartbeat looks like:
//
//	{
//	  "lastrun": "2024-03-01T10:30:00Z",
//	  "status": "OK",
//	  "frequency": 10,
//	  "server": "worker-1",
//	  "process": "nightly-import",
//	  "reason": "",
//	  "sleep": [{"start": "2024-03-01T22:00:00Z", "duration": 480}]
//	}
//
// Every field is optional. A StatusPayload lives for exactly one evaluation.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultFrequency is the staleness margin, in minutes, used when a payload
// does not report one.
const DefaultFrequency = 10

// StatusOK is the only reported status treated as healthy. The comparison is
// case-sensitive.
const StatusOK = "OK"

// StatusPayload is one decoded heartbeat document.
type StatusPayload struct {
	LastRun   string      `json:"lastrun"`
	Status    string      `json:"status"`
	Frequency *float64    `json:"frequency"`
	Server    string      `json:"server"`
	Process   string      `json:"process"`
	Reason    string      `json:"reason"`
	Sleep     []SleepRule `json:"sleep"`
}

// SleepRule declares a window during which the process is expected to be
// dormant. The window is [Start, Start+Duration minutes].
//
// A malformed rule does not fail the payload it belongs to: decoding keeps
// going and the problem is recorded in Err.
type SleepRule struct {
	Start    string
	Duration float64

	// Err is set when the rule could not be decoded.
	Err error
}

// UnmarshalJSON decodes a rule, recording type mismatches in Err instead of
// returning them.
func (r *SleepRule) UnmarshalJSON(data []byte) error {
	*r = SleepRule{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		r.Err = fmt.Errorf("rule %s is not an object", data)
		return nil
	}

	if raw, ok := fields["start"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &r.Start); err != nil {
			r.Err = fmt.Errorf("start %s is not a string", raw)
			return nil
		}
	}
	if raw, ok := fields["duration"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &r.Duration); err != nil {
			r.Err = fmt.Errorf("duration %s is not a number", raw)
			return nil
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// Usable reports whether the rule was decoded and carries both a start and a
// non-zero duration. Rules that are not usable are ignored.
func (r SleepRule) Usable() bool {
	return r.Err == nil && r.Start != "" && r.Duration != 0
}

// Length returns the rule's duration as a time.Duration.
func (r SleepRule) Length() time.Duration {
	return time.Duration(r.Duration * float64(time.Minute))
}

// FrequencyMinutes returns the reported frequency or [DefaultFrequency].
// Fractional frequencies are allowed.
func (p *StatusPayload) FrequencyMinutes() float64 {
	if p.Frequency == nil {
		return DefaultFrequency
	}
	return *p.Frequency
}

// Margin returns the acceptable staleness of LastRun around the current time.
func (p *StatusPayload) Margin() time.Duration {
	return time.Duration(p.FrequencyMinutes() * float64(time.Minute))
}

// ParseError reports a response body that is not a heartbeat document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "invalid status payload: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var errNotObject = errors.New("body is not a JSON object")

// Parse decodes a response body. Any body that is not a JSON object
// (malformed JSON, null, arrays, scalars) yields a [*ParseError].
func Parse(body []byte) (*StatusPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ParseError{Err: errNotObject}
	}

	var p StatusPayload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("decode json: %w", err)}
	}
	return &p, nil
}

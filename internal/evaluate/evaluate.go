// Package evaluate turns one heartbeat into the next monitoring state.
//
// [Evaluate] is a pure function: the same previous state, instant and
// payload always produce the same [Outcome]. It never reads the clock,
// never logs and never touches shared data; the poll loop commits the
// returned state and routes the notifications.
package evaluate

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jpalmerr/pinger/internal/payload"
	"github.com/jpalmerr/pinger/internal/store"
	"github.com/jpalmerr/pinger/internal/timeutil"
)

// Level tells the poll loop where a [Notification] goes.
type Level int

const (
	// LevelInfo is logged only (sleep and wake-up edges).
	LevelInfo Level = iota

	// LevelWarn is logged only (skipped sleep rules).
	LevelWarn

	// LevelAlert is logged and sent to the notifier.
	LevelAlert
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelAlert:
		return "alert"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Notification is a message produced by one evaluation.
type Notification struct {
	Level   Level
	Message string
}

// Outcome is the result of one evaluation.
type Outcome struct {
	State         store.EndpointState
	Notifications []Notification
}

// Alerts returns the notifications that must reach the notifier.
func (o Outcome) Alerts() []Notification {
	var alerts []Notification
	for _, n := range o.Notifications {
		if n.Level == LevelAlert {
			alerts = append(alerts, n)
		}
	}
	return alerts
}

// lastRunLayout renders LastRun in alert messages; the instant is always UTC.
const lastRunLayout = "2006-01-02 15:04:05"

// Evaluate computes the state following prev for a heartbeat received at now.
//
// parseErr is the failure of decoding the response body; when it is non-nil
// p is ignored. Pings are counted by the caller, not here.
func Evaluate(prev store.EndpointState, now time.Time, p *payload.StatusPayload, parseErr error) Outcome {
	e := evaluation{state: prev, now: now}

	if parseErr != nil || p == nil {
		e.fail(fmt.Sprintf("Error: Could not parse response from endpoint %s", prev.URL))
		return e.outcome()
	}

	e.state = e.state.Labelled(p.Process, p.Server)

	if prev.Status == store.StatusSleeping {
		if prev.InSleepWindow(now) {
			e.info(fmt.Sprintf("%s is still asleep! zzzzzz", prev.URL))
			return e.outcome()
		}
		e.state = e.state.Healthy()
		e.info(fmt.Sprintf("%s is waking up! (yawn)", prev.URL))
	} else if e.enterSleep(p.Sleep) {
		return e.outcome()
	}

	e.checkLastRun(p, prev.Status)
	return e.outcome()
}

type evaluation struct {
	state         store.EndpointState
	now           time.Time
	notifications []Notification
}

func (e *evaluation) outcome() Outcome {
	return Outcome{State: e.state, Notifications: e.notifications}
}

func (e *evaluation) info(msg string) {
	e.notifications = append(e.notifications, Notification{Level: LevelInfo, Message: msg})
}

func (e *evaluation) warn(msg string) {
	e.notifications = append(e.notifications, Notification{Level: LevelWarn, Message: msg})
}

func (e *evaluation) fail(msg string) {
	e.state = e.state.Fail()
	e.state.LastMessage = msg
	e.notifications = append(e.notifications, Notification{Level: LevelAlert, Message: msg})
}

// enterSleep applies the first sleep rule whose window contains now, in
// declaration order.
func (e *evaluation) enterSleep(rules []payload.SleepRule) bool {
	for i, rule := range rules {
		if rule.Err != nil {
			e.warn(fmt.Sprintf("Error parsing sleep time for %s (rule %d): %v", e.state.URL, i, rule.Err))
			continue
		}
		if !rule.Usable() {
			continue
		}
		// the end bound is derived from start, not from a separate field
		start, err := timeutil.ParseUTC(rule.Start)
		if err != nil {
			e.warn(fmt.Sprintf("Error parsing sleep time for %s (rule %d): %v", e.state.URL, i, err))
			continue
		}
		end := start.Add(rule.Length())

		if !e.now.Before(start) && !e.now.After(end) {
			e.state = e.state.Asleep(start, end)
			e.info(fmt.Sprintf("%s is asleep! zzzzzz", e.state.URL))
			return true
		}
	}
	return false
}

func (e *evaluation) checkLastRun(p *payload.StatusPayload, prevStatus store.Status) {
	url := e.state.URL
	process, server := p.Process, p.Server

	lastRun, err := timeutil.ParseUTC(p.LastRun)
	if err != nil {
		e.fail(fmt.Sprintf("Error: Date Parse %s error for endpoint %s", p.LastRun, url))
		return
	}
	if lastRun.IsZero() {
		e.fail(fmt.Sprintf("Error: %s/%s is not configured properly %s", process, server, url))
		return
	}

	margin := p.Margin()
	if lastRun.Before(e.now.Add(-margin)) || lastRun.After(e.now.Add(margin)) {
		e.fail(fmt.Sprintf("Error: %s/%s is outside of the acceptable %s minute range. Last Run %s UTC with status %s",
			process, server, strconv.FormatFloat(p.FrequencyMinutes(), 'f', -1, 64), lastRun.Format(lastRunLayout), p.Status))
		return
	}

	if p.Status != payload.StatusOK {
		e.fail(fmt.Sprintf("Error: Failure reported on process %s running on %s. Status: %s Error: %s.",
			process, server, p.Status, p.Reason))
		return
	}

	if prevStatus == store.StatusError {
		msg := fmt.Sprintf("Status: %s/%s (%s) is OK again!", process, server, url)
		e.notifications = append(e.notifications, Notification{Level: LevelAlert, Message: msg})
	}
	e.state = e.state.Healthy()
}

package evaluate

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/pinger/internal/payload"
	"github.com/jpalmerr/pinger/internal/store"
)

const testURL = "http://a"

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func ts(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func mustParse(t *testing.T, body string) *payload.StatusPayload {
	t.Helper()
	p, err := payload.Parse([]byte(body))
	require.NoError(t, err)
	return p
}

func okPayload(t *testing.T, lastRun time.Time) *payload.StatusPayload {
	t.Helper()
	return mustParse(t, fmt.Sprintf(`{"lastrun": %q, "status": "OK", "frequency": 10, "process": "import", "server": "worker-1"}`, ts(lastRun)))
}

func fresh() store.EndpointState {
	return store.NewEndpointState(testURL)
}

func TestEvaluate_FreshOK(t *testing.T) {
	out := Evaluate(fresh(), now, okPayload(t, now), nil)

	assert.Equal(t, store.StatusOK, out.State.Status)
	assert.EqualValues(t, 0, out.State.Errors)
	assert.Empty(t, out.Alerts())
	assert.Equal(t, "import", out.State.Process)
	assert.Equal(t, "worker-1", out.State.Server)
}

func TestEvaluate_StaleLastRun(t *testing.T) {
	out := Evaluate(fresh(), now, okPayload(t, now.Add(-20*time.Minute)), nil)

	assert.Equal(t, store.StatusError, out.State.Status)
	assert.EqualValues(t, 1, out.State.Errors)

	alerts := out.Alerts()
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "outside of the acceptable 10 minute range")
	assert.Contains(t, alerts[0].Message, "import/worker-1")
	assert.Contains(t, alerts[0].Message, "Last Run 2024-03-01 11:40:00 UTC with status OK")
	assert.Equal(t, alerts[0].Message, out.State.LastMessage)
}

func TestEvaluate_MarginIsInclusive(t *testing.T) {
	for _, offset := range []time.Duration{-10 * time.Minute, 10 * time.Minute, 0} {
		out := Evaluate(fresh(), now, okPayload(t, now.Add(offset)), nil)
		assert.Equal(t, store.StatusOK, out.State.Status, "offset %v", offset)
	}

	for _, offset := range []time.Duration{-10*time.Minute - time.Second, 10*time.Minute + time.Second} {
		out := Evaluate(fresh(), now, okPayload(t, now.Add(offset)), nil)
		assert.Equal(t, store.StatusError, out.State.Status, "offset %v", offset)
	}
}

func TestEvaluate_OutsideMarginIsErrorRegardlessOfStatus(t *testing.T) {
	for _, status := range []string{"OK", "FAIL", "ok", ""} {
		p := mustParse(t, fmt.Sprintf(`{"lastrun": %q, "status": %q, "frequency": 5}`, ts(now.Add(time.Hour)), status))
		out := Evaluate(fresh(), now, p, nil)

		assert.Equal(t, store.StatusError, out.State.Status, "status %q", status)
		require.Len(t, out.Alerts(), 1)
		assert.Contains(t, out.Alerts()[0].Message, "acceptable 5 minute range")
	}
}

func TestEvaluate_ReportedFailure(t *testing.T) {
	p := mustParse(t, fmt.Sprintf(`{"lastrun": %q, "status": "FAILED", "reason": "disk full", "process": "import", "server": "worker-1"}`, ts(now)))
	out := Evaluate(fresh(), now, p, nil)

	assert.Equal(t, store.StatusError, out.State.Status)
	require.Len(t, out.Alerts(), 1)
	assert.Equal(t, "Error: Failure reported on process import running on worker-1. Status: FAILED Error: disk full.", out.Alerts()[0].Message)
}

func TestEvaluate_StatusComparisonIsCaseSensitive(t *testing.T) {
	p := mustParse(t, fmt.Sprintf(`{"lastrun": %q, "status": "ok"}`, ts(now)))
	out := Evaluate(fresh(), now, p, nil)
	assert.Equal(t, store.StatusError, out.State.Status)
}

func TestEvaluate_ParseFailure(t *testing.T) {
	p, err := payload.Parse([]byte("{not json"))
	require.Error(t, err)

	prev := fresh().Asleep(now, now.Add(time.Hour))
	out := Evaluate(prev, now, p, err)

	assert.Equal(t, store.StatusError, out.State.Status)
	assert.EqualValues(t, 1, out.State.Errors)
	assert.Nil(t, out.State.SleepStart)
	assert.Nil(t, out.State.SleepEnd)
	require.Len(t, out.Notifications, 1)
	assert.Equal(t, LevelAlert, out.Notifications[0].Level)
	assert.Contains(t, out.Notifications[0].Message, "Could not parse response")
	assert.Contains(t, out.Notifications[0].Message, testURL)
}

func TestEvaluate_DateParseError(t *testing.T) {
	for name, body := range map[string]string{
		"missing lastrun": `{"status": "OK"}`,
		"garbage lastrun": `{"lastrun": "yesterday-ish", "status": "OK"}`,
	} {
		t.Run(name, func(t *testing.T) {
			out := Evaluate(fresh(), now, mustParse(t, body), nil)
			assert.Equal(t, store.StatusError, out.State.Status)
			require.Len(t, out.Alerts(), 1)
			assert.Contains(t, out.Alerts()[0].Message, "Date Parse")
			assert.Contains(t, out.Alerts()[0].Message, "error for endpoint "+testURL)
		})
	}
}

func TestEvaluate_ZeroLastRunIsMisconfigured(t *testing.T) {
	p := mustParse(t, `{"lastrun": "0001-01-01T00:00:00Z", "status": "OK", "process": "p", "server": "s"}`)
	out := Evaluate(fresh(), now, p, nil)

	assert.Equal(t, store.StatusError, out.State.Status)
	require.Len(t, out.Alerts(), 1)
	assert.Contains(t, out.Alerts()[0].Message, "p/s is not configured properly "+testURL)
}

func TestEvaluate_RecoveryEdge(t *testing.T) {
	prev := fresh().Fail()
	out := Evaluate(prev, now, okPayload(t, now), nil)

	assert.Equal(t, store.StatusOK, out.State.Status)
	assert.EqualValues(t, 1, out.State.Errors, "recovery must not count an error")
	require.Len(t, out.Alerts(), 1)
	assert.Equal(t, "Status: import/worker-1 (http://a) is OK again!", out.Alerts()[0].Message)
	assert.Empty(t, out.State.LastMessage)
}

func TestEvaluate_OKToOKIsSilent(t *testing.T) {
	prev := fresh().Healthy()
	out := Evaluate(prev, now, okPayload(t, now), nil)

	assert.Equal(t, store.StatusOK, out.State.Status)
	assert.Empty(t, out.Notifications)
}

func TestEvaluate_RepeatedErrorsCountEachClassification(t *testing.T) {
	state := fresh()
	stale := okPayload(t, now.Add(-time.Hour))

	for i := 1; i <= 3; i++ {
		state = Evaluate(state, now, stale, nil).State
		assert.EqualValues(t, i, state.Errors)
	}
}

func TestEvaluate_EntersSleepWindow(t *testing.T) {
	start := now.Add(-5 * time.Minute)
	p := mustParse(t, fmt.Sprintf(`{"sleep": [{"start": %q, "duration": 20}], "status": "FAILED"}`, ts(start)))

	out := Evaluate(fresh(), now, p, nil)

	assert.Equal(t, store.StatusSleeping, out.State.Status)
	require.NotNil(t, out.State.SleepStart)
	require.NotNil(t, out.State.SleepEnd)
	assert.True(t, out.State.SleepStart.Equal(start))
	assert.True(t, out.State.SleepEnd.Equal(start.Add(20*time.Minute)))
	assert.True(t, out.State.InSleepWindow(now))
	assert.Empty(t, out.Alerts(), "entering sleep is informational")
	require.Len(t, out.Notifications, 1)
	assert.Equal(t, LevelInfo, out.Notifications[0].Level)
}

func TestEvaluate_SleepWindowContainment(t *testing.T) {
	start := now
	duration := 20 * time.Minute
	p := mustParse(t, fmt.Sprintf(`{"sleep": [{"start": %q, "duration": 20}]}`, ts(start)))

	for _, at := range []time.Time{start, start.Add(time.Minute), start.Add(duration)} {
		out := Evaluate(fresh(), at, p, nil)
		require.Equal(t, store.StatusSleeping, out.State.Status, "at %v", at)
		assert.True(t, out.State.SleepStart.Equal(start))
		assert.True(t, out.State.SleepEnd.Equal(start.Add(duration)))
	}

	out := Evaluate(fresh(), start.Add(duration+time.Nanosecond), p, nil)
	assert.NotEqual(t, store.StatusSleeping, out.State.Status)

	out = Evaluate(fresh(), start.Add(-time.Nanosecond), p, nil)
	assert.NotEqual(t, store.StatusSleeping, out.State.Status)
}

func TestEvaluate_FirstMatchingRuleWins(t *testing.T) {
	first := now.Add(-30 * time.Minute)
	second := now.Add(-10 * time.Minute)
	p := mustParse(t, fmt.Sprintf(`{"sleep": [
		{"start": %q, "duration": 5},
		{"start": %q, "duration": 60},
		{"start": %q, "duration": 60}
	]}`, ts(now.Add(-2*time.Hour)), ts(first), ts(second)))

	out := Evaluate(fresh(), now, p, nil)

	require.Equal(t, store.StatusSleeping, out.State.Status)
	assert.True(t, out.State.SleepStart.Equal(first), "rules apply in declaration order")
}

func TestEvaluate_UnparsableSleepRuleIsSkipped(t *testing.T) {
	p := mustParse(t, fmt.Sprintf(`{
		"lastrun": %q, "status": "OK",
		"sleep": [
			{"start": "not a date", "duration": 60},
			{"start": "", "duration": 60},
			{"start": %q, "duration": 0}
		]
	}`, ts(now), ts(now.Add(-time.Minute))))

	out := Evaluate(fresh(), now, p, nil)

	assert.Equal(t, store.StatusOK, out.State.Status)
	require.Len(t, out.Notifications, 1)
	assert.Equal(t, LevelWarn, out.Notifications[0].Level)
	assert.Contains(t, out.Notifications[0].Message, "Error parsing sleep time")
}

func TestEvaluate_MistypedSleepRulesAreSkipped(t *testing.T) {
	p := mustParse(t, fmt.Sprintf(`{
		"lastrun": %q, "status": "OK",
		"sleep": [
			{"start": 12345, "duration": 20},
			{"start": %q, "duration": "20"}
		]
	}`, ts(now), ts(now.Add(-time.Minute))))

	out := Evaluate(fresh(), now, p, nil)

	assert.Equal(t, store.StatusOK, out.State.Status)
	assert.EqualValues(t, 0, out.State.Errors)
	assert.Empty(t, out.Alerts())
	require.Len(t, out.Notifications, 2)
	for _, n := range out.Notifications {
		assert.Equal(t, LevelWarn, n.Level)
		assert.Contains(t, n.Message, "Error parsing sleep time")
	}
}

func TestEvaluate_FractionalFrequencyMargin(t *testing.T) {
	p := mustParse(t, fmt.Sprintf(`{"lastrun": %q, "status": "OK", "frequency": 10.5}`, ts(now.Add(-10*time.Minute-15*time.Second))))
	out := Evaluate(fresh(), now, p, nil)
	assert.Equal(t, store.StatusOK, out.State.Status)

	p = mustParse(t, fmt.Sprintf(`{"lastrun": %q, "status": "OK", "frequency": 10.5}`, ts(now.Add(-11*time.Minute))))
	out = Evaluate(fresh(), now, p, nil)
	assert.Equal(t, store.StatusError, out.State.Status)
	require.Len(t, out.Alerts(), 1)
	assert.Contains(t, out.Alerts()[0].Message, "outside of the acceptable 10.5 minute range")
}

func TestEvaluate_SleepClearsLastAlert(t *testing.T) {
	prev := Evaluate(fresh(), now, okPayload(t, now.Add(-time.Hour)), nil).State
	require.NotEmpty(t, prev.LastMessage)

	p := mustParse(t, fmt.Sprintf(`{"sleep": [{"start": %q, "duration": 20}]}`, ts(now.Add(-time.Minute))))
	asleep := Evaluate(prev, now, p, nil).State
	assert.Equal(t, store.StatusSleeping, asleep.Status)
	assert.Empty(t, asleep.LastMessage)
}

func TestEvaluate_WakeUpClearsLastAlert(t *testing.T) {
	prev := fresh().Asleep(now.Add(-time.Hour), now.Add(-time.Minute))
	prev.LastMessage = "Error: earlier failure"

	out := Evaluate(prev, now, okPayload(t, now), nil)
	assert.Equal(t, store.StatusOK, out.State.Status)
	assert.Empty(t, out.State.LastMessage)
}

func TestEvaluate_StillAsleep(t *testing.T) {
	prev := fresh().Asleep(now.Add(-time.Minute), now.Add(time.Minute))
	prev.Pings = 4

	// the stored window rules while sleeping, the payload is not consulted
	out := Evaluate(prev, now, mustParse(t, `{"status": "FAILED"}`), nil)

	assert.Equal(t, prev, out.State)
	assert.Empty(t, out.Alerts())
	require.Len(t, out.Notifications, 1)
	assert.Contains(t, out.Notifications[0].Message, "still asleep")
}

func TestEvaluate_WakesUpAndChecksLastRun(t *testing.T) {
	prev := fresh().Asleep(now.Add(-time.Hour), now.Add(-time.Minute))

	out := Evaluate(prev, now, okPayload(t, now), nil)
	assert.Equal(t, store.StatusOK, out.State.Status)
	assert.Nil(t, out.State.SleepStart)
	assert.Nil(t, out.State.SleepEnd)
	assert.Empty(t, out.Alerts(), "waking up is informational and not a recovery")
	require.NotEmpty(t, out.Notifications)
	assert.Contains(t, out.Notifications[0].Message, "waking up")

	out = Evaluate(prev, now, okPayload(t, now.Add(-time.Hour)), nil)
	assert.Equal(t, store.StatusError, out.State.Status)
	assert.Nil(t, out.State.SleepStart)
	require.Len(t, out.Alerts(), 1)
	assert.Contains(t, out.Alerts()[0].Message, "outside of the acceptable")
}

func TestEvaluate_WakingDoesNotReenterSleepSameCycle(t *testing.T) {
	prev := fresh().Asleep(now.Add(-time.Hour), now.Add(-time.Minute))
	p := mustParse(t, fmt.Sprintf(`{"lastrun": %q, "status": "OK", "sleep": [{"start": %q, "duration": 30}]}`,
		ts(now), ts(now.Add(-5*time.Minute))))

	out := Evaluate(prev, now, p, nil)
	assert.Equal(t, store.StatusOK, out.State.Status)
}

func TestEvaluate_Idempotent(t *testing.T) {
	prev := fresh().Fail()
	prev.Pings = 7
	p := okPayload(t, now.Add(-3*time.Minute))

	first := Evaluate(prev, now, p, nil)
	second := Evaluate(prev, now, p, nil)

	assert.Equal(t, first, second)
	assert.Equal(t, store.StatusError, prev.Status, "prev must not be mutated")
}

func TestEvaluate_DoesNotCountPings(t *testing.T) {
	prev := fresh()
	prev.Pings = 3
	out := Evaluate(prev, now, okPayload(t, now), nil)
	assert.EqualValues(t, 3, out.State.Pings)

	out = Evaluate(prev, now, nil, errors.New("boom"))
	assert.EqualValues(t, 3, out.State.Pings)
}

func TestEvaluate_LabelsRetained(t *testing.T) {
	prev := fresh().Labelled("import", "worker-1")
	out := Evaluate(prev, now, nil, errors.New("boom"))

	assert.Equal(t, "import", out.State.Process)
	assert.Equal(t, "worker-1", out.State.Server)
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "alert", LevelAlert.String())
	assert.True(t, strings.HasPrefix(Level(9).String(), "level("))
}

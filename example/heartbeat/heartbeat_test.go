package heartbeat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fetch(t *testing.T, name string) (*httptest.ResponseRecorder, payload) {
	t.Helper()
	h := Handler(func() time.Time { return fixedNow })
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+name, nil))

	var p payload
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	}
	return rec, p
}

func TestHandler_Scenarios(t *testing.T) {
	_, healthy := fetch(t, "healthy")
	assert.Equal(t, "OK", healthy.Status)
	assert.Equal(t, "2024-03-01T11:59:00Z", healthy.LastRun)
	assert.Equal(t, "healthy", healthy.Process)

	_, stale := fetch(t, "stale")
	assert.Equal(t, "2024-03-01T11:30:00Z", stale.LastRun)

	_, nightly := fetch(t, "nightly")
	require.Len(t, nightly.Sleep, 1)
	assert.Equal(t, "2024-03-01T11:50:00Z", nightly.Sleep[0].Start)
	assert.Equal(t, 60.0, nightly.Sleep[0].Duration)

	_, flaky := fetch(t, "flaky")
	assert.Equal(t, "OK", flaky.Status, "flaky starts healthy")
}

func TestHandler_UnknownJobIsNotAHeartbeat(t *testing.T) {
	rec, _ := fetch(t, "unknown")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>maintenance</html>", rec.Body.String())
}

func TestHandler_FlakyFlips(t *testing.T) {
	now := fixedNow
	h := Handler(func() time.Time { return now })

	get := func() payload {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/flaky", nil))
		var p payload
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		return p
	}

	assert.Equal(t, "OK", get().Status)
	now = now.Add(2 * time.Minute)
	p := get()
	assert.Equal(t, "FAILED", p.Status)
	assert.NotEmpty(t, p.Reason)
}

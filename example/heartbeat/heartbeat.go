// Package heartbeat serves fake job heartbeats for trying pinger locally.
//
// Jobs are addressed as /jobs/{name}:
//
//   - healthy: always fresh and OK
//   - flaky: flips between OK and FAILED every 20-60 seconds
//   - stale: last ran 30 minutes ago on a 10 minute schedule
//   - nightly: long overdue, but inside a declared sleep window
//
// Any other name answers with a body that is not a heartbeat.
package heartbeat

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

type sleepRule struct {
	Start    string  `json:"start"`
	Duration float64 `json:"duration"`
}

type payload struct {
	LastRun   string      `json:"lastrun"`
	Status    string      `json:"status"`
	Frequency int         `json:"frequency"`
	Server    string      `json:"server"`
	Process   string      `json:"process"`
	Reason    string      `json:"reason,omitempty"`
	Sleep     []sleepRule `json:"sleep,omitempty"`
}

// flakyState tracks the current status and next flip of the flaky job.
type flakyState struct {
	failing      bool
	nextChangeAt time.Time
}

// Handler returns the mock heartbeat handler. now supplies the current time;
// nil uses time.Now.
func Handler(now func() time.Time) http.Handler {
	if now == nil {
		now = time.Now
	}

	var (
		mu    sync.Mutex
		flaky = flakyState{nextChangeAt: now().Add(nextFlip())}
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs/{name}", func(w http.ResponseWriter, r *http.Request) {
		t := now().UTC()
		name := r.PathValue("name")

		p := payload{
			LastRun:   t.Add(-time.Minute).Format(time.RFC3339),
			Status:    "OK",
			Frequency: 10,
			Server:    "mock-1",
			Process:   name,
		}

		switch name {
		case "healthy":
		case "flaky":
			mu.Lock()
			if t.After(flaky.nextChangeAt) {
				flaky.failing = !flaky.failing
				flaky.nextChangeAt = t.Add(nextFlip())
				slog.Info("status change", "job", name, "failing", flaky.failing)
			}
			failing := flaky.failing
			mu.Unlock()
			if failing {
				p.Status = "FAILED"
				p.Reason = "upstream returned 502"
			}
		case "stale":
			p.LastRun = t.Add(-30 * time.Minute).Format(time.RFC3339)
		case "nightly":
			p.LastRun = t.Add(-3 * time.Hour).Format(time.RFC3339)
			p.Sleep = []sleepRule{{Start: t.Add(-10 * time.Minute).Format(time.RFC3339), Duration: 60}}
		default:
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>maintenance</html>"))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(p); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})
	return mux
}

// Jobs lists the job names with a heartbeat scenario.
func Jobs() []string {
	return []string{"healthy", "flaky", "stale", "nightly"}
}

func nextFlip() time.Duration {
	return time.Duration(20+rand.Intn(41)) * time.Second
}

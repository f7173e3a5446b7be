// Package pinger monitors heartbeat endpoints: HTTP URLs that report when a
// background job last ran, how often it is expected to run and whether it
// succeeded.
//
// Each endpoint is polled on its own supervised loop. Every response is
// classified as ok, error or sleeping, and alerts are raised only on
// transitions (a fresh failure, or a recovery), never for every poll of an
// endpoint that stays broken. The current state of every endpoint is served
// as JSON over HTTP for dashboards and external probes.
//
// # Quick Start
//
//	ep, _ := pinger.NewEndpoint("https://jobs.example.com/import/status")
//	m, _ := pinger.New(
//	    pinger.WithEndpoint(ep),
//	    pinger.WithChannels(slackChannel),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	m.Start(ctx) // blocks until context is cancelled
//
// # Heartbeat payload
//
// An endpoint answers with a JSON object:
//
//	{
//	    "lastrun": "2024-03-01T11:58:00Z",
//	    "status": "OK",
//	    "frequency": 10,
//	    "process": "import",
//	    "server": "worker-1",
//	    "reason": "",
//	    "sleep": [{"start": "2024-03-01T02:00:00Z", "duration": 120}]
//	}
//
// The endpoint is ok when lastrun lies within frequency minutes of now and
// status is exactly "OK". A sleep rule (duration in minutes) silences
// staleness alerts while now lies inside it.
//
// # Query API
//
//   - GET /: {"data": [...]} with every endpoint, sorted by URL
//   - GET /task/{url}: {"data": {...}}, answering 500 while the endpoint is in error
//   - GET /api/sse: live stream of state changes
//   - GET /metrics: Prometheus metrics
//
// # Architecture
//
// Pinger consists of several internal packages (under internal/):
//
//   - internal/payload: heartbeat payload decoding
//   - internal/evaluate: the pure classification state machine
//   - internal/store: the concurrent state table with pub/sub
//   - internal/poller: HTTP fetching, poll loops and supervision
//   - internal/notify: Slack, HipChat and Sentry channels behind a queue
//   - internal/metrics: Prometheus collector
//   - internal/server: the HTTP query API
//
// The internal packages are not part of the public API and may change
// without notice.
package pinger

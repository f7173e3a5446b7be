// Package server provides the read-only HTTP query API over the monitor's
// state table.
//
// Routes:
//
//   - GET /: every monitored endpoint as {"data": [...]}, sorted by URL
//   - GET /task/{url}: one endpoint as {"data": {...}}; 404 when the URL is
//     not monitored, 500 when the endpoint is in error, 200 otherwise
//   - GET /api/sse: Server-Sent Events stream of committed state changes
//   - GET /metrics: Prometheus exposition, when a gatherer is configured
//   - GET /healthz: liveness of the monitor itself
//
// The {url} of /task is the raw remainder of the request path (plus its
// query string), so "/task/http://host/status" looks up "http://host/status".
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server

// Package store holds the per-endpoint monitoring state and the table that
// publishes it.
//
// Each poll loop owns the [EndpointState] of its URL and is the only writer
// of that entry. Loops publish whole-value replacements with [Table.Commit],
// so readers (the query API, the SSE stream) always observe a consistent
// snapshot of one transition. No lock spans more than one endpoint.
//
// The main components are:
//
//   - [EndpointState]: counters and classification of one monitored URL
//   - [Table]: concurrent URL-keyed table with pub/sub for committed changes
//   - [Reader]: the read-only view handed to the query server
package store

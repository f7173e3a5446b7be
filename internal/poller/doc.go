// Package poller runs the per-endpoint monitoring loops.
//
// Each monitored URL gets its own [Loop] goroutine which owns that URL's
// state: it fetches the heartbeat, hands it to the evaluator, commits the
// resulting state to the table, forwards alerts to the notifier and then
// sleeps for the normal or the error interval. Polls of one URL are strictly
// sequential; different URLs never wait on each other.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper that classifies transport failures
//   - [Loop]: poll → evaluate → commit → sleep cycle for one URL
//   - [Supervise]: restarts a crashed loop after a cooldown
//   - [Scheduler]: runs every supervised loop until shutdown
//   - [TokenSource]: static or issued credentials for the auth header
package poller

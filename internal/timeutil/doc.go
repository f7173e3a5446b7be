// Package timeutil provides the clock and timestamp parsing shared by the
// evaluator and the poll loop.
//
// All instants handled by pinger are UTC. Timestamps reported by monitored
// processes are loosely formatted ("2024-03-01T10:00:00", "2024-03-01
// 10:00:00+02:00", RFC 1123 dates and so on); [ParseUTC] accepts all of them
// and treats a timestamp without a zone as UTC.
package timeutil

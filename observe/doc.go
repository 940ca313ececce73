// Package observe provides observers for hsmx runtimes and export of chart
// structure.
//
// Observers are registered with hsmx.WithObserver and run on the dispatching
// goroutine after every event:
//
//   - Metrics records prometheus counters and a latency histogram.
//   - Logging writes one structured log line per dispatch.
//   - Channel forwards notifications to a Go channel without blocking.
//
// DOT and JSON render a chart, optionally highlighting its active
// configuration.
package observe

// Package schedule runs prediction rounds on a timer and fans each finished
// round out to its sinks (latest-round store, history, websocket hub,
// alerts, metrics).
package schedule

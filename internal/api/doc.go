// Package api serves the HTTP surface: health, live data, per-provider and
// ensemble predictions, full rounds, history, alerts, metrics, the
// websocket stream and an optional static UI.
package api

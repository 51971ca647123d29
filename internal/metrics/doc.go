// Package metrics counts scrapes, provider calls and rounds and exposes
// them at /metrics in the Prometheus exposition format.
package metrics

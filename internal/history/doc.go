// Package history persists finished prediction rounds.
//
// Each round is stored as a summary row plus its full JSON payload. Backends
// are sqlite (a local file, schema created on open), postgres (schema managed
// by embedded migrations) and none.
package history

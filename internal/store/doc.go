// Package store implements a thread-safe in-memory key/value store with TTL
// eviction.
//
// Store[V] is generic over the stored value. The feed package keeps its
// cached live feed in a Store[*feed.Feed]; the HTTP API keeps the most recent
// prediction round in a Store with expiry disabled.
//
// Fresh returns a value only while it is within the TTL; Run evicts stale
// entries in the background until its context is cancelled. The clock is
// injectable so tests are deterministic.
package store

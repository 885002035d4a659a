// Package store defines the persistence contract used throughout Convoke: a
// key/value/list/set/hash vocabulary with optional TTLs, small enough that
// the engine never depends on a specific store technology.
//
// Two implementations ship with the framework: InMemoryStore for tests and
// single-process deployments, and the Redis-backed store in store/redis for
// shared deployments. Store failures surface as errors wrapping
// ErrUnavailable; callers are expected to log and degrade rather than fail
// the turn.
package store

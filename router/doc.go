// Package router decides which backend model endpoint serves a given task.
//
// A Router combines a static routing policy (primary and fallback endpoint
// per agent role, loaded from YAML and hot-reloadable as a whole) with a
// sliding-window RateTracker per endpoint. Routing is deliberately
// best-effort: when both the primary and fallback endpoints are over their
// limits the router still returns the fallback, marked AllExhausted, rather
// than erroring. Local rate accounting may lag true provider capacity, so
// availability wins over strict enforcement; callers must be prepared for
// the downstream call to itself be throttled.
package router

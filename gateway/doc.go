// Package gateway provides the uniform completion contract over whichever
// backend endpoint the router selects.
//
// A Gateway asks the router for an endpoint, dispatches to the matching
// provider Backend behind a per-endpoint circuit breaker, and retries once
// against the policy's fallback endpoint when the primary call fails. When a
// request carries an output schema the gateway instructs the backend to emit
// JSON, recovers the document through a strict-parse / fenced-block /
// balanced-brace ladder, and validates it against the schema. Parse or
// validation failure is reported as *SchemaParseError, never a panic;
// callers must check for it explicitly.
package gateway

// Package delegate implements the supervisor layer: a store-backed registry
// of delegation domains and a Coordinator that routes a supervisor's turn to
// domain sub-agents. Complex queries fan out sequentially across several
// domains and the per-domain answers are synthesized into one reply; simple
// queries are delegated by keyword match or fall through to the supervisor's
// own state machine.
package delegate

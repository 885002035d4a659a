// Package agent implements the per-turn state machine that drives a single
// agent: a reasoning node that decides between a skill invocation and a
// direct reply, a conditional skill-execution node, and a response
// formulation node. The machine is an explicit state enum with a pure
// transition function; nodes are plain methods on the Runner.
//
// Failures inside a node degrade to canned user-facing text; only
// configuration errors fail loudly.
package agent

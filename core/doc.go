// Package core defines the shared data model for the Convoke orchestration
// engine: messages, conversation state, memory, skills and their invocation
// patterns, routing metadata, and the execution flow trace.
//
// Types in this package are plain data carriers with JSON tags so any
// persistence backend can round-trip them as documents. Behavior lives in the
// packages that own it (skill, router, memory, agent, delegate); core keeps
// only small constructors and accessors.
package core

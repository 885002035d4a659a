// Package skill implements the skill framework: a persistent registry with a
// lazily rebuilt read cache, a strict parameter validator, an executor that
// converts every outcome into a uniform SkillResult, and the invocation
// pattern matcher used by the reasoning node as a deterministic fast path.
//
// Skill metadata lives in core.Skill; implementations are bound explicitly
// through Executor.Bind, never discovered from the filesystem.
package skill

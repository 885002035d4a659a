package core

// Persona describes how an agent presents itself and what shapes its
// reasoning prompt.
type Persona struct {
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Goals        []string `json:"goals,omitempty" yaml:"goals,omitempty"`
	Constraints  []string `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Tone         string   `json:"tone,omitempty" yaml:"tone,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
}

// AgentConfig is the static definition of an agent: identity, persona, role
// for routing, assigned skills, memory policy and the supervisor flag.
// Immutable during a turn; mutated only through explicit configuration
// updates.
type AgentConfig struct {
	ID      string       `json:"id" yaml:"id"`
	Persona Persona      `json:"persona" yaml:"persona"`
	Role    string       `json:"role,omitempty" yaml:"role,omitempty"`
	Skills  []string     `json:"skills,omitempty" yaml:"skills,omitempty"`
	Memory  MemoryPolicy `json:"memory" yaml:"memory"`
	// IsSupervisor routes turns through the delegation coordinator.
	IsSupervisor bool `json:"is_supervisor,omitempty" yaml:"is_supervisor,omitempty"`
	// DefaultSkillParams are merged under extracted parameters when the
	// invocation matcher selects a skill.
	DefaultSkillParams map[string]map[string]any `json:"default_skill_params,omitempty" yaml:"default_skill_params,omitempty"`
	// Extra carries deployment specific settings the engine ignores.
	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

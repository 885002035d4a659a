package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const agentConfigYAML = `
agents:
  - id: research-agent
    role: researcher
    persona:
      name: Researcher
      tone: precise
    skills: [web-search]
    memory:
      max_messages: 100
      summarize_after: 40
      long_term_enabled: true
      key_fact_extraction: false
  - id: supervisor-agent
    is_supervisor: true
    persona:
      name: Supervisor
`

func TestLoadAgentConfigs(t *testing.T) {
	cfgs, err := LoadAgentConfigs([]byte(agentConfigYAML))
	require.NoError(t, err)
	require.Len(t, cfgs, 2)

	assert.Equal(t, "research-agent", cfgs[0].ID)
	assert.Equal(t, "researcher", cfgs[0].Role)
	assert.Equal(t, []string{"web-search"}, cfgs[0].Skills)
	assert.Equal(t, 100, cfgs[0].Memory.MaxMessages)
	assert.False(t, cfgs[0].Memory.KeyFactExtraction)

	assert.True(t, cfgs[1].IsSupervisor)
	// Omitted memory section falls back to the default policy.
	assert.Equal(t, DefaultMemoryPolicy(), cfgs[1].Memory)
}

func TestLoadAgentConfigsRejectsMissingID(t *testing.T) {
	_, err := LoadAgentConfigs([]byte("agents:\n  - persona:\n      name: Nameless\n"))
	assert.ErrorContains(t, err, "missing id")
}

func TestLoadAgentConfigsRejectsDuplicateID(t *testing.T) {
	doc := "agents:\n  - id: a\n  - id: a\n"
	_, err := LoadAgentConfigs([]byte(doc))
	assert.ErrorContains(t, err, "duplicate id")
}

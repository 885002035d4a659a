package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// agentConfigDocument is the on-disk shape of an agent definition file.
type agentConfigDocument struct {
	Agents []AgentConfig `yaml:"agents"`
}

// LoadAgentConfigs parses agent definitions from YAML. The document holds a
// top-level "agents" list; every entry must carry a non-empty id.
func LoadAgentConfigs(data []byte) ([]AgentConfig, error) {
	var doc agentConfigDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse agent config: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Agents))
	for i := range doc.Agents {
		cfg := &doc.Agents[i]
		if cfg.ID == "" {
			return nil, fmt.Errorf("agent config entry %d: missing id", i)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("agent config: duplicate id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		if cfg.Memory == (MemoryPolicy{}) {
			cfg.Memory = DefaultMemoryPolicy()
		}
	}
	return doc.Agents, nil
}

// LoadAgentConfigFile reads and parses an agent definition file.
func LoadAgentConfigFile(path string) ([]AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent config: %w", err)
	}
	return LoadAgentConfigs(data)
}

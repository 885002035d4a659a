package router

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Endpoint describes one named, rate-limited completion backend.
type Endpoint struct {
	// ID is the provider-facing model identifier.
	ID       string `yaml:"id" json:"id"`
	Provider string `yaml:"provider" json:"provider"`
	RPMLimit int    `yaml:"rpm_limit" json:"rpm_limit"`
	// CostPer1KTokensUSD and LatencyMsAvg are advisory hints, not
	// consulted by routing decisions.
	CostPer1KTokensUSD float64 `yaml:"cost_per_1k_tokens_usd" json:"cost_per_1k_tokens_usd"`
	LatencyMsAvg       int     `yaml:"latency_ms_avg" json:"latency_ms_avg"`
}

// Policy maps an agent role to its primary and fallback endpoint names.
type Policy struct {
	Primary  string `yaml:"primary" json:"primary"`
	Fallback string `yaml:"fallback" json:"fallback"`
}

// FallbackBehavior selects what happens when the primary is exhausted.
type FallbackBehavior struct {
	// Mode is "immediate" (switch to fallback at once) or "queue".
	Mode string `yaml:"mode" json:"mode"`
	// QueueRetrySeconds only applies to queue mode.
	QueueRetrySeconds int `yaml:"queue_retry_seconds" json:"queue_retry_seconds"`
}

// Config is the routing policy document, loaded at startup and hot-reloaded
// as a whole via Router.Reload.
type Config struct {
	Endpoints map[string]Endpoint `yaml:"endpoints" json:"endpoints"`
	Policies  map[string]Policy   `yaml:"policies" json:"policies"`
	Fallback  FallbackBehavior    `yaml:"fallback_behavior" json:"fallback_behavior"`
	// DefaultRole is used when a task's role has no policy.
	DefaultRole string `yaml:"default_role" json:"default_role"`
}

// Validate checks that every policy references declared endpoints and that
// the default role, when set, has a policy.
func (c *Config) Validate() error {
	for role, p := range c.Policies {
		if _, ok := c.Endpoints[p.Primary]; !ok {
			return fmt.Errorf("policy %q: unknown primary endpoint %q", role, p.Primary)
		}
		if _, ok := c.Endpoints[p.Fallback]; !ok {
			return fmt.Errorf("policy %q: unknown fallback endpoint %q", role, p.Fallback)
		}
	}
	if c.DefaultRole != "" {
		if _, ok := c.Policies[c.DefaultRole]; !ok {
			return fmt.Errorf("default role %q has no policy", c.DefaultRole)
		}
	}
	return nil
}

// LoadConfig parses a routing policy from YAML.
func LoadConfig(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse routing config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadConfigFile reads and parses a routing policy file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routing config: %w", err)
	}
	return LoadConfig(data)
}

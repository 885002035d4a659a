package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/convoke/convoke/logging"
)

// TaskType categorizes what a completion call is for, carried on
// TaskMetadata for policy decisions and observability.
type TaskType string

const (
	// TaskReasoning is the per-turn reasoning call.
	TaskReasoning TaskType = "reasoning"
	// TaskSkillExecution is a completion made by a skill implementation.
	TaskSkillExecution TaskType = "skill_execution"
	// TaskResponseFormulation is the final response synthesis call.
	TaskResponseFormulation TaskType = "response_formulation"
	// TaskDelegation covers classification and synthesis calls made by
	// the delegation coordinator.
	TaskDelegation TaskType = "delegation"
)

// TaskMetadata describes who is asking and why. Constructed fresh per call.
type TaskMetadata struct {
	AgentRole      string   `json:"agent_role"`
	TaskType       TaskType `json:"task_type"`
	Priority       int      `json:"priority,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
	UserID         string   `json:"user_id,omitempty"`
}

// Decision is the outcome of a Route call. AllExhausted marks the documented
// best-effort case: both endpoints over their limits, fallback returned
// anyway.
type Decision struct {
	// Endpoint is the chosen backend, always usable.
	Endpoint Endpoint `json:"endpoint"`
	// EndpointName is the policy name of the chosen endpoint.
	EndpointName string `json:"endpoint_name"`
	IsFallback   bool   `json:"is_fallback"`
	AllExhausted bool   `json:"all_exhausted"`
}

// EndpointStats is one entry in the router's utilization snapshot.
type EndpointStats struct {
	CurrentRPM  int     `json:"current_rpm"`
	RPMLimit    int     `json:"rpm_limit"`
	Utilization float64 `json:"utilization"`
}

// Router selects an endpoint for a task by combining the routing policy with
// live rate-tracker checks.
type Router struct {
	mu      sync.RWMutex
	cfg     *Config
	tracker RateTracker
	logger  logging.Logger
}

// RouterOptions configures a Router.
type RouterOptions struct {
	Tracker RateTracker
	Logger  logging.Logger
}

// New creates a Router over the given policy. Defaults to an in-process
// tracker and a no-op logger.
func New(cfg *Config, optFns ...func(o *RouterOptions)) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := RouterOptions{
		Tracker: NewMemoryTracker(),
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{cfg: cfg, tracker: opts.Tracker, logger: opts.Logger}, nil
}

// Reload swaps the whole routing policy atomically. In-flight Route calls
// finish against the policy they started with.
func (r *Router) Reload(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
	r.logger.Info("routing policy reloaded", "endpoints", len(cfg.Endpoints), "policies", len(cfg.Policies))
	return nil
}

func (r *Router) policyFor(role string) (Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.cfg.Policies[role]; ok {
		return p, nil
	}
	if p, ok := r.cfg.Policies[r.cfg.DefaultRole]; ok {
		return p, nil
	}
	return Policy{}, fmt.Errorf("no routing policy for role %q and no default", role)
}

func (r *Router) endpoint(name string) Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg.Endpoints[name]
}

// Route picks an endpoint for the task. The primary is tried first; if its
// rate check fails the fallback is tried; if both fail the fallback is still
// returned with AllExhausted set. Route errors only on configuration
// problems or tracker unavailability.
func (r *Router) Route(ctx context.Context, meta TaskMetadata) (Decision, error) {
	policy, err := r.policyFor(meta.AgentRole)
	if err != nil {
		return Decision{}, err
	}

	primary := r.endpoint(policy.Primary)
	ok, err := r.tracker.IncrementAndCheck(ctx, primary.ID, primary.RPMLimit)
	if err != nil {
		return Decision{}, err
	}
	if ok {
		return Decision{Endpoint: primary, EndpointName: policy.Primary}, nil
	}

	fallback := r.endpoint(policy.Fallback)
	ok, err = r.tracker.IncrementAndCheck(ctx, fallback.ID, fallback.RPMLimit)
	if err != nil {
		return Decision{}, err
	}
	if ok {
		r.logger.Info("primary endpoint exhausted, using fallback",
			"role", meta.AgentRole, "primary", policy.Primary, "fallback", policy.Fallback)
		return Decision{Endpoint: fallback, EndpointName: policy.Fallback, IsFallback: true}, nil
	}

	// Both exhausted. Return the fallback anyway so the caller can still
	// attempt the call; the provider enforces the real limit.
	r.logger.Warn("all endpoints exhausted for role, returning fallback",
		"role", meta.AgentRole, "fallback", policy.Fallback)
	return Decision{Endpoint: fallback, EndpointName: policy.Fallback, IsFallback: true, AllExhausted: true}, nil
}

// FallbackFor returns the policy's fallback endpoint for a role, used by the
// gateway's retry path.
func (r *Router) FallbackFor(role string) (Endpoint, string, error) {
	policy, err := r.policyFor(role)
	if err != nil {
		return Endpoint{}, "", err
	}
	return r.endpoint(policy.Fallback), policy.Fallback, nil
}

// Stats returns a per-endpoint utilization snapshot keyed by endpoint name.
func (r *Router) Stats(ctx context.Context) (map[string]EndpointStats, error) {
	r.mu.RLock()
	endpoints := make(map[string]Endpoint, len(r.cfg.Endpoints))
	for name, ep := range r.cfg.Endpoints {
		endpoints[name] = ep
	}
	r.mu.RUnlock()

	out := make(map[string]EndpointStats, len(endpoints))
	for name, ep := range endpoints {
		rpm, err := r.tracker.CurrentRPM(ctx, ep.ID)
		if err != nil {
			return nil, err
		}
		var util float64
		if ep.RPMLimit > 0 {
			util = float64(rpm) / float64(ep.RPMLimit)
		}
		out[name] = EndpointStats{CurrentRPM: rpm, RPMLimit: ep.RPMLimit, Utilization: util}
	}
	return out, nil
}

// Package convoke provides a high-level façade over the orchestration
// engine: agents driven by a per-turn state machine, a skill framework with
// pattern-based invocation, bounded conversational memory, a rate-limited
// model router with fallback, and a supervisor layer that delegates across
// domain sub-agents. Most applications interact with this package by:
//  1. Creating a Convoke via New() (optionally overriding the defaults)
//  2. Registering skills, binding their implementations, and registering agents
//  3. Calling ProcessMessage per user turn
//
// All defaults are safe for local development and testing; production
// deployments typically supply the Redis store, a routing config with real
// provider backends, and a structured logger.
package convoke

import (
	"context"
	"fmt"
	"sync"

	"github.com/convoke/convoke/agent"
	"github.com/convoke/convoke/core"
	"github.com/convoke/convoke/delegate"
	"github.com/convoke/convoke/gateway"
	"github.com/convoke/convoke/logging"
	"github.com/convoke/convoke/memory"
	"github.com/convoke/convoke/router"
	"github.com/convoke/convoke/skill"
	"github.com/convoke/convoke/store"
)

// Options configures the Convoke instance.
type Options struct {
	// Store holds conversation state, registered skills and delegation
	// domains (defaults to the in-memory implementation).
	Store store.Store

	// RouterConfig and Backends build the completion path. Ignored when
	// Completer is set.
	RouterConfig *router.Config
	Backends     []gateway.Backend

	// Tracker overrides the router's rate tracker (defaults to in-memory;
	// production deployments use the Redis tracker).
	Tracker router.RateTracker

	// Completer overrides the router+gateway completion path entirely.
	Completer gateway.Completer

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Convoke is the high-level façade aggregating the store, the completion
// path, the skill framework, the memory manager and the registered agents.
type Convoke struct {
	opts      Options
	completer gateway.Completer
	rt        *router.Router
	registry  *skill.Registry
	executor  *skill.Executor
	memory    *memory.Manager
	coord     *delegate.Coordinator
	logger    logging.Logger

	mu     sync.RWMutex
	agents map[string]*agent.Agent
}

// New creates a Convoke instance with optional overrides. Any unset service
// is initialized with an in-memory implementation; a completion path must be
// supplied either as a Completer or as a RouterConfig with backends.
func New(optFns ...func(o *Options)) (*Convoke, error) {
	opts := Options{
		Store:  store.NewInMemoryStore(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	completer := opts.Completer
	var rt *router.Router
	if completer == nil {
		if opts.RouterConfig == nil || len(opts.Backends) == 0 {
			return nil, fmt.Errorf("either a Completer or a RouterConfig with backends is required")
		}
		var err error
		rt, err = router.New(opts.RouterConfig, func(o *router.RouterOptions) {
			o.Logger = opts.Logger
			if opts.Tracker != nil {
				o.Tracker = opts.Tracker
			}
		})
		if err != nil {
			return nil, fmt.Errorf("build router: %w", err)
		}
		completer = gateway.New(rt, opts.Backends, func(o *gateway.Options) {
			o.Logger = opts.Logger
		})
	}

	registry := skill.NewRegistry(opts.Store, opts.Logger)
	executor := skill.NewExecutor(registry, opts.Logger)
	mem := memory.NewManager(opts.Store, completer, opts.Logger)
	domains := delegate.NewDomainRegistry(opts.Store, opts.Logger)

	return &Convoke{
		opts:      opts,
		completer: completer,
		rt:        rt,
		registry:  registry,
		executor:  executor,
		memory:    mem,
		coord:     delegate.NewCoordinator(domains, completer, mem, opts.Logger),
		logger:    opts.Logger,
		agents:    map[string]*agent.Agent{},
	}, nil
}

// RegisterSkill adds a skill definition to the registry.
func (c *Convoke) RegisterSkill(ctx context.Context, s *core.Skill) error {
	return c.registry.Register(ctx, s)
}

// Bind attaches an implementation to a registered skill.
func (c *Convoke) Bind(skillID string, impl skill.Implementation) {
	c.executor.Bind(skillID, impl)
}

// RegisterAgent builds an agent from its configuration and makes it
// addressable by ID, including as a delegation target.
func (c *Convoke) RegisterAgent(cfg *core.AgentConfig) (*agent.Agent, error) {
	a, err := agent.New(cfg, c.completer, c.registry, c.executor, c.memory, c.logger)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.agents[cfg.ID] = a
	c.mu.Unlock()
	c.coord.AddAgent(a)
	return a, nil
}

// Agent returns a registered agent.
func (c *Convoke) Agent(id string) (*agent.Agent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.agents[id]
	return a, ok
}

// RegisterDomain maps a delegation domain to an agent.
func (c *Convoke) RegisterDomain(ctx context.Context, d delegate.Domain) error {
	return c.coord.Registry().Register(ctx, d)
}

// Skills lists all registered skill definitions.
func (c *Convoke) Skills(ctx context.Context) ([]*core.Skill, error) {
	return c.registry.List(ctx)
}

// Router returns the underlying router, nil when a custom Completer was
// supplied. Useful for stats and config reloads.
func (c *Convoke) Router() *router.Router { return c.rt }

// ProcessMessage runs one turn against the named agent. Supervisor agents
// route through the delegation coordinator; everyone else runs the state
// machine directly.
func (c *Convoke) ProcessMessage(ctx context.Context, agentID, conversationID, userID, content string) (*core.Message, error) {
	a, ok := c.Agent(agentID)
	if !ok {
		return nil, fmt.Errorf("agent %q is not registered", agentID)
	}
	if conversationID == "" {
		conversationID = core.NewID()
	}
	if a.Config().IsSupervisor {
		return c.coord.HandleTurn(ctx, a, conversationID, userID, content)
	}
	return a.ProcessMessage(ctx, conversationID, userID, content)
}

package delegate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/convoke/convoke/core"
	"github.com/convoke/convoke/gateway"
	"github.com/convoke/convoke/logging"
	"github.com/convoke/convoke/memory"
	"github.com/convoke/convoke/router"
)

// Strategy names how a multi-domain query is coordinated.
type Strategy string

const (
	// StrategySingle delegates to exactly one domain.
	StrategySingle Strategy = "single"
	// StrategySequential runs domains in order, feeding prior answers
	// forward.
	StrategySequential Strategy = "sequential"
	// StrategyParallel is accepted from classification but currently
	// executes as sequential.
	StrategyParallel Strategy = "parallel"
)

// SubAgent is the contract a delegation target must satisfy. agent.Agent
// implements it.
type SubAgent interface {
	ID() string
	Config() *core.AgentConfig
	ProcessMessage(ctx context.Context, conversationID, userID, content string) (*core.Message, error)
}

// classificationSchema is the structured output contract of the complexity
// classification call.
var classificationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"needs_multiple": map[string]any{
			"type":        "boolean",
			"description": "Whether answering requires more than one domain",
		},
		"domains": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "The domains needed to answer, in execution order",
		},
		"strategy": map[string]any{
			"type": "string",
			"enum": []any{"single", "sequential", "parallel"},
		},
		"reason": map[string]any{"type": "string"},
	},
	"required": []any{"needs_multiple", "domains"},
}

type classification struct {
	NeedsMultiple bool
	Domains       []string
	Strategy      Strategy
}

// Coordinator routes a supervisor's turns across domain sub-agents. A turn
// either fans out over several domains sequentially and synthesizes the
// answers, delegates to a single domain by keyword, or falls through to the
// supervisor's own state machine.
type Coordinator struct {
	registry  *DomainRegistry
	completer gateway.Completer
	memory    *memory.Manager
	logger    logging.Logger

	mu     sync.RWMutex
	agents map[string]SubAgent
}

// NewCoordinator creates a Coordinator. The memory manager persists the
// supervisor's own conversation record for delegated turns.
func NewCoordinator(registry *DomainRegistry, completer gateway.Completer, mem *memory.Manager, logger logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Coordinator{
		registry:  registry,
		completer: completer,
		memory:    mem,
		logger:    logger,
		agents:    map[string]SubAgent{},
	}
}

// AddAgent makes an agent available as a delegation target.
func (c *Coordinator) AddAgent(a SubAgent) {
	c.mu.Lock()
	c.agents[a.ID()] = a
	c.mu.Unlock()
}

// Registry returns the underlying domain registry.
func (c *Coordinator) Registry() *DomainRegistry { return c.registry }

// Agent returns a registered delegation target.
func (c *Coordinator) Agent(id string) (SubAgent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.agents[id]
	return a, ok
}

// HandleTurn processes one supervisor turn. Sub-agent answers are recorded
// against the supervisor's own conversation so follow-up turns keep context.
func (c *Coordinator) HandleTurn(ctx context.Context, supervisor SubAgent, conversationID, userID, content string) (*core.Message, error) {
	domains, err := c.registry.All(ctx)
	if err != nil {
		c.logger.Warn("domain registry unavailable, processing directly",
			"agent_id", supervisor.ID(), "error", err)
		return supervisor.ProcessMessage(ctx, conversationID, userID, content)
	}
	if len(domains) == 0 {
		return supervisor.ProcessMessage(ctx, conversationID, userID, content)
	}

	tracker := core.NewFlowTracker()

	cls, err := c.classify(ctx, supervisor, conversationID, content, domains)
	if err != nil {
		c.logger.Warn("complexity classification failed, falling back to keyword delegation",
			"agent_id", supervisor.ID(), "error", err)
	}
	if err == nil {
		tracker.AddNode("delegation_classification", map[string]any{
			"needs_multiple": cls.NeedsMultiple,
			"domains":        cls.Domains,
			"strategy":       string(cls.Strategy),
		})
		if cls.NeedsMultiple {
			if selected := selectDomains(cls.Domains, domains); len(selected) > 1 {
				text := c.coordinate(ctx, supervisor, conversationID, userID, content, selected, tracker)
				return c.recordTurn(ctx, supervisor, conversationID, userID, content, text, tracker)
			}
		}
	}

	// single domain or classification failure: legacy keyword path
	if d, ok := keywordDomain(content, domains); ok {
		if sub, found := c.Agent(d.AgentID); found && len(sub.Config().Skills) >= 1 {
			tracker.AddNode("delegation_decision", map[string]any{"domain": d.Name, "matched": "keyword"})
			if text, err := c.delegateTo(ctx, sub, d, conversationID, userID, content, tracker); err == nil {
				return c.recordTurn(ctx, supervisor, conversationID, userID, content, text, tracker)
			}
		}
	}

	if d, ok, err := c.registry.Get(ctx, "general"); err == nil && ok {
		if sub, found := c.Agent(d.AgentID); found {
			tracker.AddNode("delegation_decision", map[string]any{"domain": "general", "matched": "fallback"})
			if text, err := c.delegateTo(ctx, sub, d, conversationID, userID, content, tracker); err == nil {
				return c.recordTurn(ctx, supervisor, conversationID, userID, content, text, tracker)
			}
		}
	}

	return supervisor.ProcessMessage(ctx, conversationID, userID, content)
}

// classify asks whether the query spans one or several domains.
func (c *Coordinator) classify(ctx context.Context, supervisor SubAgent, conversationID, content string, domains []Domain) (*classification, error) {
	var catalog strings.Builder
	for _, d := range domains {
		fmt.Fprintf(&catalog, "- %s (keywords: %s)\n", d.Name, strings.Join(d.Keywords, ", "))
	}

	callCtx, cancel := context.WithTimeout(ctx, gateway.ShortCallTimeout)
	defer cancel()
	resp, err := c.completer.Complete(callCtx, gateway.Request{
		SystemPrompt: "You classify user queries for a multi-agent system. Decide which specialist domains are needed to answer.",
		Messages: []core.ChatMessage{{
			Role: "user",
			Content: fmt.Sprintf(
				"Available domains:\n%s\nUser query: %s\n\nDoes answering this query need one domain or multiple domains? List the needed domains in execution order and pick a strategy.",
				catalog.String(), content),
		}},
		Temperature:  0.0,
		MaxTokens:    300,
		OutputSchema: classificationSchema,
		Metadata: router.TaskMetadata{
			AgentRole:      supervisor.Config().Role,
			TaskType:       router.TaskDelegation,
			ConversationID: conversationID,
		},
	})
	if err != nil {
		return nil, err
	}

	cls := &classification{Strategy: StrategySingle}
	cls.NeedsMultiple, _ = resp.Structured["needs_multiple"].(bool)
	if raw, ok := resp.Structured["domains"].([]any); ok {
		for _, v := range raw {
			if name, ok := v.(string); ok {
				cls.Domains = append(cls.Domains, name)
			}
		}
	}
	if s, ok := resp.Structured["strategy"].(string); ok && s != "" {
		cls.Strategy = Strategy(s)
	}
	return cls, nil
}

// coordinate runs the selected domains in order. The first domain receives
// the original message; each later domain also sees the answers gathered so
// far. A failed domain contributes an inline error entry instead of aborting
// the rest.
func (c *Coordinator) coordinate(ctx context.Context, supervisor SubAgent, conversationID, userID, content string, selected []Domain, tracker *core.FlowTracker) string {
	type answer struct {
		domain string
		text   string
	}
	var answers []answer

	for i, d := range selected {
		query := content
		if i > 0 {
			var prior strings.Builder
			for _, a := range answers {
				fmt.Fprintf(&prior, "[%s]: %s\n", a.domain, a.text)
			}
			query = fmt.Sprintf("%s\n\nAnswers gathered so far:\n%s", content, prior.String())
		}

		sub, ok := c.Agent(d.AgentID)
		if !ok {
			c.logger.Warn("domain agent not registered", "domain", d.Name, "agent_id", d.AgentID)
			answers = append(answers, answer{domain: d.Name, text: "Error: Could not get response from " + d.Name})
			continue
		}

		text, err := c.delegateTo(ctx, sub, d, conversationID, userID, query, tracker)
		if err != nil {
			answers = append(answers, answer{domain: d.Name, text: "Error: Could not get response from " + d.Name})
			continue
		}
		answers = append(answers, answer{domain: d.Name, text: text})
	}

	var labeled strings.Builder
	for _, a := range answers {
		fmt.Fprintf(&labeled, "[%s]\n%s\n\n", a.domain, a.text)
	}

	tracker.AddNode("synthesis", map[string]any{"domains": len(answers)})

	callCtx, cancel := context.WithTimeout(ctx, gateway.LongCallTimeout)
	defer cancel()
	resp, err := c.completer.Complete(callCtx, gateway.Request{
		SystemPrompt: "You synthesize answers from several specialist agents into one coherent response. Merge, deduplicate and keep the user's question in focus.",
		Messages: []core.ChatMessage{{
			Role: "user",
			Content: fmt.Sprintf("User question: %s\n\nSpecialist answers:\n%s\nProvide one combined response to the user.",
				content, labeled.String()),
		}},
		Temperature: 0.5,
		MaxTokens:   1000,
		Metadata: router.TaskMetadata{
			AgentRole:      supervisor.Config().Role,
			TaskType:       router.TaskDelegation,
			ConversationID: conversationID,
		},
	})
	if err != nil {
		c.logger.Warn("synthesis failed, returning labeled answers",
			"conversation_id", conversationID, "error", err)
		return strings.TrimSpace(labeled.String())
	}
	return resp.Text
}

func (c *Coordinator) delegateTo(ctx context.Context, sub SubAgent, d Domain, conversationID, userID, query string, tracker *core.FlowTracker) (string, error) {
	start := time.Now()
	tracker.AddNode("delegate:"+d.Name, map[string]any{"agent_id": sub.ID()})

	msg, err := sub.ProcessMessage(ctx, conversationID, userID, query)
	logging.Delegation(c.logger, d.Name, sub.ID(), time.Since(start), err)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// recordTurn appends the turn to the supervisor's own conversation record so
// follow-up turns keep context, and returns the supervisor's reply message.
func (c *Coordinator) recordTurn(ctx context.Context, supervisor SubAgent, conversationID, userID, content, responseText string, tracker *core.FlowTracker) (*core.Message, error) {
	state, err := c.memory.LoadState(ctx, supervisor.ID(), conversationID)
	if err != nil {
		c.logger.Warn("supervisor state load failed", "agent_id", supervisor.ID(), "error", err)
		state = nil
	}
	if state == nil {
		state = core.NewConversationState(supervisor.ID(), conversationID, userID)
		if prompt := supervisor.Config().Persona.SystemPrompt; prompt != "" {
			state.AddMessage(core.NewSystemMessage(prompt))
		}
	}

	state.AddMessage(core.NewUserMessage(content))
	reply := core.NewAgentMessage(responseText)
	reply.Flow = tracker.Flow()
	state.AddMessage(reply)

	c.memory.Update(ctx, state, supervisor.Config().Memory)
	if err := c.memory.SaveState(ctx, state); err != nil {
		c.logger.Warn("supervisor state save failed", "agent_id", supervisor.ID(), "error", err)
	}

	msg := &state.Messages[len(state.Messages)-1]
	return msg, nil
}

// selectDomains keeps the classified domain names that are actually
// registered, preserving classification order.
func selectDomains(names []string, domains []Domain) []Domain {
	byName := make(map[string]Domain, len(domains))
	for _, d := range domains {
		byName[strings.ToLower(d.Name)] = d
	}
	var out []Domain
	seen := map[string]bool{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if seen[key] {
			continue
		}
		if d, ok := byName[key]; ok {
			out = append(out, d)
			seen[key] = true
		}
	}
	return out
}

// keywordDomain returns the first domain (in registry order) whose keyword
// appears in the message.
func keywordDomain(content string, domains []Domain) (Domain, bool) {
	lower := strings.ToLower(content)
	for _, d := range domains {
		for _, k := range d.Keywords {
			if k != "" && strings.Contains(lower, k) {
				return d, true
			}
		}
	}
	return Domain{}, false
}

package agent

import (
	"context"
	"fmt"

	"github.com/convoke/convoke/core"
	"github.com/convoke/convoke/gateway"
	"github.com/convoke/convoke/logging"
	"github.com/convoke/convoke/memory"
	"github.com/convoke/convoke/skill"
)

// Agent is one configured conversational agent: a persona, a skill set and a
// memory policy, driven turn by turn through the state machine.
type Agent struct {
	cfg    *core.AgentConfig
	runner *Runner
	memory *memory.Manager
	logger logging.Logger
}

// New creates an Agent from its configuration and shared infrastructure.
func New(cfg *core.AgentConfig, completer gateway.Completer, registry *skill.Registry, executor *skill.Executor, mem *memory.Manager, logger logging.Logger) (*Agent, error) {
	if cfg == nil || cfg.ID == "" {
		return nil, fmt.Errorf("agent config must carry an ID")
	}
	if mem == nil {
		return nil, fmt.Errorf("agent %q requires a memory manager", cfg.ID)
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Agent{
		cfg:    cfg,
		runner: NewRunner(completer, registry, executor, logger),
		memory: mem,
		logger: logger,
	}, nil
}

// ID returns the agent's identifier.
func (a *Agent) ID() string { return a.cfg.ID }

// Config returns the agent's configuration.
func (a *Agent) Config() *core.AgentConfig { return a.cfg }

// ProcessMessage runs one full turn: load or create the conversation state,
// record the user message, run the state machine, maintain memory and persist.
// The returned message carries the turn's flow trace.
func (a *Agent) ProcessMessage(ctx context.Context, conversationID, userID, content string) (*core.Message, error) {
	state, err := a.memory.LoadState(ctx, a.cfg.ID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation state: %w", err)
	}
	if state == nil {
		state = core.NewConversationState(a.cfg.ID, conversationID, userID)
		if prompt := a.cfg.Persona.SystemPrompt; prompt != "" {
			state.AddMessage(core.NewSystemMessage(prompt))
		}
		a.logger.Info("starting conversation",
			"agent_id", a.cfg.ID, "conversation_id", conversationID, "user_id", userID)
	}
	state.Err = ""

	state.AddMessage(core.NewUserMessage(content))
	a.memory.Update(ctx, state, a.cfg.Memory)
	if err := a.memory.SaveState(ctx, state); err != nil {
		a.logger.Warn("pre-turn state save failed", "agent_id", a.cfg.ID, "error", err)
	}

	tracker := core.NewFlowTracker()
	msg := a.runner.RunTurn(ctx, a.cfg, state, tracker)

	a.memory.Update(ctx, state, a.cfg.Memory)
	if err := a.memory.SaveState(ctx, state); err != nil {
		a.logger.Warn("post-turn state save failed", "agent_id", a.cfg.ID, "error", err)
	}

	return msg, nil
}

// State loads the agent's current state for a conversation, nil when none
// exists yet.
func (a *Agent) State(ctx context.Context, conversationID string) (*core.ConversationState, error) {
	return a.memory.LoadState(ctx, a.cfg.ID, conversationID)
}

// Reset deletes the conversation's persisted state.
func (a *Agent) Reset(ctx context.Context, conversationID string) error {
	return a.memory.DeleteState(ctx, a.cfg.ID, conversationID)
}

package agent

import (
	"context"
	"fmt"

	"github.com/convoke/convoke/core"
	"github.com/convoke/convoke/gateway"
	"github.com/convoke/convoke/logging"
	"github.com/convoke/convoke/router"
	"github.com/convoke/convoke/skill"
)

// Canned replies used when a node's completion call fails. Turns degrade to
// these instead of surfacing provider errors to the user.
const (
	apologyReasoning = "I'm having trouble thinking right now. Could you try again later?"
	apologyResponse  = "I apologize, but I'm having trouble generating a response right now. Could you try again?"
)

// Runner drives one turn of the state machine for an agent.
type Runner struct {
	completer gateway.Completer
	registry  *skill.Registry
	executor  *skill.Executor
	matcher   *skill.Matcher
	logger    logging.Logger
}

// NewRunner creates a Runner.
func NewRunner(completer gateway.Completer, registry *skill.Registry, executor *skill.Executor, logger logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Runner{
		completer: completer,
		registry:  registry,
		executor:  executor,
		matcher:   skill.NewMatcher(logger),
		logger:    logger,
	}
}

// turn carries per-turn scratch data between nodes.
type turn struct {
	cfg            *core.AgentConfig
	state          *core.ConversationState
	tracker        *core.FlowTracker
	directResponse string
}

// RunTurn executes the state machine until StateEnd, recording each node on
// the tracker. It always leaves an agent message appended to the state.
func (r *Runner) RunTurn(ctx context.Context, cfg *core.AgentConfig, state *core.ConversationState, tracker *core.FlowTracker) *core.Message {
	if tracker == nil {
		tracker = core.NewFlowTracker()
	}
	state.CurrentSkill = nil
	t := &turn{cfg: cfg, state: state, tracker: tracker}

	current := StateReasoning
	for current != StateEnd {
		switch current {
		case StateReasoning:
			r.reasoningNode(ctx, t)
		case StateSkillExecution:
			r.skillNode(ctx, t)
		case StateResponseFormulation:
			r.responseNode(ctx, t)
		}
		state.CurrentNode = string(current)
		current = Transition(current, state)
	}

	msg := &state.Messages[len(state.Messages)-1]
	msg.Flow = tracker.Flow()
	return msg
}

func (r *Runner) availableSkills(ctx context.Context, cfg *core.AgentConfig) []*core.Skill {
	var skills []*core.Skill
	for _, id := range cfg.Skills {
		sk, err := r.registry.Get(ctx, id)
		if err != nil {
			r.logger.Warn("configured skill unavailable", "agent_id", cfg.ID, "skill_id", id, "error", err)
			continue
		}
		skills = append(skills, sk)
	}
	return skills
}

// reasoningNode decides between a skill invocation and a direct reply. The
// invocation pattern matcher runs first as the deterministic fast path; only
// when nothing matches does the node spend a structured completion call.
func (r *Runner) reasoningNode(ctx context.Context, t *turn) {
	skills := r.availableSkills(ctx, t.cfg)
	t.tracker.AddNode(string(StateReasoning), map[string]any{"skills_available": len(skills)})

	latest := t.state.LatestUserMessage()
	if latest != nil && len(skills) > 0 {
		if match := r.matcher.Match(latest.Content, skills); match != nil {
			params := map[string]any{}
			for k, v := range t.cfg.DefaultSkillParams[match.Skill.ID] {
				params[k] = v
			}
			for k, v := range match.Parameters {
				params[k] = v
			}
			t.state.CurrentSkill = &core.SkillExecution{
				SkillID:        match.Skill.ID,
				Parameters:     params,
				AgentID:        t.state.AgentID,
				ConversationID: t.state.ConversationID,
				Reason:         fmt.Sprintf("invocation pattern %q matched", match.Pattern.Pattern),
			}
			t.state.AddThought(fmt.Sprintf(
				"The message matches the %q invocation pattern for skill %s; executing it directly.",
				match.Pattern.Pattern, match.Skill.ID))
			return
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, gateway.LongCallTimeout)
	defer cancel()
	resp, err := r.completer.Complete(callCtx, gateway.Request{
		Messages:     chatHistory(t.state),
		SystemPrompt: buildReasoningPrompt(t.cfg, t.state, skills),
		Temperature:  0.7,
		MaxTokens:    2000,
		OutputSchema: reasoningSchema,
		Metadata: router.TaskMetadata{
			AgentRole:      t.cfg.Role,
			TaskType:       router.TaskReasoning,
			ConversationID: t.state.ConversationID,
			UserID:         t.state.UserID,
		},
	})
	if err != nil {
		r.logger.Error("reasoning completion failed", "agent_id", t.cfg.ID, "error", err)
		t.state.Err = err.Error()
		t.state.AddThought("Error in reasoning")
		t.directResponse = apologyReasoning
		return
	}

	out := resp.Structured
	if thoughts, ok := out["thoughts"].(string); ok && thoughts != "" {
		t.state.AddThought(thoughts)
	}
	shouldRespondDirectly, _ := out["should_respond_directly"].(bool)
	if response, ok := out["response_to_user"].(string); ok && response != "" {
		t.directResponse = response
	}

	if choice, ok := out["skill_to_use"].(map[string]any); ok && !shouldRespondDirectly {
		skillID, _ := choice["skill_id"].(string)
		params, _ := choice["parameters"].(map[string]any)
		reason, _ := choice["reason"].(string)
		if skillID != "" {
			t.state.CurrentSkill = &core.SkillExecution{
				SkillID:        skillID,
				Parameters:     params,
				AgentID:        t.state.AgentID,
				ConversationID: t.state.ConversationID,
				Reason:         reason,
			}
			t.directResponse = ""
		}
	}
}

// skillNode dispatches the selected skill through the executor and records a
// human-readable observation. Failures become error results, never raised
// errors.
func (r *Runner) skillNode(ctx context.Context, t *turn) {
	if t.state.CurrentSkill == nil {
		t.state.Err = "no skill to execute"
		result := core.NewSkillError("", "no skill to execute in the current state")
		t.state.AddSkillResult(result)
		t.tracker.AddNode(string(StateSkillExecution), map[string]any{"error": result.Error})
		return
	}

	exec := *t.state.CurrentSkill
	t.tracker.AddNode(string(StateSkillExecution), map[string]any{"skill_id": exec.SkillID})

	result := r.executor.Execute(ctx, exec)
	t.state.AddSkillResult(result)

	if result.OK() {
		observation := fmt.Sprintf("Executed skill %s successfully.", exec.SkillID)
		if payload, ok := result.Result.(map[string]any); ok {
			if summary, ok := payload["summary"].(string); ok {
				observation += " Summary: " + summary
			} else if items, ok := payload["results"].([]any); ok {
				observation += fmt.Sprintf(" Found %d results.", len(items))
			}
		}
		t.state.AddObservation(observation)
	} else {
		t.state.AddObservation(fmt.Sprintf("Skill %s execution failed: %s", exec.SkillID, result.Error))
	}
}

// responseNode produces the turn's user-facing message: the reasoning node's
// direct response verbatim when present, otherwise one synthesis completion.
func (r *Runner) responseNode(ctx context.Context, t *turn) {
	t.tracker.AddNode(string(StateResponseFormulation), nil)

	content := t.directResponse
	if content == "" {
		callCtx, cancel := context.WithTimeout(ctx, gateway.LongCallTimeout)
		defer cancel()
		resp, err := r.completer.Complete(callCtx, gateway.Request{
			Messages:     []core.ChatMessage{{Role: "user", Content: buildResponsePrompt(t.state)}},
			SystemPrompt: buildResponseSystemPrompt(t.cfg),
			Temperature:  0.7,
			MaxTokens:    1000,
			Metadata: router.TaskMetadata{
				AgentRole:      t.cfg.Role,
				TaskType:       router.TaskResponseFormulation,
				ConversationID: t.state.ConversationID,
				UserID:         t.state.UserID,
			},
		})
		if err != nil {
			r.logger.Error("response completion failed", "agent_id", t.cfg.ID, "error", err)
			t.state.Err = err.Error()
			content = apologyResponse
		} else {
			content = resp.Text
		}
	}

	t.state.AddMessage(core.NewAgentMessage(content))
}

// chatHistory converts the non-system conversation messages to the wire
// shape; the system prompt is carried separately.
func chatHistory(state *core.ConversationState) []core.ChatMessage {
	var out []core.ChatMessage
	for _, m := range state.Messages {
		if m.Role == core.RoleSystem {
			continue
		}
		out = append(out, m.ToChat())
	}
	return out
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoke/convoke/core"
	"github.com/convoke/convoke/gateway"
	"github.com/convoke/convoke/memory"
	"github.com/convoke/convoke/skill"
	"github.com/convoke/convoke/store"
)

func lookupSkill() *core.Skill {
	return &core.Skill{
		ID:          "lookup",
		Name:        "Lookup",
		Description: "Looks up a term in the knowledge base.",
		Parameters: []core.SkillParameter{
			{Name: "query", Type: core.ParamString, Description: "The term to look up", Required: true},
			{Name: "max_results", Type: core.ParamInteger, Description: "Result cap", Required: false, Default: 5},
		},
		InvocationPatterns: []core.InvocationPattern{
			{
				Pattern:  "lookup",
				Type:     core.PatternKeyword,
				Priority: 5,
				ParameterExtraction: map[string]core.ExtractionRule{
					"query": {Source: core.ExtractKeywordAfter, Keyword: "lookup"},
				},
			},
		},
	}
}

func newTestRunner(t *testing.T, completer gateway.Completer, skills ...*core.Skill) (*Runner, *skill.Executor) {
	t.Helper()
	registry := skill.NewRegistry(store.NewInMemoryStore(), nil)
	for _, sk := range skills {
		require.NoError(t, registry.Register(context.Background(), sk))
	}
	executor := skill.NewExecutor(registry, nil)
	return NewRunner(completer, registry, executor, nil), executor
}

func newTurnState(content string) *core.ConversationState {
	state := core.NewConversationState("helper", "conv1", "user1")
	state.AddMessage(core.NewUserMessage(content))
	return state
}

func flowNodeNames(flow *core.Flow) []string {
	var names []string
	for _, n := range flow.Nodes {
		names = append(names, n.Name)
	}
	return names
}

func TestRunTurn_DirectResponse(t *testing.T) {
	completer := &gateway.MockCompleter{
		Responses: []*gateway.Response{{
			Structured: map[string]any{
				"thoughts":                "A greeting, no skill needed.",
				"should_respond_directly": true,
				"response_to_user":        "Hello! How can I help?",
			},
		}},
	}
	runner, _ := newTestRunner(t, completer)

	cfg := &core.AgentConfig{ID: "helper", Persona: core.Persona{Name: "Helper"}}
	state := newTurnState("Hello")
	msg := runner.RunTurn(context.Background(), cfg, state, nil)

	assert.Equal(t, core.RoleAgent, msg.Role)
	assert.Equal(t, "Hello! How can I help?", msg.Content)
	assert.Nil(t, state.CurrentSkill)
	assert.Contains(t, state.Thoughts, "A greeting, no skill needed.")

	// one reasoning call, no synthesis call
	assert.Len(t, completer.Calls, 1)
	require.NotNil(t, msg.Flow)
	names := flowNodeNames(msg.Flow)
	assert.Equal(t, []string{"reasoning", "response_formulation"}, names)
}

func TestRunTurn_ModelSelectedSkill(t *testing.T) {
	completer := &gateway.MockCompleter{
		Fn: func(ctx context.Context, req gateway.Request) (*gateway.Response, error) {
			if req.OutputSchema != nil {
				return &gateway.Response{Structured: map[string]any{
					"thoughts":                "The user wants a fact from the knowledge base.",
					"should_respond_directly": false,
					"skill_to_use": map[string]any{
						"skill_id":   "lookup",
						"parameters": map[string]any{"query": "gophers"},
						"reason":     "knowledge base question",
					},
				}}, nil
			}
			return &gateway.Response{Text: "Gophers are burrowing rodents."}, nil
		},
	}
	runner, executor := newTestRunner(t, completer, lookupSkill())
	executor.Bind("lookup", func(ctx context.Context, params map[string]any, sk *core.Skill, agentID, conversationID string) (any, error) {
		return map[string]any{"results": []any{
			map[string]any{"title": "Gopher", "link": "https://example.com", "snippet": "a rodent"},
		}}, nil
	})

	cfg := &core.AgentConfig{ID: "helper", Persona: core.Persona{Name: "Helper"}, Skills: []string{"lookup"}}
	state := newTurnState("Tell me a fact about gophers")
	msg := runner.RunTurn(context.Background(), cfg, state, nil)

	assert.Equal(t, "Gophers are burrowing rodents.", msg.Content)
	require.NotNil(t, state.LatestSkillResult())
	assert.True(t, state.LatestSkillResult().OK())
	assert.Contains(t, state.Observations, "Executed skill lookup successfully. Found 1 results.")
	assert.Equal(t, []string{"reasoning", "skill_execution", "response_formulation"}, flowNodeNames(msg.Flow))
	assert.Len(t, completer.Calls, 2)
}

func TestRunTurn_PatternFastPathSkipsReasoningCall(t *testing.T) {
	completer := &gateway.MockCompleter{
		Responses: []*gateway.Response{{Text: "Here is what I found."}},
	}
	runner, executor := newTestRunner(t, completer, lookupSkill())

	var gotParams map[string]any
	executor.Bind("lookup", func(ctx context.Context, params map[string]any, sk *core.Skill, agentID, conversationID string) (any, error) {
		gotParams = params
		return map[string]any{"results": []any{}}, nil
	})

	cfg := &core.AgentConfig{
		ID:      "helper",
		Persona: core.Persona{Name: "Helper"},
		Skills:  []string{"lookup"},
		DefaultSkillParams: map[string]map[string]any{
			"lookup": {"max_results": 3},
		},
	}
	state := newTurnState("lookup weather in Oslo")
	msg := runner.RunTurn(context.Background(), cfg, state, nil)

	// only the response formulation call hit the completer
	require.Len(t, completer.Calls, 1)
	assert.Nil(t, completer.Calls[0].OutputSchema)
	assert.Equal(t, "Here is what I found.", msg.Content)
	assert.Equal(t, "weather in Oslo", gotParams["query"])
	assert.Equal(t, 3, gotParams["max_results"])
}

func TestRunTurn_ExtractedParamsOverrideDefaults(t *testing.T) {
	completer := &gateway.MockCompleter{}
	sk := lookupSkill()
	sk.InvocationPatterns[0].ParameterExtraction["max_results"] = core.ExtractionRule{
		Source: core.ExtractConstant, Value: 1,
	}
	runner, executor := newTestRunner(t, completer, sk)

	var gotParams map[string]any
	executor.Bind("lookup", func(ctx context.Context, params map[string]any, sk *core.Skill, agentID, conversationID string) (any, error) {
		gotParams = params
		return "ok", nil
	})

	cfg := &core.AgentConfig{
		ID:     "helper",
		Skills: []string{"lookup"},
		DefaultSkillParams: map[string]map[string]any{
			"lookup": {"max_results": 9},
		},
	}
	runner.RunTurn(context.Background(), cfg, newTurnState("lookup gophers"), nil)

	assert.Equal(t, 1, gotParams["max_results"])
}

func TestRunTurn_ReasoningFailureDegrades(t *testing.T) {
	completer := &gateway.MockCompleter{Err: errors.New("all endpoints down")}
	runner, _ := newTestRunner(t, completer)

	cfg := &core.AgentConfig{ID: "helper", Persona: core.Persona{Name: "Helper"}}
	state := newTurnState("Hello")
	msg := runner.RunTurn(context.Background(), cfg, state, nil)

	assert.Equal(t, "I'm having trouble thinking right now. Could you try again later?", msg.Content)
	assert.NotEmpty(t, state.Err)
	// the canned reply short-circuits the synthesis call
	assert.Len(t, completer.Calls, 1)
}

func TestRunTurn_ResponseFailureDegrades(t *testing.T) {
	completer := &gateway.MockCompleter{
		Fn: func(ctx context.Context, req gateway.Request) (*gateway.Response, error) {
			if req.OutputSchema != nil {
				return &gateway.Response{Structured: map[string]any{
					"thoughts":                "Needs synthesis.",
					"should_respond_directly": false,
				}}, nil
			}
			return nil, errors.New("provider outage")
		},
	}
	runner, _ := newTestRunner(t, completer)

	cfg := &core.AgentConfig{ID: "helper", Persona: core.Persona{Name: "Helper"}}
	state := newTurnState("Explain something")
	msg := runner.RunTurn(context.Background(), cfg, state, nil)

	assert.Equal(t, "I apologize, but I'm having trouble generating a response right now. Could you try again?", msg.Content)
	assert.NotEmpty(t, state.Err)
}

func TestRunTurn_SkillFailureStillResponds(t *testing.T) {
	completer := &gateway.MockCompleter{
		Fn: func(ctx context.Context, req gateway.Request) (*gateway.Response, error) {
			if req.OutputSchema != nil {
				return &gateway.Response{Structured: map[string]any{
					"thoughts":                "Try the lookup skill.",
					"should_respond_directly": false,
					"skill_to_use": map[string]any{
						"skill_id":   "lookup",
						"parameters": map[string]any{"query": "gophers"},
						"reason":     "needs data",
					},
				}}, nil
			}
			return &gateway.Response{Text: "I could not retrieve that right now."}, nil
		},
	}
	runner, executor := newTestRunner(t, completer, lookupSkill())
	executor.Bind("lookup", func(ctx context.Context, params map[string]any, sk *core.Skill, agentID, conversationID string) (any, error) {
		return nil, errors.New("upstream timeout")
	})

	cfg := &core.AgentConfig{ID: "helper", Skills: []string{"lookup"}}
	state := newTurnState("search for gophers please")
	msg := runner.RunTurn(context.Background(), cfg, state, nil)

	require.NotNil(t, state.LatestSkillResult())
	assert.False(t, state.LatestSkillResult().OK())
	assert.Contains(t, state.Observations, "Skill lookup execution failed: upstream timeout")
	assert.Equal(t, "I could not retrieve that right now.", msg.Content)
}

func TestAgent_ProcessMessagePersistsState(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()
	completer := &gateway.MockCompleter{
		Responses: []*gateway.Response{{
			Structured: map[string]any{
				"thoughts":                "Just a greeting.",
				"should_respond_directly": true,
				"response_to_user":        "Hi! What can I do for you?",
			},
		}},
	}
	registry := skill.NewRegistry(s, nil)
	executor := skill.NewExecutor(registry, nil)
	mem := memory.NewManager(s, completer, nil)

	cfg := &core.AgentConfig{
		ID:      "concierge",
		Persona: core.Persona{Name: "Concierge", SystemPrompt: "You are a concierge."},
		Memory:  core.DefaultMemoryPolicy(),
	}
	ag, err := New(cfg, completer, registry, executor, mem, nil)
	require.NoError(t, err)

	msg, err := ag.ProcessMessage(ctx, "conv42", "user1", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi! What can I do for you?", msg.Content)
	require.NotNil(t, msg.Flow)
	assert.NotEmpty(t, msg.Flow.Nodes)

	state, err := ag.State(ctx, "conv42")
	require.NoError(t, err)
	require.NotNil(t, state)
	// system prompt + user + agent
	require.Len(t, state.Messages, 3)
	assert.Equal(t, core.RoleSystem, state.Messages[0].Role)
	assert.Equal(t, "Hello", state.Messages[1].Content)
	assert.Equal(t, "Hi! What can I do for you?", state.Messages[2].Content)

	require.NoError(t, ag.Reset(ctx, "conv42"))
	state, err = ag.State(ctx, "conv42")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestAgent_MultiTurnKeepsHistory(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()
	turn := 0
	completer := &gateway.MockCompleter{
		Fn: func(ctx context.Context, req gateway.Request) (*gateway.Response, error) {
			// memory maintenance calls are plain-text; only the reasoning
			// node sends a schema
			if req.OutputSchema == nil {
				return &gateway.Response{Text: ""}, nil
			}
			turn++
			return &gateway.Response{Structured: map[string]any{
				"thoughts":                "Direct answer.",
				"should_respond_directly": true,
				"response_to_user":        fmt.Sprintf("answer %d", turn),
			}}, nil
		},
	}
	registry := skill.NewRegistry(s, nil)
	executor := skill.NewExecutor(registry, nil)
	mem := memory.NewManager(s, completer, nil)

	cfg := &core.AgentConfig{ID: "concierge", Persona: core.Persona{Name: "Concierge"}, Memory: core.DefaultMemoryPolicy()}
	ag, err := New(cfg, completer, registry, executor, mem, nil)
	require.NoError(t, err)

	_, err = ag.ProcessMessage(ctx, "conv1", "user1", "first question")
	require.NoError(t, err)
	msg, err := ag.ProcessMessage(ctx, "conv1", "user1", "second question")
	require.NoError(t, err)
	assert.Equal(t, "answer 2", msg.Content)

	state, err := ag.State(ctx, "conv1")
	require.NoError(t, err)
	require.NotNil(t, state)
	// two user/agent pairs, no system prompt configured
	assert.Len(t, state.Messages, 4)
}

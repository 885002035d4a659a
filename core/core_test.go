package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMessage(t *testing.T) {
	m := NewUserMessage("hello")
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, RoleUser, m.Role)
	assert.Equal(t, "hello", m.Content)
	assert.False(t, m.Timestamp.IsZero())
}

func TestToChat(t *testing.T) {
	assert.Equal(t, "assistant", NewAgentMessage("x").ToChat().Role)
	assert.Equal(t, "user", NewUserMessage("x").ToChat().Role)
	assert.Equal(t, "system", NewSystemMessage("x").ToChat().Role)
}

func TestConversationStateAccessors(t *testing.T) {
	s := NewConversationState("agent-1", "conv-1", "user-1")
	assert.Nil(t, s.LatestUserMessage())
	assert.Nil(t, s.LatestSkillResult())

	s.AddMessage(NewSystemMessage("persona"))
	s.AddMessage(NewUserMessage("first"))
	s.AddMessage(NewAgentMessage("reply"))
	s.AddMessage(NewUserMessage("second"))

	latest := s.LatestUserMessage()
	assert.NotNil(t, latest)
	assert.Equal(t, "second", latest.Content)

	recent := s.RecentMessages(2, true)
	assert.Len(t, recent, 2)
	assert.Equal(t, "reply", recent[0].Content)
	assert.Equal(t, "second", recent[1].Content)

	r := NewSkillResult("web-search", map[string]any{"results": []any{}})
	s.AddSkillResult(r)
	assert.Same(t, r, s.LatestSkillResult())
}

func TestMemoryClone(t *testing.T) {
	m := NewMemory()
	m.KeyFacts = []string{"Alice is an engineer"}
	m.LongTerm["conv-1"] = true

	c := m.Clone()
	c.KeyFacts = append(c.KeyFacts, "Bob lives in Berlin")
	c.LongTerm["conv-2"] = true

	assert.Len(t, m.KeyFacts, 1)
	assert.Len(t, m.LongTerm, 1)
}

func TestFlowTracker(t *testing.T) {
	ft := NewFlowTracker()
	a := ft.AddNode("reasoning", nil)
	b := ft.AddNode("skill_execution", map[string]any{"skill_id": "web-search"})
	ft.AddEdge(a, b, "skill_selected")

	flow := ft.Flow()
	assert.Len(t, flow.Nodes, 2)
	// implicit edge from AddNode plus the labeled one
	assert.Len(t, flow.Edges, 2)
	assert.Equal(t, "skill_selected", flow.Edges[1].Label)
}

func TestSkillResultStatus(t *testing.T) {
	ok := NewSkillResult("s", "payload")
	assert.True(t, ok.OK())
	bad := NewSkillError("s", "boom")
	assert.False(t, bad.OK())
	assert.Equal(t, "boom", bad.Error)
}

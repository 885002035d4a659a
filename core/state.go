package core

import "time"

// ConversationState is the per-conversation working record for one agent,
// keyed by (agent ID, conversation ID). It is loaded at the start of a turn,
// mutated in place while the turn runs, and written back once at the end.
// Concurrent turns against the same conversation race with last-write-wins
// semantics; see the package documentation of agent for the tradeoff.
type ConversationState struct {
	AgentID        string `json:"agent_id"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id,omitempty"`

	Messages []Message `json:"messages"`
	Memory   *Memory   `json:"memory"`

	// CurrentSkill is the skill selected by the reasoning node for this
	// turn, nil when the agent responds directly.
	CurrentSkill *SkillExecution `json:"current_skill,omitempty"`
	SkillResults []*SkillResult  `json:"skill_results,omitempty"`

	Thoughts     []string `json:"thoughts,omitempty"`
	Observations []string `json:"observations,omitempty"`
	Plan         []string `json:"plan,omitempty"`

	// CurrentNode names the state-machine node most recently executed,
	// kept for observability only.
	CurrentNode string `json:"current_node,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Err carries a turn-level failure note. It never aborts persistence.
	Err string `json:"error,omitempty"`
}

// NewConversationState creates an empty state for the given keys.
func NewConversationState(agentID, conversationID, userID string) *ConversationState {
	now := time.Now().UTC()
	return &ConversationState{
		AgentID:        agentID,
		ConversationID: conversationID,
		UserID:         userID,
		Memory:         NewMemory(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AddMessage appends a message and bumps the update timestamp.
func (s *ConversationState) AddMessage(m Message) {
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = time.Now().UTC()
}

// AddThought appends a reasoning thought.
func (s *ConversationState) AddThought(t string) {
	s.Thoughts = append(s.Thoughts, t)
}

// AddObservation appends an observation about a skill outcome.
func (s *ConversationState) AddObservation(o string) {
	s.Observations = append(s.Observations, o)
}

// AddSkillResult records a skill outcome. Callers must only reach this via
// the executor path so every result is preceded by its SkillExecution within
// the same turn.
func (s *ConversationState) AddSkillResult(r *SkillResult) {
	s.SkillResults = append(s.SkillResults, r)
	s.UpdatedAt = time.Now().UTC()
}

// LatestUserMessage returns the most recent user message, or nil.
func (s *ConversationState) LatestUserMessage() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return &s.Messages[i]
		}
	}
	return nil
}

// LatestSkillResult returns the most recent skill result, or nil.
func (s *ConversationState) LatestSkillResult() *SkillResult {
	if len(s.SkillResults) == 0 {
		return nil
	}
	return s.SkillResults[len(s.SkillResults)-1]
}

// RecentMessages returns up to n most recent messages, excluding system
// messages when skipSystem is true.
func (s *ConversationState) RecentMessages(n int, skipSystem bool) []Message {
	var out []Message
	for i := len(s.Messages) - 1; i >= 0 && len(out) < n; i-- {
		if skipSystem && s.Messages[i].Role == RoleSystem {
			continue
		}
		out = append(out, s.Messages[i])
	}
	// restore chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

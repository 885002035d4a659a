package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a Message.
type Role string

const (
	// RoleUser marks a message authored by the end user.
	RoleUser Role = "user"
	// RoleAgent marks a message authored by an agent.
	RoleAgent Role = "agent"
	// RoleSystem marks a synthetic message carrying persona or control text.
	RoleSystem Role = "system"
)

// Message is one entry in a conversation. After creation it should be treated
// as immutable; a turn appends new messages rather than editing old ones.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Flow      *Flow          `json:"flow,omitempty"`
}

// NewMessage creates a message with a fresh ID and UTC timestamp.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserMessage creates a user-authored message.
func NewUserMessage(content string) Message { return NewMessage(RoleUser, content) }

// NewAgentMessage creates an agent-authored message.
func NewAgentMessage(content string) Message { return NewMessage(RoleAgent, content) }

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message { return NewMessage(RoleSystem, content) }

// NewID generates a new unique identifier for messages, skill results and
// flow nodes.
//
// Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }

// ChatMessage is the flat role/content shape handed to completion backends.
// Agent-authored messages map to the assistant role on the wire.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToChat converts a conversation message to the completion wire shape.
func (m Message) ToChat() ChatMessage {
	role := string(m.Role)
	if m.Role == RoleAgent {
		role = "assistant"
	}
	return ChatMessage{Role: role, Content: m.Content}
}

package core

// KeyFactCap bounds the deduplicated key-fact list kept per conversation.
// When trimming, entity-bearing facts are retained preferentially.
const KeyFactCap = 30

// Memory holds what an agent remembers about a conversation beyond the raw
// message list: cross-conversation long-term notes, a short-lived working
// snapshot, an optional rolling summary, and the capped key-fact list.
// Memory is mutated by the memory.Manager only.
type Memory struct {
	// LongTerm stores cross-conversation notes keyed by conversation ID.
	LongTerm map[string]any `json:"long_term,omitempty"`
	// Working is a per-turn snapshot of recent messages and observations.
	Working map[string]any `json:"working,omitempty"`
	// ConversationSummary is a rolling summary of older messages. Later
	// segments are appended under a "Continued:" marker.
	ConversationSummary string `json:"conversation_summary,omitempty"`
	// KeyFacts is a deduplicated list of standalone factual statements,
	// never longer than KeyFactCap entries.
	KeyFacts []string `json:"key_facts,omitempty"`
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{
		LongTerm: map[string]any{},
		Working:  map[string]any{},
	}
}

// Clone returns a deep copy so a snapshot can be handed out without exposing
// the manager's internal maps.
func (m *Memory) Clone() *Memory {
	if m == nil {
		return NewMemory()
	}
	c := &Memory{
		LongTerm:            make(map[string]any, len(m.LongTerm)),
		Working:             make(map[string]any, len(m.Working)),
		ConversationSummary: m.ConversationSummary,
		KeyFacts:            append([]string(nil), m.KeyFacts...),
	}
	for k, v := range m.LongTerm {
		c.LongTerm[k] = v
	}
	for k, v := range m.Working {
		c.Working[k] = v
	}
	return c
}

// MemoryPolicy controls how the memory manager maintains a conversation.
type MemoryPolicy struct {
	// MaxMessages is the advisory ceiling on message history. The manager
	// does not trim to it; summarization keeps old context compact instead.
	MaxMessages int `json:"max_messages" yaml:"max_messages"`
	// SummarizeAfter is the message-count threshold that triggers
	// summarization, then re-triggers on every exact multiple.
	SummarizeAfter int `json:"summarize_after" yaml:"summarize_after"`
	// LongTermEnabled records conversation IDs in long-term memory.
	LongTermEnabled bool `json:"long_term_enabled" yaml:"long_term_enabled"`
	// KeyFactExtraction enables the key-fact extraction cadence.
	KeyFactExtraction bool `json:"key_fact_extraction" yaml:"key_fact_extraction"`
}

// DefaultMemoryPolicy returns the standard policy used when an agent config
// does not override it.
func DefaultMemoryPolicy() MemoryPolicy {
	return MemoryPolicy{
		MaxMessages:       50,
		SummarizeAfter:    20,
		LongTermEnabled:   true,
		KeyFactExtraction: true,
	}
}

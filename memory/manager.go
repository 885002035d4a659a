// Package memory maintains per-conversation agent memory: state persistence,
// periodic summarization, key-fact extraction with deduplication, and the
// per-turn working snapshot. All completion failures during maintenance are
// soft no-ops; memory simply is not updated that turn.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/convoke/convoke/core"
	"github.com/convoke/convoke/gateway"
	"github.com/convoke/convoke/logging"
	"github.com/convoke/convoke/router"
	"github.com/convoke/convoke/store"
)

const (
	stateKeyPrefix    = "agent_state:"
	memoryKeyPrefix   = "agent_memory:"
	longTermKeyPrefix = "agent_longterm:"
	summaryKeyPrefix  = "conversation_summary:"
)

// entityMarkers flag facts that name a person, place or relationship. Such
// facts are surfaced first and survive trims preferentially.
var entityMarkers = []string{
	" is ", " was ", " founded ", " named ", " called ",
	" works ", " lives ", " married ", " born ",
}

// stopwords are ignored when comparing facts for near-duplication.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "that": {}, "this": {}, "with": {}, "from": {},
	"they": {}, "their": {}, "have": {}, "has": {}, "had": {}, "for": {},
	"are": {}, "was": {}, "were": {}, "will": {}, "would": {}, "about": {},
}

// Manager owns all memory mutation for agents. It persists conversation
// state and uses the completion gateway for summarization and key-fact
// extraction.
type Manager struct {
	store     store.Store
	completer gateway.Completer
	logger    logging.Logger
}

// NewManager creates a Manager.
func NewManager(s store.Store, completer gateway.Completer, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Manager{store: s, completer: completer, logger: logger}
}

func stateKey(agentID, conversationID string) string {
	return stateKeyPrefix + agentID + ":" + conversationID
}

// LoadState retrieves the conversation state, or nil when none exists. A
// store failure is logged and treated as a fresh conversation rather than
// failing the turn.
func (m *Manager) LoadState(ctx context.Context, agentID, conversationID string) (*core.ConversationState, error) {
	raw, ok, err := m.store.Get(ctx, stateKey(agentID, conversationID))
	if err != nil {
		m.logger.Warn("state load failed, starting fresh",
			"agent_id", agentID, "conversation_id", conversationID, "error", err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	var state core.ConversationState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode conversation state: %w", err)
	}
	if state.Memory == nil {
		state.Memory = core.NewMemory()
	}
	return &state, nil
}

// SaveState persists the conversation state. The write is once per turn with
// no concurrency token; concurrent turns on the same conversation race with
// last-write-wins semantics.
func (m *Manager) SaveState(ctx context.Context, state *core.ConversationState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode conversation state: %w", err)
	}
	return m.store.Set(ctx, stateKey(state.AgentID, state.ConversationID), string(raw), 0)
}

// DeleteState removes a conversation's persisted state and memory.
func (m *Manager) DeleteState(ctx context.Context, agentID, conversationID string) error {
	if err := m.store.Delete(ctx, stateKey(agentID, conversationID)); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, memoryKeyPrefix+agentID+":"+conversationID); err != nil {
		return err
	}
	return m.store.Delete(ctx, summaryKeyPrefix+conversationID)
}

// Update runs the per-turn memory maintenance: summarization when the
// message count crosses the policy threshold, key-fact extraction on its
// cadence, the working snapshot refresh, and long-term bookkeeping.
// Maintenance failures never fail the turn.
func (m *Manager) Update(ctx context.Context, state *core.ConversationState, policy core.MemoryPolicy) {
	if state.Memory == nil {
		state.Memory = core.NewMemory()
	}

	count := len(state.Messages)
	if policy.SummarizeAfter > 0 && count >= policy.SummarizeAfter {
		if state.Memory.ConversationSummary == "" || count%policy.SummarizeAfter == 0 {
			m.summarize(ctx, state, policy)
		}
	}

	if policy.KeyFactExtraction && m.extractionDue(state) {
		m.extractKeyFacts(ctx, state)
	}

	m.refreshWorking(state)

	if policy.LongTermEnabled {
		m.recordLongTerm(ctx, state)
	}

	m.persistMemory(ctx, state)
}

// extractionDue implements the cadence: every turn while the conversation is
// short, every third user turn thereafter.
func (m *Manager) extractionDue(state *core.ConversationState) bool {
	if len(state.Messages) <= 10 {
		return true
	}
	userTurns := 0
	for _, msg := range state.Messages {
		if msg.Role == core.RoleUser {
			userTurns++
		}
	}
	return userTurns%3 == 0
}

func formatTranscript(messages []core.Message) string {
	var lines []string
	for _, msg := range messages {
		lines = append(lines, strings.ToUpper(string(msg.Role))+": "+msg.Content)
	}
	return strings.Join(lines, "\n\n")
}

func (m *Manager) summarize(ctx context.Context, state *core.ConversationState, policy core.MemoryPolicy) {
	segment := state.Messages
	if len(segment) > policy.SummarizeAfter {
		segment = segment[len(segment)-policy.SummarizeAfter:]
	}

	callCtx, cancel := context.WithTimeout(ctx, gateway.LongCallTimeout)
	defer cancel()
	resp, err := m.completer.Complete(callCtx, gateway.Request{
		SystemPrompt: "You create concise, informative summaries of conversations. Focus on the main points, questions, and information exchanged.",
		Messages: []core.ChatMessage{{
			Role:    "user",
			Content: "Summarize the following conversation segment. Focus on key information, questions, and decisions.\n\nCONVERSATION:\n" + formatTranscript(segment),
		}},
		Temperature: 0.3,
		MaxTokens:   300,
		Metadata: router.TaskMetadata{
			AgentRole:      "memory",
			TaskType:       router.TaskReasoning,
			ConversationID: state.ConversationID,
		},
	})
	if err != nil {
		m.logger.Warn("conversation summarization skipped", "conversation_id", state.ConversationID, "error", err)
		return
	}

	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		return
	}
	if state.Memory.ConversationSummary != "" {
		state.Memory.ConversationSummary += "\n\nContinued:\n" + summary
	} else {
		state.Memory.ConversationSummary = summary
	}

	if err := m.store.Set(ctx, summaryKeyPrefix+state.ConversationID, state.Memory.ConversationSummary, 0); err != nil {
		m.logger.Warn("summary persistence failed", "conversation_id", state.ConversationID, "error", err)
	}
}

func (m *Manager) extractKeyFacts(ctx context.Context, state *core.ConversationState) {
	recent := state.Messages
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}

	callCtx, cancel := context.WithTimeout(ctx, gateway.ShortCallTimeout)
	defer cancel()
	resp, err := m.completer.Complete(callCtx, gateway.Request{
		SystemPrompt: "You extract key facts from conversations. Focus on information worth remembering for future reference.",
		Messages: []core.ChatMessage{{
			Role: "user",
			Content: "Extract 3-5 key facts from the following conversation segment that would be important to remember. " +
				"Emphasize named entities and relationships between them (people, places, organizations). " +
				"Format each fact as one standalone statement per line.\n\nCONVERSATION:\n" +
				formatTranscript(recent) + "\n\nKEY FACTS:",
		}},
		Temperature: 0.3,
		MaxTokens:   200,
		Metadata: router.TaskMetadata{
			AgentRole:      "memory",
			TaskType:       router.TaskReasoning,
			ConversationID: state.ConversationID,
		},
	})
	if err != nil {
		m.logger.Warn("key-fact extraction skipped", "conversation_id", state.ConversationID, "error", err)
		return
	}

	for _, line := range strings.Split(resp.Text, "\n") {
		fact := cleanFact(line)
		if fact == "" {
			continue
		}
		AddKeyFact(state.Memory, fact)
	}
}

// cleanFact strips leading list markers and whitespace.
func cleanFact(line string) string {
	fact := strings.TrimSpace(line)
	for {
		trimmed := strings.TrimLeft(fact, "-*•0123456789. \t")
		if trimmed == fact {
			break
		}
		fact = trimmed
	}
	return strings.TrimSpace(fact)
}

// AddKeyFact inserts one fact into memory: duplicates are dropped,
// entity-bearing facts go to the front, and the list is trimmed to
// core.KeyFactCap preferring entity-bearing facts.
func AddKeyFact(mem *core.Memory, fact string) {
	if isDuplicateFact(mem.KeyFacts, fact) {
		return
	}
	if hasEntityMarker(fact) {
		mem.KeyFacts = append([]string{fact}, mem.KeyFacts...)
	} else {
		mem.KeyFacts = append(mem.KeyFacts, fact)
	}
	mem.KeyFacts = trimFacts(mem.KeyFacts, core.KeyFactCap)
}

func hasEntityMarker(fact string) bool {
	padded := " " + strings.ToLower(fact) + " "
	for _, marker := range entityMarkers {
		if strings.Contains(padded, marker) {
			return true
		}
	}
	return false
}

func significantWords(fact string) map[string]struct{} {
	words := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(fact)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) <= 3 {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		words[w] = struct{}{}
	}
	return words
}

// isDuplicateFact reports an exact match or a fact sharing at least three
// significant words with an existing one.
func isDuplicateFact(existing []string, fact string) bool {
	factWords := significantWords(fact)
	for _, e := range existing {
		if e == fact {
			return true
		}
		shared := 0
		for w := range significantWords(e) {
			if _, ok := factWords[w]; ok {
				shared++
				if shared >= 3 {
					return true
				}
			}
		}
	}
	return false
}

// trimFacts bounds the list at cap, keeping entity-bearing facts
// preferentially and preserving relative order within each group.
func trimFacts(facts []string, capacity int) []string {
	if len(facts) <= capacity {
		return facts
	}
	var entity, other []string
	for _, f := range facts {
		if hasEntityMarker(f) {
			entity = append(entity, f)
		} else {
			other = append(other, f)
		}
	}
	if len(entity) >= capacity {
		return entity[:capacity]
	}
	return append(entity, other[:capacity-len(entity)]...)
}

func (m *Manager) refreshWorking(state *core.ConversationState) {
	recent := state.RecentMessages(5, true)
	encoded := make([]map[string]any, 0, len(recent))
	for _, msg := range recent {
		encoded = append(encoded, map[string]any{
			"id":      msg.ID,
			"role":    string(msg.Role),
			"content": msg.Content,
		})
	}
	observations := state.Observations
	if len(observations) > 3 {
		observations = observations[len(observations)-3:]
	}
	state.Memory.Working = map[string]any{
		"recent_messages":     encoded,
		"recent_observations": append([]string(nil), observations...),
	}
}

func (m *Manager) recordLongTerm(ctx context.Context, state *core.ConversationState) {
	if state.Memory.LongTerm == nil {
		state.Memory.LongTerm = map[string]any{}
	}
	var conversations []any
	if existing, ok := state.Memory.LongTerm["conversations"].([]any); ok {
		conversations = existing
	}
	seen := false
	for _, c := range conversations {
		if c == state.ConversationID {
			seen = true
			break
		}
	}
	if !seen {
		conversations = append(conversations, state.ConversationID)
	}
	state.Memory.LongTerm["conversations"] = conversations

	raw, err := json.Marshal(state.Memory.LongTerm)
	if err != nil {
		return
	}
	if err := m.store.Set(ctx, longTermKeyPrefix+state.AgentID, string(raw), 0); err != nil {
		m.logger.Warn("long-term memory persistence failed", "agent_id", state.AgentID, "error", err)
	}
}

func (m *Manager) persistMemory(ctx context.Context, state *core.ConversationState) {
	raw, err := json.Marshal(state.Memory)
	if err != nil {
		return
	}
	key := memoryKeyPrefix + state.AgentID + ":" + state.ConversationID
	if err := m.store.Set(ctx, key, string(raw), 0); err != nil {
		m.logger.Warn("memory persistence failed", "conversation_id", state.ConversationID, "error", err)
	}
}

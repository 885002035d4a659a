package core

import (
	"sync"
	"time"
)

// FlowNode is one named step recorded during a turn.
type FlowNode struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// FlowEdge is a labeled transition between two recorded nodes.
type FlowEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// Flow is the append-only trace of one turn: which nodes ran and in what
// order. It exists purely for observability and is never consulted by any
// control-flow decision.
type Flow struct {
	Nodes []FlowNode `json:"nodes,omitempty"`
	Edges []FlowEdge `json:"edges,omitempty"`
}

// FlowTracker accumulates a Flow during a turn. Safe for concurrent use,
// though turns record sequentially in practice.
type FlowTracker struct {
	mu     sync.Mutex
	flow   Flow
	lastID string
}

// NewFlowTracker creates an empty tracker.
func NewFlowTracker() *FlowTracker { return &FlowTracker{} }

// AddNode records a node and, when a previous node exists, an unlabeled edge
// from it. Returns the node ID for explicit edge labeling.
func (t *FlowTracker) AddNode(name string, metadata map[string]any) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := NewID()
	t.flow.Nodes = append(t.flow.Nodes, FlowNode{
		ID:        id,
		Name:      name,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	})
	if t.lastID != "" {
		t.flow.Edges = append(t.flow.Edges, FlowEdge{From: t.lastID, To: id})
	}
	t.lastID = id
	return id
}

// AddEdge records an explicit labeled edge between two node IDs.
func (t *FlowTracker) AddEdge(from, to, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flow.Edges = append(t.flow.Edges, FlowEdge{From: from, To: to, Label: label})
}

// Flow returns a copy of the accumulated trace.
func (t *FlowTracker) Flow() *Flow {
	t.mu.Lock()
	defer t.mu.Unlock()
	f := &Flow{
		Nodes: append([]FlowNode(nil), t.flow.Nodes...),
		Edges: append([]FlowEdge(nil), t.flow.Edges...),
	}
	return f
}

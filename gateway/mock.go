package gateway

import (
	"context"
	"sync"
)

// MockBackend is a scriptable Backend for tests and examples. Responses are
// returned in order; Fn, when set, takes precedence.
type MockBackend struct {
	mu        sync.Mutex
	provider  string
	Responses []string
	Err       error
	// Fn computes a response from the request when set.
	Fn func(ctx context.Context, model string, req Request) (string, error)

	Calls []Request
	index int
}

var _ Backend = (*MockBackend)(nil)

// NewMockBackend creates a mock registered under the given provider name.
func NewMockBackend(provider string, responses ...string) *MockBackend {
	return &MockBackend{provider: provider, Responses: responses}
}

// Name returns the provider identity.
func (m *MockBackend) Name() string { return m.provider }

// Complete returns the scripted response or error.
func (m *MockBackend) Complete(ctx context.Context, model string, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Fn != nil {
		return m.Fn(ctx, model, req)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "ok", nil
	}
	resp := m.Responses[m.index%len(m.Responses)]
	m.index++
	return resp, nil
}

// CallCount returns how many times Complete was invoked.
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockCompleter is a scriptable Completer for tests that bypass routing
// entirely.
type MockCompleter struct {
	mu        sync.Mutex
	Responses []*Response
	Err       error
	Fn        func(ctx context.Context, req Request) (*Response, error)

	Calls []Request
	index int
}

var _ Completer = (*MockCompleter)(nil)

// Complete returns the scripted response or error.
func (m *MockCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Fn != nil {
		return m.Fn(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return &Response{Text: "ok", Endpoint: "mock"}, nil
	}
	resp := m.Responses[m.index%len(m.Responses)]
	m.index++
	return resp, nil
}

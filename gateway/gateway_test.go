package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoke/convoke/core"
	"github.com/convoke/convoke/router"
)

func testRouter(t *testing.T) *router.Router {
	t.Helper()
	cfg := &router.Config{
		Endpoints: map[string]router.Endpoint{
			"primary":  {ID: "model-primary", Provider: "mock-a", RPMLimit: 100},
			"fallback": {ID: "model-fallback", Provider: "mock-b", RPMLimit: 100},
		},
		Policies: map[string]router.Policy{
			"assistant": {Primary: "primary", Fallback: "fallback"},
		},
		DefaultRole: "assistant",
	}
	rt, err := router.New(cfg)
	require.NoError(t, err)
	return rt
}

func userReq(content string) Request {
	return Request{
		Messages: []core.ChatMessage{{Role: "user", Content: content}},
		Metadata: router.TaskMetadata{AgentRole: "assistant"},
	}
}

func TestCompleteText(t *testing.T) {
	primary := NewMockBackend("mock-a", "hello there")
	fallback := NewMockBackend("mock-b")
	g := New(testRouter(t), []Backend{primary, fallback})

	resp, err := g.Complete(context.Background(), userReq("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Text)
	assert.Equal(t, "model-primary", resp.Endpoint)
	assert.False(t, resp.IsFallback)
	assert.Equal(t, 0, fallback.CallCount())
}

func TestCompleteRetriesOnFallback(t *testing.T) {
	primary := NewMockBackend("mock-a")
	primary.Err = errors.New("backend down")
	fallback := NewMockBackend("mock-b", "from fallback")
	g := New(testRouter(t), []Backend{primary, fallback})

	resp, err := g.Complete(context.Background(), userReq("hi"))
	require.NoError(t, err)
	assert.Equal(t, "from fallback", resp.Text)
	assert.Equal(t, "model-fallback", resp.Endpoint)
	assert.True(t, resp.IsFallback)
	assert.Equal(t, 1, primary.CallCount())
}

func TestCompleteSurfacesProviderError(t *testing.T) {
	primary := NewMockBackend("mock-a")
	primary.Err = errors.New("primary down")
	fallback := NewMockBackend("mock-b")
	fallback.Err = errors.New("fallback down")
	g := New(testRouter(t), []Backend{primary, fallback})

	_, err := g.Complete(context.Background(), userReq("hi"))
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "model-fallback", pe.Endpoint)
}

func TestCompleteStructured(t *testing.T) {
	primary := NewMockBackend("mock-a", "```json\n{\"thoughts\": \"fine\", \"should_respond_directly\": true}\n```")
	fallback := NewMockBackend("mock-b")
	g := New(testRouter(t), []Backend{primary, fallback})

	req := userReq("hi")
	req.OutputSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"thoughts":               map[string]any{"type": "string"},
			"should_respond_directly": map[string]any{"type": "boolean"},
		},
		"required": []any{"thoughts"},
	}

	resp, err := g.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "fine", resp.Structured["thoughts"])
	assert.Equal(t, true, resp.Structured["should_respond_directly"])

	// the schema instruction rides on the system prompt
	require.Equal(t, 1, primary.CallCount())
	assert.Contains(t, primary.Calls[0].SystemPrompt, "JSON schema")
}

func TestCompleteSchemaParseError(t *testing.T) {
	primary := NewMockBackend("mock-a", "I cannot produce JSON today.")
	fallback := NewMockBackend("mock-b", "Still no JSON here.")
	g := New(testRouter(t), []Backend{primary, fallback})

	req := userReq("hi")
	req.OutputSchema = map[string]any{"type": "object"}

	_, err := g.Complete(context.Background(), req)
	var spe *SchemaParseError
	require.ErrorAs(t, err, &spe)
	// the surfaced error carries the fallback's output, the last attempt
	assert.Equal(t, "Still no JSON here.", spe.RawText)
	assert.Equal(t, 1, primary.CallCount())
	assert.Equal(t, 1, fallback.CallCount())

	// a schema failure is also a provider failure for retry purposes
	var pe *ProviderError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, "model-fallback", pe.Endpoint)
}

func TestCompleteParseFailureRetriesOnFallback(t *testing.T) {
	primary := NewMockBackend("mock-a", "no json here, sorry")
	fallback := NewMockBackend("mock-b", `{"thoughts": "recovered"}`)
	g := New(testRouter(t), []Backend{primary, fallback})

	req := userReq("hi")
	req.OutputSchema = map[string]any{
		"type":       "object",
		"properties": map[string]any{"thoughts": map[string]any{"type": "string"}},
		"required":   []any{"thoughts"},
	}

	resp, err := g.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Structured["thoughts"])
	assert.Equal(t, "model-fallback", resp.Endpoint)
	assert.True(t, resp.IsFallback)
	assert.Equal(t, 1, primary.CallCount())
	assert.Equal(t, 1, fallback.CallCount())
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	primary := NewMockBackend("mock-a")
	primary.Err = errors.New("down")
	fallback := NewMockBackend("mock-b")
	fallback.Err = errors.New("down")
	g := New(testRouter(t), []Backend{primary, fallback})

	for i := 0; i < 6; i++ {
		_, _ = g.Complete(context.Background(), userReq("hi"))
	}
	calls := primary.CallCount()
	// the breaker stops dispatching to the backend after five straight failures
	assert.Less(t, calls, 6)
}

package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(primaryLimit int) *Config {
	return &Config{
		Endpoints: map[string]Endpoint{
			"fast": {ID: "model-fast", Provider: "anthropic", RPMLimit: primaryLimit},
			"big":  {ID: "model-big", Provider: "openai", RPMLimit: 100},
		},
		Policies: map[string]Policy{
			"assistant": {Primary: "fast", Fallback: "big"},
		},
		Fallback:    FallbackBehavior{Mode: "immediate"},
		DefaultRole: "assistant",
	}
}

func TestRoutePrimaryThenFallback(t *testing.T) {
	ctx := context.Background()
	r, err := New(testConfig(1))
	require.NoError(t, err)

	meta := TaskMetadata{AgentRole: "assistant", TaskType: TaskReasoning}

	d, err := r.Route(ctx, meta)
	require.NoError(t, err)
	assert.Equal(t, "fast", d.EndpointName)
	assert.False(t, d.IsFallback)

	d, err = r.Route(ctx, meta)
	require.NoError(t, err)
	assert.Equal(t, "big", d.EndpointName)
	assert.True(t, d.IsFallback)
	assert.False(t, d.AllExhausted)
}

func TestRouteAllExhausted(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(1)
	big := cfg.Endpoints["big"]
	big.RPMLimit = 1
	cfg.Endpoints["big"] = big

	r, err := New(cfg)
	require.NoError(t, err)

	meta := TaskMetadata{AgentRole: "assistant"}
	_, _ = r.Route(ctx, meta) // consumes primary
	_, _ = r.Route(ctx, meta) // consumes fallback

	d, err := r.Route(ctx, meta)
	require.NoError(t, err, "exhaustion is never an error")
	assert.Equal(t, "big", d.EndpointName)
	assert.True(t, d.IsFallback)
	assert.True(t, d.AllExhausted)
}

func TestRouteUnknownRoleUsesDefault(t *testing.T) {
	ctx := context.Background()
	r, err := New(testConfig(10))
	require.NoError(t, err)

	d, err := r.Route(ctx, TaskMetadata{AgentRole: "nonexistent"})
	require.NoError(t, err)
	assert.Equal(t, "fast", d.EndpointName)
}

func TestReloadSwapsPolicy(t *testing.T) {
	ctx := context.Background()
	r, err := New(testConfig(10))
	require.NoError(t, err)

	next := testConfig(10)
	next.Policies["assistant"] = Policy{Primary: "big", Fallback: "fast"}
	require.NoError(t, r.Reload(next))

	d, err := r.Route(ctx, TaskMetadata{AgentRole: "assistant"})
	require.NoError(t, err)
	assert.Equal(t, "big", d.EndpointName)
}

func TestReloadRejectsInvalid(t *testing.T) {
	r, err := New(testConfig(10))
	require.NoError(t, err)

	bad := testConfig(10)
	bad.Policies["assistant"] = Policy{Primary: "missing", Fallback: "big"}
	assert.Error(t, r.Reload(bad))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	r, err := New(testConfig(10))
	require.NoError(t, err)

	_, _ = r.Route(ctx, TaskMetadata{AgentRole: "assistant"})

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats["fast"].CurrentRPM)
	assert.Equal(t, 10, stats["fast"].RPMLimit)
	assert.InDelta(t, 0.1, stats["fast"].Utilization, 1e-9)
	assert.Equal(t, 0, stats["big"].CurrentRPM)
}

func TestLoadConfigYAML(t *testing.T) {
	data := []byte(`
endpoints:
  fast:
    id: model-fast
    provider: anthropic
    rpm_limit: 50
    cost_per_1k_tokens_usd: 0.25
    latency_ms_avg: 800
  big:
    id: model-big
    provider: openai
    rpm_limit: 20
policies:
  assistant:
    primary: fast
    fallback: big
fallback_behavior:
  mode: immediate
default_role: assistant
`)
	cfg, err := LoadConfig(data)
	require.NoError(t, err)
	assert.Equal(t, "model-fast", cfg.Endpoints["fast"].ID)
	assert.Equal(t, 50, cfg.Endpoints["fast"].RPMLimit)
	assert.Equal(t, "big", cfg.Policies["assistant"].Fallback)
	assert.Equal(t, "immediate", cfg.Fallback.Mode)
}

func TestLoadConfigRejectsDanglingEndpoint(t *testing.T) {
	data := []byte(`
endpoints:
  fast: {id: model-fast, provider: anthropic, rpm_limit: 50}
policies:
  assistant: {primary: fast, fallback: missing}
`)
	_, err := LoadConfig(data)
	assert.Error(t, err)
}

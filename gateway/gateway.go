package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/convoke/convoke/core"
	"github.com/convoke/convoke/logging"
	"github.com/convoke/convoke/router"
)

// Default timeouts callers apply via context.WithTimeout. Short covers
// classification-style calls, long covers generation.
const (
	ShortCallTimeout = 10 * time.Second
	LongCallTimeout  = 60 * time.Second
)

// Request is one completion call.
type Request struct {
	Messages     []core.ChatMessage
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	// OutputSchema, when non-nil, asks the backend for JSON conforming to
	// this JSON schema. The parsed document lands in Response.Structured.
	OutputSchema map[string]any
	Metadata     router.TaskMetadata
}

// Response is the outcome of a completion call.
type Response struct {
	Text string
	// Structured is set only when the request carried an OutputSchema.
	Structured map[string]any
	Endpoint   string
	IsFallback bool
}

// Completer is the completion contract consumed by reasoning, response
// formulation, memory maintenance and delegation.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Backend is one provider adapter. Model is the provider-facing endpoint ID
// chosen by the router.
type Backend interface {
	// Name returns the provider identity used in routing configs.
	Name() string
	Complete(ctx context.Context, model string, req Request) (string, error)
}

// Options configures a Gateway.
type Options struct {
	Logger logging.Logger
	// MaxTokens applies when a request leaves it zero.
	MaxTokens int
	// BreakerSettings overrides the per-endpoint circuit breaker settings.
	// Name and fallback defaults are filled in per endpoint.
	BreakerSettings *gobreaker.Settings
}

// Gateway implements Completer over a Router and a set of provider backends.
type Gateway struct {
	rt       *router.Router
	backends map[string]Backend
	logger   logging.Logger

	maxTokens       int
	breakerSettings *gobreaker.Settings

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[string]
}

var _ Completer = (*Gateway)(nil)

// New creates a Gateway. Backends are keyed by their Name.
func New(rt *router.Router, backends []Backend, optFns ...func(o *Options)) *Gateway {
	opts := Options{
		Logger:    logging.NoOpLogger{},
		MaxTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	byName := make(map[string]Backend, len(backends))
	for _, b := range backends {
		byName[b.Name()] = b
	}
	return &Gateway{
		rt:              rt,
		backends:        byName,
		logger:          opts.Logger,
		maxTokens:       opts.MaxTokens,
		breakerSettings: opts.BreakerSettings,
		breakers:        map[string]*gobreaker.CircuitBreaker[string]{},
	}
}

func (g *Gateway) breaker(endpointID string) *gobreaker.CircuitBreaker[string] {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cb, ok := g.breakers[endpointID]; ok {
		return cb
	}
	settings := gobreaker.Settings{
		Name:        "endpoint:" + endpointID,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	if g.breakerSettings != nil {
		settings = *g.breakerSettings
		settings.Name = "endpoint:" + endpointID
	}
	cb := gobreaker.NewCircuitBreaker[string](settings)
	g.breakers[endpointID] = cb
	return cb
}

func (g *Gateway) callEndpoint(ctx context.Context, ep router.Endpoint, req Request) (string, error) {
	backend, ok := g.backends[ep.Provider]
	if !ok {
		return "", fmt.Errorf("no backend registered for provider %q", ep.Provider)
	}
	return g.breaker(ep.ID).Execute(func() (string, error) {
		return backend.Complete(ctx, ep.ID, req)
	})
}

// attempt runs one full completion against a single endpoint: the backend
// call plus, when a schema was requested, the parse and validation of its
// output. Both failure families come back as errors so the fallback retry
// treats them uniformly.
func (g *Gateway) attempt(ctx context.Context, ep router.Endpoint, req Request) (*Response, error) {
	text, err := g.callEndpoint(ctx, ep, req)
	if err != nil {
		return nil, &ProviderError{Endpoint: ep.ID, Provider: ep.Provider, Err: err}
	}
	resp := &Response{Text: text, Endpoint: ep.ID}
	if req.OutputSchema == nil {
		return resp, nil
	}
	structured, err := parseStructured(text, req.OutputSchema)
	if err != nil {
		return nil, newSchemaParseError(ep.ID, ep.Provider, text, err.Error(), err)
	}
	resp.Structured = structured
	return resp, nil
}

// Complete routes the request and runs it against the chosen backend. When
// the primary attempt fails, whether the backend call errored or its
// structured output failed to parse, it retries once against the policy's
// fallback endpoint before surfacing the error.
func (g *Gateway) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = g.maxTokens
	}
	if req.OutputSchema != nil {
		req.SystemPrompt = appendSchemaInstruction(req.SystemPrompt, req.OutputSchema)
	}

	decision, err := g.rt.Route(ctx, req.Metadata)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	endpoint := decision.Endpoint
	isFallback := decision.IsFallback
	resp, err := g.attempt(ctx, endpoint, req)
	if err != nil && !decision.IsFallback {
		g.logger.Warn("primary completion failed, retrying on fallback",
			"endpoint", endpoint.ID, "error", err)
		fb, _, fbErr := g.rt.FallbackFor(req.Metadata.AgentRole)
		if fbErr == nil && fb.ID != endpoint.ID {
			endpoint = fb
			isFallback = true
			resp, err = g.attempt(ctx, fb, req)
		}
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			g.logger.Warn("circuit breaker rejected completion", "endpoint", endpoint.ID)
		}
		logging.ModelCall(g.logger, endpoint.ID, isFallback, time.Since(start), err)
		return nil, err
	}
	resp.IsFallback = isFallback
	logging.ModelCall(g.logger, endpoint.ID, isFallback, time.Since(start), nil)
	return resp, nil
}

func appendSchemaInstruction(systemPrompt string, schema map[string]any) string {
	encoded, err := json.Marshal(schema)
	if err != nil {
		return systemPrompt
	}
	instruction := "Respond ONLY with a JSON object conforming to this JSON schema, with no surrounding prose:\n" + string(encoded)
	if systemPrompt == "" {
		return instruction
	}
	return systemPrompt + "\n\n" + instruction
}

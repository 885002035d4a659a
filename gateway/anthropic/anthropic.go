// Package anthropic provides the completion backend for the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/convoke/convoke/gateway"
)

// Options configures the Anthropic backend (API key, default max tokens).
type Options struct {
	APIKey    string
	MaxTokens int64
}

// Backend wraps the Anthropic Messages API behind the gateway.Backend
// interface. The model identifier comes from the router's endpoint config on
// every call.
type Backend struct {
	client *anthropic.Client
	opts   Options
}

var _ gateway.Backend = (*Backend)(nil)

// New creates an Anthropic backend using the official client.
func New(optFns ...func(o *Options)) *Backend {
	opts := Options{MaxTokens: 4096}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Backend{client: &client, opts: opts}
}

// NewFromClient wraps an existing Anthropic client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Backend {
	opts := Options{MaxTokens: 4096}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Backend{client: client, opts: opts}
}

// Name returns the provider identity used in routing configs.
func (b *Backend) Name() string { return "anthropic" }

// Complete performs one non-streaming message call and concatenates the
// text blocks of the reply.
func (b *Backend) Complete(ctx context.Context, model string, req gateway.Request) (string, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = b.opts.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		Messages:    buildMessages(req),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	return text, nil
}

func buildMessages(req gateway.Request) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		if m.Content == "" || m.Role == "system" {
			continue
		}
		switch m.Role {
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return messages
}

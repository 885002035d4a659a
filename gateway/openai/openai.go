// Package openai provides the completion backend for the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/convoke/convoke/gateway"
)

// Options configures the OpenAI backend.
type Options struct {
	APIKey              string
	MaxCompletionTokens int64
}

// Backend wraps the OpenAI Chat Completions API behind the gateway.Backend
// interface. The model identifier comes from the router's endpoint config on
// every call.
type Backend struct {
	client *openai.Client
	opts   Options
}

var _ gateway.Backend = (*Backend)(nil)

// New creates an OpenAI backend using the official client.
func New(optFns ...func(o *Options)) *Backend {
	opts := Options{MaxCompletionTokens: 4096}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)

	return &Backend{client: &client, opts: opts}
}

// NewFromClient wraps an existing OpenAI client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Backend {
	opts := Options{MaxCompletionTokens: 4096}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Backend{client: client, opts: opts}
}

// Name returns the provider identity used in routing configs.
func (b *Backend) Name() string { return "openai" }

// Complete performs one non-streaming chat completion.
func (b *Backend) Complete(ctx context.Context, model string, req gateway.Request) (string, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = b.opts.MaxCompletionTokens
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		if m.Content == "" {
			continue
		}
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               model,
		Messages:            messages,
		Temperature:         openai.Float(req.Temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

package skill

import (
	"context"
	"fmt"
	"strings"

	"github.com/convoke/convoke/core"
	"github.com/convoke/convoke/gateway"
	"github.com/convoke/convoke/router"
)

// Built-in skill definitions. Implementations are bound separately so
// deployments can swap providers (or mocks) without touching the metadata.

// WebSearchSkill returns the web search skill definition.
func WebSearchSkill() *core.Skill {
	return &core.Skill{
		ID:          "web-search",
		Name:        "Web Search",
		Description: "Search the web for information",
		Parameters: []core.SkillParameter{
			{Name: "query", Type: core.ParamString, Description: "The search query", Required: true},
			{Name: "num_results", Type: core.ParamInteger, Description: "Number of results to return", Default: 5},
			{Name: "include_images", Type: core.ParamBoolean, Description: "Whether to include image results", Default: false},
			{Name: "search_type", Type: core.ParamString, Description: "Type of search to perform",
				Default: "web", Enum: []any{"web", "news", "videos", "shopping"}},
		},
		ResponseSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"results": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"title":   map[string]any{"type": "string"},
							"link":    map[string]any{"type": "string"},
							"snippet": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
		Tags: []string{"search", "web", "external-api"},
	}
}

// SummarizeTextSkill returns the text summarization skill definition,
// including its invocation patterns for the deterministic matcher path.
func SummarizeTextSkill() *core.Skill {
	return &core.Skill{
		ID:          "summarize-text",
		Name:        "Summarize Text",
		Description: "Summarize text content",
		Parameters: []core.SkillParameter{
			{Name: "text", Type: core.ParamString, Description: "The text to summarize", Required: true},
			{Name: "max_tokens", Type: core.ParamInteger, Description: "Maximum length of summary in tokens", Default: 300},
			{Name: "format", Type: core.ParamString, Description: "Format of the summary",
				Default: "paragraph", Enum: []any{"paragraph", "bullet_points", "key_points"}},
		},
		ResponseSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary": map[string]any{"type": "string"},
				"format":  map[string]any{"type": "string"},
			},
		},
		Tags: []string{"summarization", "text-processing"},
		InvocationPatterns: []core.InvocationPattern{
			{
				Pattern: "summarize", Type: core.PatternStartsWith, Priority: 5,
				SampleQueries: []string{"summarize this article", "summarize the following text"},
				ParameterExtraction: map[string]core.ExtractionRule{
					"text": {Source: core.ExtractKeywordAfter, Keyword: "summarize"},
				},
			},
			{
				Pattern: "tldr", Type: core.PatternContains, Priority: 5,
				SampleQueries: []string{"tldr on this article", "give me a tldr"},
				ParameterExtraction: map[string]core.ExtractionRule{
					"text":       {Source: core.ExtractContent},
					"max_tokens": {Source: core.ExtractConstant, Value: 150},
				},
			},
			{
				Pattern: "summary", Type: core.PatternContains, Priority: 4,
				SampleQueries: []string{"give me a summary of this"},
				ParameterExtraction: map[string]core.ExtractionRule{
					"text": {Source: core.ExtractContent},
				},
			},
			{
				Pattern: "key points", Type: core.PatternContains, Priority: 4,
				SampleQueries: []string{"extract key points from this"},
				ParameterExtraction: map[string]core.ExtractionRule{
					"text":   {Source: core.ExtractContent},
					"format": {Source: core.ExtractConstant, Value: "key_points"},
				},
			},
			{
				Pattern: "bullet points", Type: core.PatternContains, Priority: 4,
				SampleQueries: []string{"summarize in bullet points"},
				ParameterExtraction: map[string]core.ExtractionRule{
					"text":   {Source: core.ExtractContent},
					"format": {Source: core.ExtractConstant, Value: "bullet_points"},
				},
			},
		},
	}
}

// AskFollowUpSkill returns the follow-up question skill definition.
func AskFollowUpSkill() *core.Skill {
	return &core.Skill{
		ID:          "ask-follow-up",
		Name:        "Ask Follow-up Questions",
		Description: "Generate follow-up questions based on context",
		Parameters: []core.SkillParameter{
			{Name: "context", Type: core.ParamString, Description: "The context to generate questions from", Required: true},
			{Name: "num_questions", Type: core.ParamInteger, Description: "Number of questions to generate", Default: 3},
			{Name: "question_type", Type: core.ParamString, Description: "Type of questions to generate",
				Default: "general", Enum: []any{"general", "clarifying", "probing", "challenging"}},
		},
		ResponseSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"questions": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
		},
		Tags: []string{"questions", "conversation"},
		InvocationPatterns: []core.InvocationPattern{
			{
				Pattern: "follow-up", Type: core.PatternContains, Priority: 5,
				SampleQueries: []string{"generate follow-up questions about this"},
				ParameterExtraction: map[string]core.ExtractionRule{
					"context": {Source: core.ExtractContent},
				},
			},
			{
				Pattern: "follow up", Type: core.PatternContains, Priority: 5,
				SampleQueries: []string{"what follow up questions should I ask"},
				ParameterExtraction: map[string]core.ExtractionRule{
					"context": {Source: core.ExtractContent},
				},
			},
		},
	}
}

// FinanceSkill returns the stock quote skill definition.
func FinanceSkill() *core.Skill {
	return &core.Skill{
		ID:          "finance",
		Name:        "Finance Skill",
		Description: "Fetch the latest stock price for a ticker symbol",
		Parameters: []core.SkillParameter{
			{Name: "symbol", Type: core.ParamString, Description: "Stock ticker symbol", Required: true},
		},
		ResponseSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"symbol":    map[string]any{"type": "string"},
				"price":     map[string]any{"type": "number"},
				"timestamp": map[string]any{"type": "string"},
			},
		},
		Tags: []string{"finance", "stocks", "external-api"},
		InvocationPatterns: []core.InvocationPattern{
			{
				Pattern: "stock", Type: core.PatternKeyword, Priority: 1,
				SampleQueries: []string{"price of AAPL", "stock price TSLA"},
				ParameterExtraction: map[string]core.ExtractionRule{
					"symbol": {Source: core.ExtractContent},
				},
			},
		},
	}
}

// BuiltinSkills returns all built-in skill definitions.
func BuiltinSkills() []*core.Skill {
	return []*core.Skill{WebSearchSkill(), SummarizeTextSkill(), AskFollowUpSkill(), FinanceSkill()}
}

// SearchProvider performs a web search for the web-search skill.
type SearchProvider func(ctx context.Context, query, searchType string, numResults int, includeImages bool) (map[string]any, error)

// QuoteProvider fetches the latest price for a ticker symbol.
type QuoteProvider func(ctx context.Context, symbol string) (price float64, timestamp string, err error)

// NewWebSearchImplementation adapts a SearchProvider to the skill contract.
func NewWebSearchImplementation(search SearchProvider) Implementation {
	return func(ctx context.Context, params map[string]any, _ *core.Skill, _, _ string) (any, error) {
		query, _ := params["query"].(string)
		numResults := intParam(params, "num_results", 5)
		searchType, _ := params["search_type"].(string)
		includeImages, _ := params["include_images"].(bool)
		return search(ctx, query, searchType, numResults, includeImages)
	}
}

// NewFinanceImplementation adapts a QuoteProvider to the skill contract.
// Symbols extracted from free text are uppercased before lookup.
func NewFinanceImplementation(quote QuoteProvider) Implementation {
	return func(ctx context.Context, params map[string]any, _ *core.Skill, _, _ string) (any, error) {
		symbol, _ := params["symbol"].(string)
		symbol = extractTicker(symbol)
		price, timestamp, err := quote(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch price for %s: %w", symbol, err)
		}
		return map[string]any{"symbol": symbol, "price": price, "timestamp": timestamp}, nil
	}
}

// extractTicker pulls the most ticker-looking token out of free text: the
// last all-uppercase word of 1 to 5 letters, falling back to uppercasing the
// whole trimmed input.
func extractTicker(text string) string {
	fields := strings.Fields(text)
	for i := len(fields) - 1; i >= 0; i-- {
		w := strings.Trim(fields[i], ".,!?")
		if len(w) >= 1 && len(w) <= 5 && w == strings.ToUpper(w) && isAlpha(w) {
			return w
		}
	}
	return strings.ToUpper(strings.TrimSpace(text))
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return s != ""
}

// NewSummarizeImplementation builds the summarization skill over the
// completion gateway.
func NewSummarizeImplementation(completer gateway.Completer, agentRole string) Implementation {
	return func(ctx context.Context, params map[string]any, _ *core.Skill, _, conversationID string) (any, error) {
		text, _ := params["text"].(string)
		format, _ := params["format"].(string)
		maxTokens := intParam(params, "max_tokens", 300)

		var style string
		switch format {
		case "bullet_points":
			style = "as a list of bullet points"
		case "key_points":
			style = "as a short list of key points"
		default:
			style = "as a single concise paragraph"
		}

		callCtx, cancel := context.WithTimeout(ctx, gateway.LongCallTimeout)
		defer cancel()
		resp, err := completer.Complete(callCtx, gateway.Request{
			Messages: []core.ChatMessage{{
				Role:    "user",
				Content: fmt.Sprintf("Summarize the following text %s:\n\n%s", style, text),
			}},
			Temperature: 0.3,
			MaxTokens:   maxTokens,
			Metadata: router.TaskMetadata{
				AgentRole:      agentRole,
				TaskType:       router.TaskSkillExecution,
				ConversationID: conversationID,
			},
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"summary": strings.TrimSpace(resp.Text), "format": format}, nil
	}
}

// NewAskFollowUpImplementation builds the follow-up question skill over the
// completion gateway.
func NewAskFollowUpImplementation(completer gateway.Completer, agentRole string) Implementation {
	return func(ctx context.Context, params map[string]any, _ *core.Skill, _, conversationID string) (any, error) {
		contextText, _ := params["context"].(string)
		numQuestions := intParam(params, "num_questions", 3)
		questionType, _ := params["question_type"].(string)

		callCtx, cancel := context.WithTimeout(ctx, gateway.LongCallTimeout)
		defer cancel()
		resp, err := completer.Complete(callCtx, gateway.Request{
			Messages: []core.ChatMessage{{
				Role: "user",
				Content: fmt.Sprintf(
					"Generate %d %s follow-up questions for the following context. Return one question per line with no numbering:\n\n%s",
					numQuestions, questionType, contextText),
			}},
			Temperature: 0.7,
			Metadata: router.TaskMetadata{
				AgentRole:      agentRole,
				TaskType:       router.TaskSkillExecution,
				ConversationID: conversationID,
			},
		})
		if err != nil {
			return nil, err
		}

		var questions []any
		for _, line := range strings.Split(resp.Text, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
			if line != "" {
				questions = append(questions, line)
			}
			if len(questions) >= numQuestions {
				break
			}
		}
		return map[string]any{"questions": questions}, nil
	}
}

func intParam(params map[string]any, name string, fallback int) int {
	switch n := params[name].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

package agent

import (
	"fmt"
	"strings"

	"github.com/convoke/convoke/core"
)

// reasoningSchema is the structured output contract of the reasoning node.
var reasoningSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"thoughts": map[string]any{
			"type":        "string",
			"description": "Your internal thought process and reasoning",
		},
		"skill_to_use": map[string]any{
			"type":        []any{"object", "null"},
			"description": "The skill you want to use, if any",
			"properties": map[string]any{
				"skill_id":   map[string]any{"type": "string"},
				"parameters": map[string]any{"type": "object"},
				"reason":     map[string]any{"type": "string"},
			},
			"required": []any{"skill_id", "parameters", "reason"},
		},
		"response_to_user": map[string]any{
			"type":        []any{"string", "null"},
			"description": "Your direct response to the user, if not using a skill",
		},
		"should_respond_directly": map[string]any{
			"type":        "boolean",
			"description": "Whether to respond directly without using a skill",
		},
	},
	"required": []any{"thoughts", "should_respond_directly"},
}

// buildReasoningPrompt assembles the system prompt for the reasoning node
// from the persona, the skill catalog with usage hints, and memory context
// with entities surfaced first for reference resolution.
func buildReasoningPrompt(cfg *core.AgentConfig, state *core.ConversationState, skills []*core.Skill) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s - Agent System Prompt\n\n%s\n", cfg.Persona.Name, cfg.Persona.Description)

	if len(cfg.Persona.Goals) > 0 {
		b.WriteString("\n## Goals\n")
		for _, g := range cfg.Persona.Goals {
			fmt.Fprintf(&b, "- %s\n", g)
		}
	}
	if len(cfg.Persona.Constraints) > 0 {
		b.WriteString("\n## Constraints\n")
		for _, c := range cfg.Persona.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	if len(skills) > 0 {
		b.WriteString("\n## Available Skills\nYou have access to the following skills to help users:\n")
		for _, sk := range skills {
			fmt.Fprintf(&b, "\n### %s (ID: %s)\n%s\n", sk.Name, sk.ID, sk.Description)
			if len(sk.Parameters) > 0 {
				b.WriteString("Parameters:\n")
				for _, p := range sk.Parameters {
					requirement := "optional"
					if p.Required {
						requirement = "required"
					}
					if p.Default != nil {
						fmt.Fprintf(&b, "- %s (%s): %s [%s, default: %v]\n", p.Name, p.Type, p.Description, requirement, p.Default)
					} else {
						fmt.Fprintf(&b, "- %s (%s): %s [%s]\n", p.Name, p.Type, p.Description, requirement)
					}
				}
			}
			if hints := sampleQueries(sk); len(hints) > 0 {
				b.WriteString("Example queries:\n")
				for _, h := range hints {
					fmt.Fprintf(&b, "- %s\n", h)
				}
			}
		}
	}

	b.WriteString(buildMemoryContext(state))

	b.WriteString(`
## Instructions for Reasoning
1. Resolve pronouns and references ("he", "she", "it", "this") against the key facts and prior messages before deciding.
2. Think through the user's message and determine the best course of action.
3. Either use one of your skills to gather information, or respond directly when you already have enough.
4. When using a skill, specify the skill_id and parameters.
5. Keep continuity with previously discussed entities.
`)

	if cfg.Persona.SystemPrompt != "" {
		b.WriteString("\n" + cfg.Persona.SystemPrompt + "\n")
	}
	return b.String()
}

func sampleQueries(sk *core.Skill) []string {
	var hints []string
	for _, p := range sk.InvocationPatterns {
		for _, q := range p.SampleQueries {
			hints = append(hints, q)
			if len(hints) >= 3 {
				return hints
			}
		}
	}
	return hints
}

// buildMemoryContext renders the summary and key facts, with entity-bearing
// facts in their own leading section for pronoun resolution.
func buildMemoryContext(state *core.ConversationState) string {
	if state.Memory == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n## Memory and Context\n")

	if state.Memory.ConversationSummary != "" {
		fmt.Fprintf(&b, "\n### Conversation Summary\n%s\n", state.Memory.ConversationSummary)
	}

	var entities []string
	facts := state.Memory.KeyFacts
	start := 0
	if len(facts) > 10 {
		start = len(facts) - 10
	}
	for _, fact := range facts[start:] {
		lower := " " + strings.ToLower(fact) + " "
		for _, marker := range []string{" is ", " was ", " named ", " called ", " person ", " entity "} {
			if strings.Contains(lower, marker) {
				entities = append(entities, fact)
				break
			}
		}
	}
	if len(entities) > 0 {
		b.WriteString("\n### Important Entities and People\n")
		for _, e := range entities {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	if len(facts) > 0 {
		b.WriteString("\n### All Key Facts\n")
		for _, f := range facts {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	return b.String()
}

// formatSkillResult renders the latest skill result for the response prompt.
// The shape varies by skill so the model sees readable material rather than
// raw JSON.
func formatSkillResult(result *core.SkillResult) string {
	if result == nil {
		return "No skill results available."
	}
	if result.Status == core.StatusError {
		return fmt.Sprintf("Error executing skill %s: %s", result.SkillID, result.Error)
	}

	payload, _ := result.Result.(map[string]any)

	switch result.SkillID {
	case "web-search":
		var b strings.Builder
		b.WriteString("Web search results:\n\n")
		if items, ok := payload["results"].([]any); ok {
			for i, raw := range items {
				item, _ := raw.(map[string]any)
				fmt.Fprintf(&b, "%d. %v\n   Link: %v\n   %v\n\n",
					i+1, valueOr(item, "title", "No title"),
					valueOr(item, "link", "No link"),
					valueOr(item, "snippet", "No snippet"))
			}
		}
		return b.String()
	case "summarize-text":
		if summary, ok := payload["summary"].(string); ok {
			return "Text summarization:\n\n" + summary
		}
		return "Summarization completed but no summary is available."
	case "ask-follow-up":
		var b strings.Builder
		b.WriteString("Generated follow-up questions:\n\n")
		if questions, ok := payload["questions"].([]any); ok {
			for i, q := range questions {
				fmt.Fprintf(&b, "%d. %v\n", i+1, q)
			}
		}
		return b.String()
	default:
		return fmt.Sprintf("Skill %s executed with result: %v", result.SkillID, result.Result)
	}
}

func valueOr(m map[string]any, key, fallback string) any {
	if m == nil {
		return fallback
	}
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return fallback
}

// buildResponsePrompt assembles the final synthesis prompt from the latest
// user message, the recent thought log, and the formatted skill result.
func buildResponsePrompt(state *core.ConversationState) string {
	userContent := "No message available."
	if latest := state.LatestUserMessage(); latest != nil {
		userContent = latest.Content
	}

	thoughts := "No thought process available."
	if len(state.Thoughts) > 0 {
		recent := state.Thoughts
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		thoughts = strings.Join(recent, "\n")
	}

	return fmt.Sprintf(`## User's Most Recent Message
%s

## Your Thought Process
%s

## Skill Execution Results
%s

Based on the above information, provide a helpful response to the user that addresses their query. Be natural and conversational while staying accurate and informative.

Your response:`, userContent, thoughts, formatSkillResult(state.LatestSkillResult()))
}

func buildResponseSystemPrompt(cfg *core.AgentConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a helpful assistant.\n", cfg.Persona.Name)
	if cfg.Persona.Tone != "" {
		fmt.Fprintf(&b, "\nTone: %s\n", cfg.Persona.Tone)
	}
	b.WriteString("\nFormulate a clear, concise and helpful response based on the gathered information and your reasoning. Synthesize search results rather than listing them.\n")
	if cfg.Persona.SystemPrompt != "" {
		b.WriteString("\n" + cfg.Persona.SystemPrompt + "\n")
	}
	return b.String()
}

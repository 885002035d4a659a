// Package util holds small internal helpers shared across packages.
package util

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON indicates no parseable JSON object could be recovered from the
// model output after every extraction pass.
var ErrNoJSON = errors.New("no JSON object found in text")

// ExtractJSON recovers a JSON object from model output. It tries, in order:
// a strict parse of the whole text, the contents of a ```json fenced block,
// then the first balanced top-level brace pair.
func ExtractJSON(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)

	var out map[string]any
	if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
		return out, nil
	}

	if block, ok := fencedBlock(trimmed); ok {
		if err := json.Unmarshal([]byte(block), &out); err == nil {
			return out, nil
		}
	}

	if braced, ok := firstBalancedObject(trimmed); ok {
		if err := json.Unmarshal([]byte(braced), &out); err == nil {
			return out, nil
		}
	}

	return nil, ErrNoJSON
}

// fencedBlock returns the body of the first ```json (or bare ```) fence.
func fencedBlock(text string) (string, bool) {
	for _, marker := range []string{"```json", "```"} {
		start := strings.Index(text, marker)
		if start < 0 {
			continue
		}
		rest := text[start+len(marker):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		return strings.TrimSpace(rest[:end]), true
	}
	return "", false
}

// firstBalancedObject scans for the first '{' and returns the substring up
// to its matching '}', tracking strings and escapes so braces inside quoted
// values do not miscount.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

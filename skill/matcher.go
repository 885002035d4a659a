package skill

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/convoke/convoke/core"
	"github.com/convoke/convoke/logging"
)

// Match is the outcome of pattern matching: the winning skill and the
// parameters its extraction rules produced.
type Match struct {
	Skill      *core.Skill
	Pattern    core.InvocationPattern
	Parameters map[string]any
}

// Matcher evaluates invocation patterns against a user message. All pattern
// types match case-insensitively. Among matching patterns the highest
// priority wins; ties break by skill ID, then pattern index, so the outcome
// is stable regardless of skill iteration order.
type Matcher struct {
	logger logging.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(logger logging.Logger) *Matcher {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Matcher{logger: logger}
}

type candidate struct {
	skill        *core.Skill
	pattern      core.InvocationPattern
	patternIndex int
}

// Match returns the winning skill invocation for the message, or nil when no
// pattern matches.
func (m *Matcher) Match(message string, skills []*core.Skill) *Match {
	lower := strings.ToLower(message)

	var candidates []candidate
	for _, sk := range skills {
		for i, p := range sk.InvocationPatterns {
			if patternMatches(p, message, lower) {
				candidates = append(candidates, candidate{skill: sk, pattern: p, patternIndex: i})
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.pattern.Priority != b.pattern.Priority {
			return a.pattern.Priority > b.pattern.Priority
		}
		if a.skill.ID != b.skill.ID {
			return a.skill.ID < b.skill.ID
		}
		return a.patternIndex < b.patternIndex
	})

	winner := candidates[0]
	params := extractParameters(winner.pattern, message)
	m.logger.Debug("invocation pattern matched",
		"skill_id", winner.skill.ID, "pattern", winner.pattern.Pattern, "priority", winner.pattern.Priority)
	return &Match{Skill: winner.skill, Pattern: winner.pattern, Parameters: params}
}

func patternMatches(p core.InvocationPattern, original, lower string) bool {
	pat := strings.ToLower(p.Pattern)
	switch p.Type {
	case core.PatternKeyword:
		return containsWord(lower, pat)
	case core.PatternRegex:
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(original)
	case core.PatternStartsWith:
		return strings.HasPrefix(lower, pat)
	case core.PatternContains:
		return strings.Contains(lower, pat)
	default:
		return false
	}
}

// containsWord reports whether needle appears in haystack bounded by
// non-alphanumeric characters, so "stock" does not match "stockholm".
func containsWord(haystack, needle string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		beforeOK := start == 0 || !isWordChar(haystack[start-1])
		afterOK := end == len(haystack) || !isWordChar(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// indexAfterFold returns the byte offset in s immediately past the first
// case-insensitive occurrence of substr, or -1. It folds on the original
// string, so case mappings that change byte length (Turkish dotted I and
// friends) cannot skew the offset mid-rune.
func indexAfterFold(s, substr string) int {
	if substr == "" {
		return -1
	}
	for i := 0; i < len(s); i++ {
		if !utf8.RuneStart(s[i]) {
			continue
		}
		limit := i + 4*len(substr)
		if limit > len(s) {
			limit = len(s)
		}
		for j := i + 1; j <= limit; j++ {
			if j < len(s) && !utf8.RuneStart(s[j]) {
				continue
			}
			if strings.EqualFold(s[i:j], substr) {
				return j
			}
		}
	}
	return -1
}

func extractParameters(p core.InvocationPattern, original string) map[string]any {
	params := map[string]any{}
	for name, rule := range p.ParameterExtraction {
		switch rule.Source {
		case core.ExtractContent:
			params[name] = original
		case core.ExtractKeywordAfter:
			keyword := rule.Keyword
			if keyword == "" {
				keyword = p.Pattern
			}
			if end := indexAfterFold(original, keyword); end >= 0 {
				after := strings.TrimSpace(original[end:])
				if after != "" {
					params[name] = after
				} else {
					params[name] = original
				}
			} else {
				params[name] = original
			}
		case core.ExtractConstant:
			params[name] = rule.Value
		}
	}
	return params
}

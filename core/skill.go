package core

import "time"

// ParamType enumerates the parameter types a skill may declare.
type ParamType string

const (
	// ParamString is a plain string parameter.
	ParamString ParamType = "string"
	// ParamInteger is an integer parameter. JSON numbers without a
	// fractional part are accepted.
	ParamInteger ParamType = "integer"
	// ParamFloat is a floating point parameter.
	ParamFloat ParamType = "float"
	// ParamBoolean is a boolean parameter.
	ParamBoolean ParamType = "boolean"
	// ParamArray is a list parameter.
	ParamArray ParamType = "array"
	// ParamObject is a nested object parameter.
	ParamObject ParamType = "object"
)

// SkillParameter declares one parameter of a skill: its type, whether it is
// required, an optional default for absent optionals, and an optional enum of
// allowed values.
type SkillParameter struct {
	Name        string    `json:"name" yaml:"name"`
	Type        ParamType `json:"type" yaml:"type"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool      `json:"required" yaml:"required"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Enum        []any     `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// PatternType enumerates how an invocation pattern matches a message.
type PatternType string

const (
	// PatternKeyword matches when the pattern appears as a whole word.
	PatternKeyword PatternType = "keyword"
	// PatternRegex matches by regular expression.
	PatternRegex PatternType = "regex"
	// PatternStartsWith matches a message prefix.
	PatternStartsWith PatternType = "startswith"
	// PatternContains matches a substring anywhere in the message.
	PatternContains PatternType = "contains"
)

// ExtractionSource enumerates how a matched pattern fills one skill parameter.
type ExtractionSource string

const (
	// ExtractContent uses the full message content.
	ExtractContent ExtractionSource = "content"
	// ExtractKeywordAfter uses the text following a keyword.
	ExtractKeywordAfter ExtractionSource = "keyword_after"
	// ExtractConstant injects a fixed value.
	ExtractConstant ExtractionSource = "constant"
)

// ExtractionRule describes how one parameter is populated when an invocation
// pattern matches.
type ExtractionRule struct {
	Source ExtractionSource `json:"source" yaml:"source"`
	// Keyword is the marker for ExtractKeywordAfter.
	Keyword string `json:"keyword,omitempty" yaml:"keyword,omitempty"`
	// Value is the injected constant for ExtractConstant.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`
}

// InvocationPattern lets a skill be selected deterministically from the text
// of a user message, skipping the reasoning model call. Among all matching
// patterns the highest Priority wins.
type InvocationPattern struct {
	Pattern             string                    `json:"pattern" yaml:"pattern"`
	Type                PatternType               `json:"type" yaml:"type"`
	Priority            int                       `json:"priority" yaml:"priority"`
	SampleQueries       []string                  `json:"sample_queries,omitempty" yaml:"sample_queries,omitempty"`
	ParameterExtraction map[string]ExtractionRule `json:"parameter_extraction,omitempty" yaml:"parameter_extraction,omitempty"`
}

// Skill is the registered metadata for an external capability. The bound
// implementation lives in the skill package; this record is what the registry
// persists and the reasoning node advertises to the model.
type Skill struct {
	ID                 string              `json:"id" yaml:"id"`
	Name               string              `json:"name" yaml:"name"`
	Description        string              `json:"description" yaml:"description"`
	Parameters         []SkillParameter    `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	ResponseSchema     map[string]any      `json:"response_schema,omitempty" yaml:"response_schema,omitempty"`
	Tags               []string            `json:"tags,omitempty" yaml:"tags,omitempty"`
	InvocationPatterns []InvocationPattern `json:"invocation_patterns,omitempty" yaml:"invocation_patterns,omitempty"`
}

// Parameter returns the declared parameter with the given name, or nil.
func (s *Skill) Parameter(name string) *SkillParameter {
	for i := range s.Parameters {
		if s.Parameters[i].Name == name {
			return &s.Parameters[i]
		}
	}
	return nil
}

// SkillExecution is a request to run a skill within a conversation turn.
type SkillExecution struct {
	SkillID        string         `json:"skill_id"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	AgentID        string         `json:"agent_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	// Reason is the model's (or matcher's) justification for the selection.
	Reason string `json:"reason,omitempty"`
}

// ResultStatus is the outcome category of a SkillResult.
type ResultStatus string

const (
	// StatusSuccess marks a successful execution.
	StatusSuccess ResultStatus = "success"
	// StatusError marks a failed execution. Error holds the message.
	StatusError ResultStatus = "error"
)

// SkillResult is the uniform outcome of a skill execution, success or error.
// Created once per invocation, persisted for audit, never mutated afterwards.
type SkillResult struct {
	ID        string         `json:"id"`
	SkillID   string         `json:"skill_id"`
	Status    ResultStatus   `json:"status"`
	Result    any            `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewSkillResult creates a success result for the given skill.
func NewSkillResult(skillID string, result any) *SkillResult {
	return &SkillResult{
		ID:        NewID(),
		SkillID:   skillID,
		Status:    StatusSuccess,
		Result:    result,
		Timestamp: time.Now().UTC(),
	}
}

// NewSkillError creates an error result for the given skill.
func NewSkillError(skillID, errMsg string) *SkillResult {
	return &SkillResult{
		ID:        NewID(),
		SkillID:   skillID,
		Status:    StatusError,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	}
}

// OK reports whether the result is a success.
func (r *SkillResult) OK() bool { return r.Status == StatusSuccess }

package skill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoke/convoke/core"
)

func validatorSkill() *core.Skill {
	return &core.Skill{
		ID: "test-skill",
		Parameters: []core.SkillParameter{
			{Name: "query", Type: core.ParamString, Required: true},
			{Name: "limit", Type: core.ParamInteger, Default: 5},
			{Name: "mode", Type: core.ParamString, Default: "web", Enum: []any{"web", "news"}},
			{Name: "flag", Type: core.ParamBoolean},
		},
	}
}

func TestValidateMissingRequired(t *testing.T) {
	v := NewValidator()
	res := v.Validate(validatorSkill(), map[string]any{})
	assert.False(t, res.Valid)
	require.Contains(t, res.Errors, "query")
	assert.Contains(t, res.Errors["query"][0], "query")
}

func TestValidateUnknownParameter(t *testing.T) {
	v := NewValidator()
	res := v.Validate(validatorSkill(), map[string]any{"query": "x", "bogus": 1})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "bogus")
}

func TestValidateDefaultsFilled(t *testing.T) {
	v := NewValidator()
	res := v.Validate(validatorSkill(), map[string]any{"query": "x"})
	require.True(t, res.Valid)
	assert.Equal(t, 5, res.Params["limit"])
	assert.Equal(t, "web", res.Params["mode"])
	// no default declared, so no entry
	assert.NotContains(t, res.Params, "flag")
}

func TestValidateTypeChecks(t *testing.T) {
	v := NewValidator()

	res := v.Validate(validatorSkill(), map[string]any{"query": 42})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "query")

	res = v.Validate(validatorSkill(), map[string]any{"query": "x", "flag": "yes"})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "flag")
}

func TestValidateIntegerToleratesJSONNumbers(t *testing.T) {
	v := NewValidator()
	// decoded JSON carries numbers as float64
	res := v.Validate(validatorSkill(), map[string]any{"query": "x", "limit": float64(10)})
	require.True(t, res.Valid, "%v", res.Errors)
	assert.Equal(t, float64(10), res.Params["limit"])

	res = v.Validate(validatorSkill(), map[string]any{"query": "x", "limit": 2.5})
	assert.False(t, res.Valid)
}

func TestValidateEnum(t *testing.T) {
	v := NewValidator()
	res := v.Validate(validatorSkill(), map[string]any{"query": "x", "mode": "videos"})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors["mode"][0], "must be one of")

	res = v.Validate(validatorSkill(), map[string]any{"query": "x", "mode": "news"})
	assert.True(t, res.Valid)
}

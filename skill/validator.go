package skill

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/convoke/convoke/core"
)

// ValidationResult reports the outcome of parameter validation. Params holds
// the normalized parameters: provided values that passed their checks plus
// defaults filled in for absent optionals.
type ValidationResult struct {
	Valid  bool                `json:"valid"`
	Errors map[string][]string `json:"errors,omitempty"`
	Params map[string]any      `json:"params,omitempty"`
}

// ErrorSummary flattens the per-parameter errors into one line for result
// payloads and observations.
func (r ValidationResult) ErrorSummary() string {
	var parts []string
	for name, errs := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(errs, "; ")))
	}
	return strings.Join(parts, " | ")
}

// Validator checks call parameters against a skill's declarations. Unknown
// parameters are rejected outright.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator { return &Validator{} }

// Validate checks required presence, types, enum membership and unknown
// parameters, filling defaults for absent optionals.
func (v *Validator) Validate(skill *core.Skill, params map[string]any) ValidationResult {
	errors := map[string][]string{}
	validated := map[string]any{}

	addErr := func(name, msg string) {
		errors[name] = append(errors[name], msg)
	}

	for i := range skill.Parameters {
		p := &skill.Parameters[i]
		value, present := params[p.Name]
		if !present {
			if p.Required {
				addErr(p.Name, fmt.Sprintf("required parameter %q is missing", p.Name))
			} else if p.Default != nil {
				validated[p.Name] = p.Default
			}
			continue
		}
		if errs := checkValue(p, value); len(errs) > 0 {
			errors[p.Name] = append(errors[p.Name], errs...)
			continue
		}
		validated[p.Name] = value
	}

	for name := range params {
		if skill.Parameter(name) == nil {
			addErr(name, fmt.Sprintf("unknown parameter %q", name))
		}
	}

	res := ValidationResult{Valid: len(errors) == 0, Params: validated}
	if len(errors) > 0 {
		res.Errors = errors
	}
	return res
}

func checkValue(p *core.SkillParameter, value any) []string {
	var errs []string
	if value == nil {
		if p.Required {
			errs = append(errs, fmt.Sprintf("required parameter %q cannot be null", p.Name))
		}
		return errs
	}

	if len(p.Enum) > 0 && !enumContains(p.Enum, value) {
		allowed := make([]string, len(p.Enum))
		for i, e := range p.Enum {
			allowed[i] = fmt.Sprintf("%v", e)
		}
		errs = append(errs, fmt.Sprintf("value %v for parameter %q must be one of: %s",
			value, p.Name, strings.Join(allowed, ", ")))
	}

	switch p.Type {
	case core.ParamString:
		if _, ok := value.(string); !ok {
			errs = append(errs, fmt.Sprintf("parameter %q must be a string", p.Name))
		}
	case core.ParamInteger:
		if !isInteger(value) {
			errs = append(errs, fmt.Sprintf("parameter %q must be an integer", p.Name))
		}
	case core.ParamFloat:
		if !isNumber(value) {
			errs = append(errs, fmt.Sprintf("parameter %q must be a number", p.Name))
		}
	case core.ParamBoolean:
		if _, ok := value.(bool); !ok {
			errs = append(errs, fmt.Sprintf("parameter %q must be a boolean", p.Name))
		}
	case core.ParamArray:
		if reflect.ValueOf(value).Kind() != reflect.Slice {
			errs = append(errs, fmt.Sprintf("parameter %q must be an array", p.Name))
		}
	case core.ParamObject:
		if reflect.ValueOf(value).Kind() != reflect.Map {
			errs = append(errs, fmt.Sprintf("parameter %q must be an object", p.Name))
		}
	}
	return errs
}

// isInteger accepts native integer types plus JSON's float64 when it carries
// a whole number, since decoded documents never hold native ints.
func isInteger(value any) bool {
	switch n := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return n == math.Trunc(n)
	case float32:
		return float64(n) == math.Trunc(float64(n))
	default:
		return false
	}
}

func isNumber(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

func enumContains(enum []any, value any) bool {
	for _, e := range enum {
		if reflect.DeepEqual(e, value) {
			return true
		}
		// tolerate numeric representation differences after JSON decoding
		if fmt.Sprintf("%v", e) == fmt.Sprintf("%v", value) {
			return true
		}
	}
	return false
}

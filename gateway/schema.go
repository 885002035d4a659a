package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"github.com/convoke/convoke/internal/util"
)

// parseStructured recovers a JSON object from backend text via the
// extraction ladder and validates it against the requested schema.
func parseStructured(text string, schema map[string]any) (map[string]any, error) {
	doc, err := util.ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode output schema: %w", err)
	}
	compiled, err := jsonschema.NewCompiler().Compile(schemaBytes)
	if err != nil {
		return nil, fmt.Errorf("compile output schema: %w", err)
	}

	result := compiled.Validate(doc)
	if !result.IsValid() {
		return nil, fmt.Errorf("document does not conform to schema: %s", result.Error())
	}
	return doc, nil
}

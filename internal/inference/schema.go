// Package inference defines the JSON contract with the external model: the
// per-request schema built from the requested field subset, and strict
// validation of whatever comes back.
package inference

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/labwise/medextract/internal/schema"
)

// BuildExtractionSchema builds the JSON schema for one request. Every
// requested field accepts number, string, or null; fields with a paired
// out-of-range flag also get a "<field>_Flag" property constrained to
// HIGH/LOW/null. additionalProperties is false so a hallucinated key fails
// validation instead of leaking into the record.
func BuildExtractionSchema(requested []string) map[string]any {
	props := make(map[string]any, len(requested)*2)
	for _, name := range requested {
		props[name] = map[string]any{
			"anyOf": []any{
				map[string]any{"type": "number"},
				map[string]any{"type": "string"},
				map[string]any{"type": "null"},
			},
		}
		if def, ok := schema.Lookup(name); ok && def.HasFlag {
			props[name+"_Flag"] = map[string]any{
				"anyOf": []any{
					map[string]any{"type": "string", "enum": []any{"HIGH", "LOW"}},
					map[string]any{"type": "null"},
				},
			}
		}
	}
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

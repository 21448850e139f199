package tools

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compileSpecSchema builds and compiles the JSON schema for one tool spec:
// an object with string-typed properties for every declared argument, the
// required list from the spec, and no additional properties. Validating an
// argument map against it rejects unrecognized argument names before any
// backend work happens.
func compileSpecSchema(spec Spec) (*jsonschema.Schema, error) {
	props := make(map[string]any, len(spec.Required)+len(spec.Optional))
	for _, name := range spec.Required {
		props[name] = map[string]any{"type": "string", "minLength": 1}
	}
	for _, name := range spec.Optional {
		props[name] = map[string]any{"type": "string"}
	}

	doc := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(spec.Required) > 0 {
		doc["required"] = spec.Required
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema for %s: %w", spec.Name, err)
	}
	compiled, err := jsonschema.CompileString(spec.Name+".schema.json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", spec.Name, err)
	}
	return compiled, nil
}

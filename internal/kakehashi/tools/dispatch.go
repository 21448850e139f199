package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kakehashi/kakehashi/common/trace"
)

// Dispatcher is the validation boundary in front of the Registry. It coerces
// raw argument mappings to strings, enforces required-argument presence and
// schema shape, and only then lets execution proceed.
//
// Dispatch is total: every outcome, including an unknown tool name, is a
// Result envelope. Nothing propagates to the caller as an error or panic.
type Dispatcher struct {
	registry *Registry
	schemas  map[string]*jsonschema.Schema
}

// NewDispatcher compiles the argument schema for every registered tool.
// Schema compilation only fails on a malformed spec declaration, which is a
// programming error surfaced at startup rather than per request.
func NewDispatcher(registry *Registry) (*Dispatcher, error) {
	schemas := make(map[string]*jsonschema.Schema)
	for _, spec := range registry.Catalog() {
		compiled, err := compileSpecSchema(spec)
		if err != nil {
			return nil, err
		}
		schemas[spec.Name] = compiled
	}
	return &Dispatcher{registry: registry, schemas: schemas}, nil
}

// Dispatch validates raw against the named tool's spec and executes it.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, raw map[string]any) Result {
	spec, ok := d.registry.Lookup(name)
	if !ok {
		return Failure("unknown tool: %s", name)
	}

	args, coerced := coerceArgs(raw)

	if missing := missingRequired(spec, args); len(missing) > 0 {
		return Failure("%s", requiredMessage(missing))
	}

	if err := d.schemas[name].Validate(coerced); err != nil {
		return Failure("invalid arguments for %s: %s", name, schemaErrorSummary(err))
	}

	invocationID := uuid.NewString()
	slog.Info("dispatching tool",
		"tool", name,
		"invocation_id", invocationID,
		"trace_id", trace.FromContext(ctx),
		"args", len(args),
	)

	result := d.registry.Execute(ctx, name, args)
	if !result.OK {
		slog.Warn("tool returned failure",
			"tool", name,
			"invocation_id", invocationID,
			"error", result.ErrorMessage,
		)
	}
	return result
}

// coerceArgs converts every raw value to its string form. The string-typed
// Args map feeds execution; the map[string]any mirror feeds the JSON-schema
// validator, which expects decoded-JSON value types.
func coerceArgs(raw map[string]any) (Args, map[string]any) {
	args := make(Args, len(raw))
	coerced := make(map[string]any, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		args[k] = s
		coerced[k] = s
	}
	return args, coerced
}

func missingRequired(spec Spec, args Args) []string {
	var missing []string
	for _, name := range spec.Required {
		if args[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func requiredMessage(missing []string) string {
	if len(missing) == 1 {
		return missing[0] + " is required"
	}
	return strings.Join(missing, ", ") + " are required"
}

// schemaErrorSummary flattens a jsonschema validation error to its most
// specific cause so users see "additional property X not allowed" instead of
// the full schema location tree.
func schemaErrorSummary(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve.Message
}

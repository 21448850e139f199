package tools

import (
	"encoding/json"
	"fmt"
)

// Result is the uniform envelope every tool execution produces: either a
// success carrying a JSON-shaped payload, or a failure carrying a message.
// Exactly one of the two branches is populated.
type Result struct {
	OK           bool
	Payload      map[string]any
	ErrorMessage string
}

// Success returns a success envelope wrapping payload.
func Success(payload map[string]any) Result {
	return Result{OK: true, Payload: payload}
}

// Failure returns a failure envelope with a formatted message.
func Failure(format string, args ...any) Result {
	return Result{ErrorMessage: fmt.Sprintf(format, args...)}
}

// JSON serializes the envelope for transports that carry it as a single text
// block (the MCP channel). The output is stable for identical input.
func (r Result) JSON() string {
	var doc map[string]any
	if r.OK {
		doc = map[string]any{"success": true}
		for k, v := range r.Payload {
			doc[k] = v
		}
	} else {
		doc = map[string]any{"success": false, "error": r.ErrorMessage}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		// Payloads are built from decoded JSON, so this cannot happen in
		// practice; keep the envelope contract total anyway.
		return fmt.Sprintf(`{"success":false,"error":"encode result: %s"}`, err)
	}
	return string(b)
}

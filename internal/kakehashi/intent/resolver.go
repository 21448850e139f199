// Package intent maps free-text chat messages to tool calls. Two resolver
// strategies exist: a deterministic positional parser for a fixed command
// grammar, and a model-assisted resolver that asks a local text-generation
// endpoint to pick the tool and arguments. Both are best-effort classifiers;
// the dispatcher is the validation boundary, not this package.
package intent

import (
	"context"
	"errors"
)

// ListToolsName is the pseudo-tool produced when the user asks what the bot
// can do. It never reaches the dispatcher; the app answers it from the
// catalogue directly.
const ListToolsName = "list-tools"

// ToolCall is the resolved intent: one tool name plus raw string arguments.
type ToolCall struct {
	Tool      string
	Arguments map[string]string
}

// ErrNoMatch is returned when a message cannot be mapped to any tool call.
// Callers should use errors.Is to distinguish this expected case from real
// errors and reply with a clarification instead of dispatching.
var ErrNoMatch = errors.New("message does not resolve to a tool call")

// Resolver turns one user message into a ToolCall.
type Resolver interface {
	Resolve(ctx context.Context, message string) (*ToolCall, error)
}

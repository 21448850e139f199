package intent

import (
	"context"
	"strings"

	"github.com/kakehashi/kakehashi/internal/kakehashi/tools"
)

// TokenParser is the deterministic resolver: whitespace tokenization with the
// second token as the tool name and the rest bound positionally to the tool's
// required arguments in declaration order. The first token is the bot mention
// and is ignored, whatever form the chat platform gives it.
//
// Flags in "--name value" form may follow the positional arguments and bind
// by argument name, covering the optional arguments positional order cannot
// reach.
type TokenParser struct {
	catalog []tools.Spec
}

// NewTokenParser builds a parser over the registry's catalogue.
func NewTokenParser(catalog []tools.Spec) *TokenParser {
	return &TokenParser{catalog: catalog}
}

// Resolve implements Resolver. Fewer than two tokens yields ErrNoMatch. An
// unknown tool name still resolves, with empty arguments; the dispatcher owns
// the "unknown tool" reply so the user sees the same message on every path.
func (p *TokenParser) Resolve(_ context.Context, message string) (*ToolCall, error) {
	parts := strings.Fields(message)
	if len(parts) < 2 {
		return nil, ErrNoMatch
	}

	name := parts[1]
	call := &ToolCall{Tool: name, Arguments: map[string]string{}}

	spec, known := p.lookup(name)
	if !known {
		return call, nil
	}

	positional, flags := splitFlags(parts[2:])
	bindPositional(call.Arguments, spec.Required, positional)
	for k, v := range flags {
		call.Arguments[k] = v
	}
	return call, nil
}

func (p *TokenParser) lookup(name string) (tools.Spec, bool) {
	for _, spec := range p.catalog {
		if spec.Name == name {
			return spec, true
		}
	}
	return tools.Spec{}, false
}

// splitFlags separates "--name value" pairs from positional tokens. A flag
// without a following value binds "true", same as the chat command grammar.
func splitFlags(parts []string) ([]string, map[string]string) {
	var positional []string
	flags := make(map[string]string)
	for i := 0; i < len(parts); i++ {
		if strings.HasPrefix(parts[i], "--") {
			name := strings.TrimPrefix(parts[i], "--")
			if i+1 < len(parts) && !strings.HasPrefix(parts[i+1], "--") {
				flags[name] = parts[i+1]
				i++
			} else {
				flags[name] = "true"
			}
			continue
		}
		positional = append(positional, parts[i])
	}
	return positional, flags
}

// bindPositional assigns tokens to required argument names in order. Surplus
// tokens join the final argument so multi-word trailing values survive
// whitespace tokenization.
func bindPositional(args map[string]string, required, positional []string) {
	for i, name := range required {
		if i >= len(positional) {
			return
		}
		if i == len(required)-1 {
			args[name] = strings.Join(positional[i:], " ")
			return
		}
		args[name] = positional[i]
	}
}

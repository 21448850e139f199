package intent

import (
	"fmt"
	"strings"

	"github.com/kakehashi/kakehashi/internal/kakehashi/tools"
)

// promptTmpl is the instruction set sent to the generation endpoint. Two
// printf verbs are substituted at call time:
//  1. %s — tool catalogue (one line per tool: name, arguments, description)
//  2. %s — the user's message
const promptTmpl = `You are Kakehashi, a chat assistant that maps user requests onto tool calls
against an issue tracker and a wiki.

Your only job is to translate the user's message into a single JSON object.
You NEVER execute tools yourself — you only name the call.

Available tools:
%s

RULES (strict — do not deviate):
1. Respond ONLY with valid JSON. No markdown, no code fences, no explanation.
2. Pick exactly one tool from the list above; do not invent tool names.
3. Argument values are plain strings taken from the user's message.
4. Omit arguments the user did not supply; never fabricate values.

JSON shape for your response:
{"tool": "<tool name>", "arguments": {"<arg>": "<value>", ...}}

User message: %s`

// buildPrompt renders the full prompt for one message.
func buildPrompt(catalog []tools.Spec, message string) string {
	return fmt.Sprintf(promptTmpl, CatalogText(catalog), message)
}

// CatalogText renders the tool catalogue as one line per tool. The same text
// feeds the model prompt and the list-tools chat reply.
func CatalogText(catalog []tools.Spec) string {
	var b strings.Builder
	for _, spec := range catalog {
		b.WriteString("- ")
		b.WriteString(spec.Name)
		for _, arg := range spec.Required {
			fmt.Fprintf(&b, " <%s>", arg)
		}
		for _, arg := range spec.Optional {
			fmt.Fprintf(&b, " [--%s]", arg)
		}
		if spec.Description != "" {
			b.WriteString(": ")
			b.WriteString(spec.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

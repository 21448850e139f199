package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kakehashi/kakehashi/internal/kakehashi/tools"
)

const (
	defaultModelBase = "http://localhost:11434"
	defaultModel     = "llama3.2"
	defaultTimeout   = 30 * time.Second
)

// metaKeywords short-circuit to the list-tools pseudo-call without touching
// the model. Substring match, case-insensitive.
var metaKeywords = []string{"list", "tools", "help", "commands"}

// ModelConfig configures the model-assisted resolver.
type ModelConfig struct {
	// BaseURL is the generation endpoint root. Defaults to the local
	// Ollama port.
	BaseURL string

	// Model is the generation model identifier. Defaults to llama3.2.
	Model string

	// Timeout is the HTTP request timeout. Defaults to 30 s.
	Timeout time.Duration
}

// ModelResolver asks a local text-generation endpoint to pick the tool call.
// Safe for concurrent use.
type ModelResolver struct {
	cfg     ModelConfig
	catalog []tools.Spec
	client  *http.Client
}

// NewModelResolver builds a resolver over the registry's catalogue.
func NewModelResolver(cfg ModelConfig, catalog []tools.Spec) *ModelResolver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultModelBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &ModelResolver{
		cfg:     cfg,
		catalog: catalog,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// --- generation endpoint wire types ---

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// modelToolCall is the shape the prompt asks the model to emit.
type modelToolCall struct {
	Tool      string            `json:"tool"`
	Arguments map[string]string `json:"arguments"`
}

// Resolve implements Resolver. Meta-keyword messages resolve to the
// list-tools pseudo-call without a network request. Everything the model does
// wrong — no JSON in the reply, malformed JSON, an empty tool name — maps to
// ErrNoMatch so the caller asks for clarification instead of guessing.
func (r *ModelResolver) Resolve(ctx context.Context, message string) (*ToolCall, error) {
	lowered := strings.ToLower(message)
	for _, kw := range metaKeywords {
		if strings.Contains(lowered, kw) {
			return &ToolCall{Tool: ListToolsName, Arguments: map[string]string{}}, nil
		}
	}

	reply, err := r.generate(ctx, buildPrompt(r.catalog, message))
	if err != nil {
		return nil, err
	}

	fragment, ok := extractJSON(reply)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in model reply", ErrNoMatch)
	}

	var call modelToolCall
	if err := json.Unmarshal([]byte(fragment), &call); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMatch, err)
	}
	if call.Tool == "" {
		return nil, fmt.Errorf("%w: model reply has no tool name", ErrNoMatch)
	}
	if call.Arguments == nil {
		call.Arguments = map[string]string{}
	}
	return &ToolCall{Tool: call.Tool, Arguments: call.Arguments}, nil
}

// generate performs one non-streaming completion request.
func (r *ModelResolver) generate(ctx context.Context, prompt string) (string, error) {
	data, err := json.Marshal(generateRequest{
		Model:  r.cfg.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("intent: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.cfg.BaseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("intent: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("intent: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("intent: read response body: %w", err)
	}

	var gen generateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		return "", fmt.Errorf("intent: decode generation response: %w", err)
	}
	if gen.Error != "" {
		return "", fmt.Errorf("intent: generation endpoint error: %s", gen.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("intent: generation endpoint returned HTTP %d", resp.StatusCode)
	}
	return gen.Response, nil
}

// extractJSON returns the substring from the first "{" through the last "}".
// Models wrap their JSON in prose and code fences; everything outside the
// outermost braces is discarded before the one strict decode.
func extractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kakehashi/kakehashi/internal/kakehashi/tools"
)

func newMockDispatcher(t *testing.T) (*tools.Registry, *tools.Dispatcher) {
	t.Helper()
	registry := tools.NewRegistry(tools.RegistryConfig{
		TrackerMode: tools.Mock,
		WikiMode:    tools.Mock,
	})
	dispatcher, err := tools.NewDispatcher(registry)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return registry, dispatcher
}

func TestNewServer(t *testing.T) {
	registry, dispatcher := newMockDispatcher(t)
	if s := NewServer(registry, dispatcher); s == nil {
		t.Fatal("NewServer returned nil")
	}
}

func TestHandler_SuccessCarriesEnvelopeJSON(t *testing.T) {
	_, dispatcher := newMockDispatcher(t)
	handler := buildHandler(dispatcher, "get-issue")

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"id": "PROJ-123"}

	res, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %#v", res)
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	if !strings.Contains(text.Text, `"success":true`) || !strings.Contains(text.Text, "PROJ-123") {
		t.Errorf("unexpected envelope: %s", text.Text)
	}
}

func TestHandler_FailureBecomesErrorResult(t *testing.T) {
	_, dispatcher := newMockDispatcher(t)
	handler := buildHandler(dispatcher, "get-issue")

	res, err := handler(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !res.IsError {
		t.Fatal("missing required argument should produce an MCP error result")
	}
}

package tools_test

import (
	"context"
	"strings"
	"testing"

	"github.com/kakehashi/kakehashi/internal/kakehashi/tools"
)

func newMockDispatcher(t *testing.T) *tools.Dispatcher {
	t.Helper()
	d, err := tools.NewDispatcher(newMockRegistry())
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return d
}

func TestDispatch_UnknownTool(t *testing.T) {
	d := newMockDispatcher(t)
	res := d.Dispatch(context.Background(), "nonexistent-tool", map[string]any{})
	if res.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.ErrorMessage, "unknown tool") {
		t.Errorf("message %q should contain %q", res.ErrorMessage, "unknown tool")
	}
}

func TestDispatch_MissingRequiredNamesTheField(t *testing.T) {
	d := newMockDispatcher(t)

	tests := []struct {
		tool     string
		raw      map[string]any
		wantName string
	}{
		{"get-issue", map[string]any{}, "id"},
		{"create-issue", map[string]any{"project": "PROJ"}, "summary"},
		{"create-page", map[string]any{"space": "DOC", "title": "T"}, "content"},
		{"search-pages", map[string]any{}, "query"},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			res := d.Dispatch(context.Background(), tt.tool, tt.raw)
			if res.OK {
				t.Fatal("expected failure")
			}
			if !strings.Contains(res.ErrorMessage, tt.wantName) {
				t.Errorf("message %q should name missing argument %q", res.ErrorMessage, tt.wantName)
			}
			if !strings.Contains(res.ErrorMessage, "required") {
				t.Errorf("message %q should mention the argument is required", res.ErrorMessage)
			}
		})
	}
}

func TestDispatch_UnrecognizedArgumentRejected(t *testing.T) {
	d := newMockDispatcher(t)
	res := d.Dispatch(context.Background(), "get-issue", map[string]any{
		"id":       "PROJ-123",
		"severity": "high",
	})
	if res.OK {
		t.Fatal("expected failure for unrecognized argument")
	}
	if !strings.Contains(res.ErrorMessage, "severity") {
		t.Errorf("message %q should name the unrecognized argument", res.ErrorMessage)
	}
}

func TestDispatch_CoercesNonStringValues(t *testing.T) {
	d := newMockDispatcher(t)
	res := d.Dispatch(context.Background(), "get-page", map[string]any{"id": 200001})
	if !res.OK {
		t.Fatalf("expected success, got: %s", res.ErrorMessage)
	}
	if res.Payload["id"] != "200001" {
		t.Errorf("id should be coerced to string, got %v", res.Payload["id"])
	}
}

func TestDispatch_HappyPath(t *testing.T) {
	d := newMockDispatcher(t)
	res := d.Dispatch(context.Background(), "get-issue", map[string]any{"id": "PROJ-123"})
	if !res.OK {
		t.Fatalf("expected success, got: %s", res.ErrorMessage)
	}
	if res.Payload["key"] != "PROJ-123" {
		t.Errorf("payload key: got %v, want PROJ-123", res.Payload["key"])
	}
	if res.Payload["status"] == "" {
		t.Error("payload should carry a status field")
	}
}

func TestResultJSON(t *testing.T) {
	ok := tools.Success(map[string]any{"key": "PROJ-1"})
	s := ok.JSON()
	if !strings.Contains(s, `"success":true`) || !strings.Contains(s, `"key":"PROJ-1"`) {
		t.Errorf("unexpected success serialization: %s", s)
	}

	fail := tools.Failure("issue %q not found", "PROJ-9")
	s = fail.JSON()
	if !strings.Contains(s, `"success":false`) || !strings.Contains(s, "PROJ-9") {
		t.Errorf("unexpected failure serialization: %s", s)
	}
}

package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kakehashi/kakehashi/internal/kakehashi/tools"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Email: "bot@example.com", APIToken: "token"})
}

func TestGetIssue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/rest/api/3/issue/PROJ-123" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "bot@example.com" || pass != "token" {
			t.Error("missing or wrong basic auth")
		}
		w.Write([]byte(`{
			"id": "10001",
			"key": "PROJ-123",
			"fields": {
				"summary": "Fix login flow",
				"status": {"name": "In Progress"},
				"assignee": {"displayName": "Aoi Kuze"}
			}
		}`))
	})

	res := c.Call(context.Background(), "get-issue", tools.Args{"id": "PROJ-123"})
	if !res.OK {
		t.Fatalf("unexpected failure: %s", res.ErrorMessage)
	}
	if res.Payload["key"] != "PROJ-123" || res.Payload["summary"] != "Fix login flow" {
		t.Errorf("unexpected payload: %#v", res.Payload)
	}
	if res.Payload["status"] != "In Progress" || res.Payload["assignee"] != "Aoi Kuze" {
		t.Errorf("unexpected payload: %#v", res.Payload)
	}
}

func TestGetIssue_Unassigned(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"key": "PROJ-7", "fields": {"summary": "S", "status": {"name": "To Do"}, "assignee": null}}`))
	})

	res := c.Call(context.Background(), "get-issue", tools.Args{"id": "PROJ-7"})
	if !res.OK {
		t.Fatalf("unexpected failure: %s", res.ErrorMessage)
	}
	if res.Payload["assignee"] != "Unassigned" {
		t.Errorf("assignee: got %v, want Unassigned", res.Payload["assignee"])
	}
}

func TestGetIssue_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	res := c.Call(context.Background(), "get-issue", tools.Args{"id": "PROJ-999"})
	if res.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.ErrorMessage, "not found") {
		t.Errorf("message %q should report not found", res.ErrorMessage)
	}
}

func TestCreateIssue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/api/3/issue" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		fields := body["fields"].(map[string]any)
		if fields["summary"] != "New feature" {
			t.Errorf("summary: got %v", fields["summary"])
		}
		if fields["project"].(map[string]any)["key"] != "PROJ" {
			t.Errorf("project: got %v", fields["project"])
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "10002", "key": "PROJ-124"}`))
	})

	res := c.Call(context.Background(), "create-issue", tools.Args{
		"project":     "PROJ",
		"summary":     "New feature",
		"description": "Details here",
		"type":        "Task",
	})
	if !res.OK {
		t.Fatalf("unexpected failure: %s", res.ErrorMessage)
	}
	if res.Payload["key"] != "PROJ-124" {
		t.Errorf("key: got %v, want PROJ-124", res.Payload["key"])
	}
}

func TestUpdateIssue_StatusTransition(t *testing.T) {
	var transitionPosted bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/rest/api/3/issue/PROJ-1/transitions":
			w.Write([]byte(`{"transitions": [
				{"id": "21", "to": {"name": "In Progress"}},
				{"id": "31", "to": {"name": "Done"}}
			]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/rest/api/3/issue/PROJ-1/transitions":
			var body struct {
				Transition struct {
					ID string `json:"id"`
				} `json:"transition"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode transition body: %v", err)
			}
			if body.Transition.ID != "31" {
				t.Errorf("transition id: got %s, want 31", body.Transition.ID)
			}
			transitionPosted = true
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})

	// Target name matches case-insensitively.
	res := c.Call(context.Background(), "update-issue", tools.Args{"id": "PROJ-1", "status": "done"})
	if !res.OK {
		t.Fatalf("unexpected failure: %s", res.ErrorMessage)
	}
	if !transitionPosted {
		t.Error("transition was never posted")
	}
}

func TestUpdateIssue_UnavailableTransitionSkipped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/transitions") {
			t.Error("no transition should be posted when the target status is not offered")
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/transitions"):
			w.Write([]byte(`{"transitions": [{"id": "21", "to": {"name": "In Progress"}}]}`))
		case r.Method == http.MethodPut:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	res := c.Call(context.Background(), "update-issue", tools.Args{
		"id":      "PROJ-1",
		"status":  "Rejected",
		"summary": "Reworded",
	})
	if !res.OK {
		t.Fatalf("unexpected failure: %s", res.ErrorMessage)
	}
	updated := res.Payload["updated"].([]any)
	if len(updated) != 1 || updated[0] != "summary" {
		t.Errorf("updated fields: got %v, want [summary]", updated)
	}
}

func TestUpdateIssue_TransitionFetchFailureStopsFieldUpdate(t *testing.T) {
	var putSeen bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			putSeen = true
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	res := c.Call(context.Background(), "update-issue", tools.Args{
		"id":      "PROJ-1",
		"status":  "Done",
		"summary": "Reworded",
	})
	if res.OK {
		t.Fatal("expected failure")
	}
	if putSeen {
		t.Error("field update must not run after a transition fetch failure")
	}
}

func TestDeleteIssue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/rest/api/3/issue/PROJ-5" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	res := c.Call(context.Background(), "delete-issue", tools.Args{"id": "PROJ-5"})
	if !res.OK {
		t.Fatalf("unexpected failure: %s", res.ErrorMessage)
	}
}

func TestSearchIssues(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("jql"); got != `project = PROJ AND status = "To Do"` {
			t.Errorf("jql: got %q", got)
		}
		if got := r.URL.Query().Get("maxResults"); got != "10" {
			t.Errorf("maxResults: got %q, want 10", got)
		}
		w.Write([]byte(`{"total": 1, "issues": [
			{"key": "PROJ-8", "fields": {"summary": "Open item", "status": {"name": "To Do"}}}
		]}`))
	})

	res := c.Call(context.Background(), "search-issues", tools.Args{"jql": `project = PROJ AND status = "To Do"`})
	if !res.OK {
		t.Fatalf("unexpected failure: %s", res.ErrorMessage)
	}
	if res.Payload["count"] != 1 {
		t.Errorf("count: got %v, want 1", res.Payload["count"])
	}
	results := res.Payload["results"].([]any)
	if results[0].(map[string]any)["key"] != "PROJ-8" {
		t.Errorf("unexpected results: %#v", results)
	}
}

func TestTransportFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on
	c := New(Config{BaseURL: srv.URL, Email: "bot@example.com", APIToken: "token"})

	res := c.Call(context.Background(), "get-issue", tools.Args{"id": "PROJ-1"})
	if res.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.ErrorMessage, "unexpected error") {
		t.Errorf("message %q should report an unexpected error", res.ErrorMessage)
	}
}

package tools

// mock.go holds the canned fixtures returned when a backend family runs in
// Mock mode. Fixtures echo the caller's arguments where the real backend
// would, so the rendered output exercises the same template fields as a live
// call. Given identical arguments, every fixture is byte-for-byte identical
// across calls.

const (
	mockTrackerBase = "https://tracker.example.com"
	mockWikiBase    = "https://wiki.example.com"
)

func mockGetIssue(args Args) Result {
	id := args["id"]
	return Success(map[string]any{
		"key":      id,
		"summary":  "Sample issue summary (mock mode)",
		"status":   "In Progress",
		"assignee": "Mock User",
		"url":      mockTrackerBase + "/browse/" + id,
	})
}

func mockCreateIssue(args Args) Result {
	key := args["project"] + "-1"
	return Success(map[string]any{
		"key":     key,
		"summary": args["summary"],
		"url":     mockTrackerBase + "/browse/" + key,
	})
}

func mockUpdateIssue(args Args) Result {
	updated := []any{}
	for _, f := range []string{"summary", "description", "status", "assignee"} {
		if args[f] != "" {
			updated = append(updated, f)
		}
	}
	return Success(map[string]any{
		"key":     args["id"],
		"updated": updated,
		"url":     mockTrackerBase + "/browse/" + args["id"],
	})
}

func mockDeleteIssue(args Args) Result {
	return Success(map[string]any{"key": args["id"]})
}

func mockSearchIssues(args Args) Result {
	return Success(map[string]any{
		"query": args["jql"],
		"count": 2,
		"results": []any{
			map[string]any{
				"key":     "PROJ-101",
				"summary": "First sample match (mock mode)",
				"status":  "To Do",
				"url":     mockTrackerBase + "/browse/PROJ-101",
			},
			map[string]any{
				"key":     "PROJ-102",
				"summary": "Second sample match (mock mode)",
				"status":  "Done",
				"url":     mockTrackerBase + "/browse/PROJ-102",
			},
		},
	})
}

func mockCreatePage(args Args) Result {
	return Success(map[string]any{
		"id":    "100001",
		"title": args["title"],
		"space": args["space"],
		"url":   mockWikiBase + "/pages/100001",
	})
}

func mockGetPage(args Args) Result {
	id := args["id"]
	return Success(map[string]any{
		"id":      id,
		"title":   "Sample Page (mock mode)",
		"space":   "DOC",
		"version": 1,
		"url":     mockWikiBase + "/pages/" + id,
	})
}

func mockUpdatePage(args Args) Result {
	return Success(map[string]any{
		"id":      args["id"],
		"version": 2,
		"url":     mockWikiBase + "/pages/" + args["id"],
	})
}

func mockDeletePage(args Args) Result {
	return Success(map[string]any{"id": args["id"]})
}

func mockSearchPages(args Args) Result {
	return Success(map[string]any{
		"query": args["query"],
		"count": 2,
		"results": []any{
			map[string]any{
				"id":      "200001",
				"title":   "Sample Page One (mock mode)",
				"snippet": "…a fragment of the matched page text…",
				"url":     mockWikiBase + "/pages/200001",
			},
			map[string]any{
				"id":      "200002",
				"title":   "Sample Page Two (mock mode)",
				"snippet": "…another fragment of matched text…",
				"url":     mockWikiBase + "/pages/200002",
			},
		},
	})
}

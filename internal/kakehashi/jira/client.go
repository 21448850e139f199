// Package jira implements the live issue-tracker backend against the Jira
// Cloud REST API v3. It satisfies tools.Backend: every outcome, including
// transport faults, comes back as a Result envelope.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kakehashi/kakehashi/internal/kakehashi/tools"
)

const (
	apiPrefix        = "/rest/api/3"
	searchMaxResults = 10
	defaultTimeout   = 30 * time.Second
)

// Config carries the connection settings for one Jira site.
type Config struct {
	// BaseURL is the site root, e.g. https://example.atlassian.net.
	BaseURL string

	// Email and APIToken form the basic-auth pair. Jira Cloud uses the
	// account email as the username and an API token as the password.
	Email    string
	APIToken string

	// Timeout is the per-request HTTP timeout. Defaults to 30 s.
	Timeout time.Duration
}

// Client is the live tracker backend. Safe for concurrent use.
type Client struct {
	cfg    Config
	client *http.Client
}

// New returns a Client for the given site.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Call dispatches one tracker operation. Unknown operations cannot occur when
// routed through the registry, but the envelope contract holds regardless.
func (c *Client) Call(ctx context.Context, operation string, args tools.Args) tools.Result {
	switch operation {
	case "get-issue":
		return c.getIssue(ctx, args["id"])
	case "create-issue":
		return c.createIssue(ctx, args)
	case "update-issue":
		return c.updateIssue(ctx, args)
	case "delete-issue":
		return c.deleteIssue(ctx, args["id"])
	case "search-issues":
		return c.searchIssues(ctx, args["jql"])
	default:
		return tools.Failure("unknown tracker operation: %s", operation)
	}
}

// --- wire types (request side) ---

type issueFields struct {
	Project     *issueRef `json:"project,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Description *adfDoc   `json:"description,omitempty"`
	IssueType   *issueRef `json:"issuetype,omitempty"`
	Assignee    *assignee `json:"assignee,omitempty"`
}

type issueRef struct {
	Key  string `json:"key,omitempty"`
	Name string `json:"name,omitempty"`
}

type assignee struct {
	Name string `json:"name,omitempty"`
}

// adfDoc is the minimal Atlassian Document Format wrapper Jira v3 requires
// for description text: a single paragraph of plain text.
type adfDoc struct {
	Type    string    `json:"type"`
	Version int       `json:"version"`
	Content []adfNode `json:"content"`
}

type adfNode struct {
	Type    string    `json:"type"`
	Content []adfNode `json:"content,omitempty"`
	Text    string    `json:"text,omitempty"`
}

func adfParagraph(text string) *adfDoc {
	return &adfDoc{
		Type:    "doc",
		Version: 1,
		Content: []adfNode{{
			Type:    "paragraph",
			Content: []adfNode{{Type: "text", Text: text}},
		}},
	}
}

// --- wire types (response side) ---

type issueResponse struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name string `json:"name"`
		} `json:"status"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
	} `json:"fields"`
}

type searchResponse struct {
	Total  int             `json:"total"`
	Issues []issueResponse `json:"issues"`
}

type transitionsResponse struct {
	Transitions []struct {
		ID string `json:"id"`
		To struct {
			Name string `json:"name"`
		} `json:"to"`
	} `json:"transitions"`
}

func (c *Client) getIssue(ctx context.Context, id string) tools.Result {
	status, body, err := c.do(ctx, http.MethodGet, apiPrefix+"/issue/"+url.PathEscape(id), nil)
	if err != nil {
		return tools.Failure("unexpected error: %v", err)
	}
	if status == http.StatusNotFound {
		return tools.Failure("issue %s not found", id)
	}
	if status != http.StatusOK {
		return tools.Failure("tracker returned HTTP %d fetching issue %s", status, id)
	}

	var issue issueResponse
	if err := json.Unmarshal(body, &issue); err != nil {
		return tools.Failure("unexpected error: decode issue response: %v", err)
	}

	assigneeName := "Unassigned"
	if issue.Fields.Assignee != nil {
		assigneeName = issue.Fields.Assignee.DisplayName
	}
	return tools.Success(map[string]any{
		"key":      issue.Key,
		"summary":  issue.Fields.Summary,
		"status":   issue.Fields.Status.Name,
		"assignee": assigneeName,
		"url":      c.browseURL(issue.Key),
	})
}

func (c *Client) createIssue(ctx context.Context, args tools.Args) tools.Result {
	payload := map[string]any{
		"fields": issueFields{
			Project:     &issueRef{Key: args["project"]},
			Summary:     args["summary"],
			Description: adfParagraph(args["description"]),
			IssueType:   &issueRef{Name: args["type"]},
		},
	}
	status, body, err := c.do(ctx, http.MethodPost, apiPrefix+"/issue", payload)
	if err != nil {
		return tools.Failure("unexpected error: %v", err)
	}
	if status != http.StatusCreated {
		return tools.Failure("tracker returned HTTP %d creating issue: %s", status, errorSummary(body))
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return tools.Failure("unexpected error: decode create response: %v", err)
	}
	return tools.Success(map[string]any{
		"key":     created.Key,
		"summary": args["summary"],
		"url":     c.browseURL(created.Key),
	})
}

// updateIssue applies field edits and, when status is given, walks the issue
// through a workflow transition. Transitions are two-phase: fetch the legal
// transitions for the issue, match the target status by name, then post the
// matching transition ID. A status with no matching transition is skipped
// without failing the rest of the update, mirroring how workflow-restricted
// edits behave in the tracker UI.
func (c *Client) updateIssue(ctx context.Context, args tools.Args) tools.Result {
	id := args["id"]
	updated := []any{}

	if target := args["status"]; target != "" {
		transitioned, res := c.transitionIssue(ctx, id, target)
		if res != nil {
			return *res
		}
		if transitioned {
			updated = append(updated, "status")
		}
	}

	fields := issueFields{}
	if v := args["summary"]; v != "" {
		fields.Summary = v
		updated = append(updated, "summary")
	}
	if v := args["description"]; v != "" {
		fields.Description = adfParagraph(v)
		updated = append(updated, "description")
	}
	if v := args["assignee"]; v != "" {
		fields.Assignee = &assignee{Name: v}
		updated = append(updated, "assignee")
	}

	if fields.Summary != "" || fields.Description != nil || fields.Assignee != nil {
		payload := map[string]any{"fields": fields}
		status, body, err := c.do(ctx, http.MethodPut, apiPrefix+"/issue/"+url.PathEscape(id), payload)
		if err != nil {
			return tools.Failure("unexpected error: %v", err)
		}
		if status == http.StatusNotFound {
			return tools.Failure("issue %s not found", id)
		}
		if status != http.StatusNoContent && status != http.StatusOK {
			return tools.Failure("tracker returned HTTP %d updating issue %s: %s", status, id, errorSummary(body))
		}
	}

	return tools.Success(map[string]any{
		"key":     id,
		"updated": updated,
		"url":     c.browseURL(id),
	})
}

// transitionIssue returns whether the transition was applied and, on a hard
// failure, the Result to surface. A target status the workflow does not offer
// from the issue's current state yields (false, nil).
func (c *Client) transitionIssue(ctx context.Context, id, target string) (bool, *tools.Result) {
	status, body, err := c.do(ctx, http.MethodGet, apiPrefix+"/issue/"+url.PathEscape(id)+"/transitions", nil)
	if err != nil {
		res := tools.Failure("unexpected error: %v", err)
		return false, &res
	}
	if status == http.StatusNotFound {
		res := tools.Failure("issue %s not found", id)
		return false, &res
	}
	if status != http.StatusOK {
		res := tools.Failure("tracker returned HTTP %d fetching transitions for %s", status, id)
		return false, &res
	}

	var tr transitionsResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		res := tools.Failure("unexpected error: decode transitions response: %v", err)
		return false, &res
	}

	transitionID := ""
	for _, t := range tr.Transitions {
		if strings.EqualFold(t.To.Name, target) {
			transitionID = t.ID
			break
		}
	}
	if transitionID == "" {
		return false, nil
	}

	payload := map[string]any{"transition": map[string]any{"id": transitionID}}
	status, body, err = c.do(ctx, http.MethodPost, apiPrefix+"/issue/"+url.PathEscape(id)+"/transitions", payload)
	if err != nil {
		res := tools.Failure("unexpected error: %v", err)
		return false, &res
	}
	if status != http.StatusNoContent {
		res := tools.Failure("tracker returned HTTP %d transitioning issue %s: %s", status, id, errorSummary(body))
		return false, &res
	}
	return true, nil
}

func (c *Client) deleteIssue(ctx context.Context, id string) tools.Result {
	status, body, err := c.do(ctx, http.MethodDelete, apiPrefix+"/issue/"+url.PathEscape(id), nil)
	if err != nil {
		return tools.Failure("unexpected error: %v", err)
	}
	if status == http.StatusNotFound {
		return tools.Failure("issue %s not found", id)
	}
	if status != http.StatusNoContent {
		return tools.Failure("tracker returned HTTP %d deleting issue %s: %s", status, id, errorSummary(body))
	}
	return tools.Success(map[string]any{"key": id})
}

func (c *Client) searchIssues(ctx context.Context, jql string) tools.Result {
	q := url.Values{}
	q.Set("jql", jql)
	q.Set("maxResults", fmt.Sprint(searchMaxResults))

	status, body, err := c.do(ctx, http.MethodGet, apiPrefix+"/search?"+q.Encode(), nil)
	if err != nil {
		return tools.Failure("unexpected error: %v", err)
	}
	if status != http.StatusOK {
		return tools.Failure("tracker returned HTTP %d searching issues: %s", status, errorSummary(body))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return tools.Failure("unexpected error: decode search response: %v", err)
	}

	results := make([]any, 0, len(sr.Issues))
	for _, issue := range sr.Issues {
		results = append(results, map[string]any{
			"key":     issue.Key,
			"summary": issue.Fields.Summary,
			"status":  issue.Fields.Status.Name,
			"url":     c.browseURL(issue.Key),
		})
	}
	return tools.Success(map[string]any{
		"query":   jql,
		"count":   len(results),
		"results": results,
	})
}

// do performs one authenticated request and returns the status code and body.
// The caller owns status-code interpretation; only transport and body-read
// faults surface as errors.
func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("jira: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("jira: create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("jira: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("jira: read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) browseURL(key string) string {
	return c.cfg.BaseURL + "/browse/" + key
}

// errorSummary pulls the human-readable messages out of a Jira error body.
// Jira reports errors as {"errorMessages": [...], "errors": {...}}.
func errorSummary(body []byte) string {
	var parsed struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return strings.TrimSpace(string(body))
	}
	parts := parsed.ErrorMessages
	for field, msg := range parsed.Errors {
		parts = append(parts, field+": "+msg)
	}
	if len(parts) == 0 {
		return strings.TrimSpace(string(body))
	}
	return strings.Join(parts, "; ")
}

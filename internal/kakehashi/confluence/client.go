// Package confluence implements the live wiki backend against the Confluence
// REST API. It satisfies tools.Backend with the same envelope contract as the
// tracker: transport faults and backend errors both come back as Failure
// results, never as Go errors.
package confluence

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
	searchLimit    = 10
	defaultTimeout = 30 * time.Second
)

// Config carries the connection settings for one Confluence site.
type Config struct {
	// BaseURL is the wiki root including the context path,
	// e.g. https://example.atlassian.net/wiki.
	BaseURL string

	// Email and APIToken form the basic-auth pair, same scheme as the
	// tracker. When the wiki has no credentials of its own the config layer
	// reuses the tracker's.
	Email    string
	APIToken string

	// Timeout is the per-request HTTP timeout. Defaults to 30 s.
	Timeout time.Duration
}

// Client is the live wiki backend. Safe for concurrent use.
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

// Call dispatches one wiki operation.
func (c *Client) Call(ctx context.Context, operation string, args tools.Args) tools.Result {
	switch operation {
	case "create-page":
		return c.createPage(ctx, args)
	case "get-page":
		return c.getPage(ctx, args["id"])
	case "update-page":
		return c.updatePage(ctx, args)
	case "delete-page":
		return c.deletePage(ctx, args["id"])
	case "search-pages":
		return c.searchPages(ctx, args["query"])
	default:
		return tools.Failure("unknown wiki operation: %s", operation)
	}
}

// --- wire types ---

type contentBody struct {
	Storage struct {
		Value          string `json:"value"`
		Representation string `json:"representation"`
	} `json:"storage"`
}

type contentResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Space struct {
		Key string `json:"key"`
	} `json:"space"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
	Body  contentBody `json:"body"`
	Links struct {
		WebUI string `json:"webui"`
	} `json:"_links"`
}

func storageBody(value string) map[string]any {
	return map[string]any{
		"storage": map[string]any{
			"value":          value,
			"representation": "storage",
		},
	}
}

func (c *Client) createPage(ctx context.Context, args tools.Args) tools.Result {
	payload := map[string]any{
		"type":  "page",
		"title": args["title"],
		"space": map[string]any{"key": args["space"]},
		"body":  storageBody(args["content"]),
	}
	if parent := args["parent-id"]; parent != "" {
		payload["ancestors"] = []any{map[string]any{"id": parent}}
	}

	status, body, err := c.do(ctx, http.MethodPost, "/rest/api/content", payload)
	if err != nil {
		return tools.Failure("unexpected error: %v", err)
	}
	if status != http.StatusOK {
		return tools.Failure("wiki returned HTTP %d creating page: %s", status, errorSummary(body))
	}

	var created contentResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return tools.Failure("unexpected error: decode create response: %v", err)
	}
	return tools.Success(map[string]any{
		"id":    created.ID,
		"title": created.Title,
		"space": args["space"],
		"url":   c.pageURL(created),
	})
}

func (c *Client) getPage(ctx context.Context, id string) tools.Result {
	status, body, err := c.do(ctx, http.MethodGet,
		"/rest/api/content/"+url.PathEscape(id)+"?expand=space,version", nil)
	if err != nil {
		return tools.Failure("unexpected error: %v", err)
	}
	if status == http.StatusNotFound {
		return tools.Failure("page %s not found", id)
	}
	if status != http.StatusOK {
		return tools.Failure("wiki returned HTTP %d fetching page %s", status, id)
	}

	var page contentResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return tools.Failure("unexpected error: decode page response: %v", err)
	}
	return tools.Success(map[string]any{
		"id":      page.ID,
		"title":   page.Title,
		"space":   page.Space.Key,
		"version": page.Version.Number,
		"url":     c.pageURL(page),
	})
}

// updatePage reads the current page to learn its version and stored fields,
// then writes back with the version advanced by one. The read and the write
// are not atomic: a concurrent editor between the two loses their revision.
// The tracker-side behavior is kept as-is rather than retried on conflict.
func (c *Client) updatePage(ctx context.Context, args tools.Args) tools.Result {
	id := args["id"]

	status, body, err := c.do(ctx, http.MethodGet,
		"/rest/api/content/"+url.PathEscape(id)+"?expand=body.storage,version,space", nil)
	if err != nil {
		return tools.Failure("unexpected error: %v", err)
	}
	if status == http.StatusNotFound {
		return tools.Failure("page %s not found", id)
	}
	if status != http.StatusOK {
		return tools.Failure("wiki returned HTTP %d fetching page %s", status, id)
	}

	var current contentResponse
	if err := json.Unmarshal(body, &current); err != nil {
		return tools.Failure("unexpected error: decode page response: %v", err)
	}

	title := current.Title
	if v := args["title"]; v != "" {
		title = v
	}
	content := current.Body.Storage.Value
	if v := args["content"]; v != "" {
		content = v
	}
	nextVersion := current.Version.Number + 1

	payload := map[string]any{
		"type":    "page",
		"title":   title,
		"body":    storageBody(content),
		"version": map[string]any{"number": nextVersion},
	}
	status, body, err = c.do(ctx, http.MethodPut, "/rest/api/content/"+url.PathEscape(id), payload)
	if err != nil {
		return tools.Failure("unexpected error: %v", err)
	}
	if status != http.StatusOK {
		return tools.Failure("wiki returned HTTP %d updating page %s: %s", status, id, errorSummary(body))
	}

	var updated contentResponse
	if err := json.Unmarshal(body, &updated); err != nil {
		return tools.Failure("unexpected error: decode update response: %v", err)
	}
	return tools.Success(map[string]any{
		"id":      id,
		"title":   title,
		"version": nextVersion,
		"url":     c.pageURL(updated),
	})
}

func (c *Client) deletePage(ctx context.Context, id string) tools.Result {
	status, body, err := c.do(ctx, http.MethodDelete, "/rest/api/content/"+url.PathEscape(id), nil)
	if err != nil {
		return tools.Failure("unexpected error: %v", err)
	}
	if status == http.StatusNotFound {
		return tools.Failure("page %s not found", id)
	}
	if status != http.StatusNoContent {
		return tools.Failure("wiki returned HTTP %d deleting page %s: %s", status, id, errorSummary(body))
	}
	return tools.Success(map[string]any{"id": id})
}

func (c *Client) searchPages(ctx context.Context, query string) tools.Result {
	q := url.Values{}
	q.Set("cql", fmt.Sprintf(`text ~ "%s"`, strings.ReplaceAll(query, `"`, `\"`)))
	q.Set("limit", fmt.Sprint(searchLimit))

	status, body, err := c.do(ctx, http.MethodGet, "/rest/api/search?"+q.Encode(), nil)
	if err != nil {
		return tools.Failure("unexpected error: %v", err)
	}
	if status != http.StatusOK {
		return tools.Failure("wiki returned HTTP %d searching pages: %s", status, errorSummary(body))
	}

	var sr struct {
		Results []struct {
			Content struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"content"`
			Excerpt string `json:"excerpt"`
			URL     string `json:"url"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &sr); err != nil {
		return tools.Failure("unexpected error: decode search response: %v", err)
	}

	results := make([]any, 0, len(sr.Results))
	for _, hit := range sr.Results {
		results = append(results, map[string]any{
			"id":      hit.Content.ID,
			"title":   hit.Content.Title,
			"snippet": hit.Excerpt,
			"url":     c.cfg.BaseURL + hit.URL,
		})
	}
	return tools.Success(map[string]any{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("confluence: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("confluence: create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("confluence: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("confluence: read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) pageURL(page contentResponse) string {
	if page.Links.WebUI != "" {
		return c.cfg.BaseURL + page.Links.WebUI
	}
	return c.cfg.BaseURL + "/pages/" + page.ID
}

// errorSummary extracts the message from a Confluence error body, which uses
// {"statusCode": ..., "message": "..."}.
func errorSummary(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Message == "" {
		return strings.TrimSpace(string(body))
	}
	return parsed.Message
}

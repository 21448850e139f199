// Package render turns result envelopes into chat-ready Markdown. Failure
// output is uniform across tools; success output goes through a per-tool
// template, with a generic payload dump as the fallback for any tool name
// without one, so registering a new tool never breaks rendering.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kakehashi/kakehashi/internal/kakehashi/intent"
	"github.com/kakehashi/kakehashi/internal/kakehashi/tools"
)

// Render formats one envelope for the given tool.
func Render(tool string, res tools.Result) string {
	if !res.OK {
		return fmt.Sprintf("❌ error in %s: %s", tool, res.ErrorMessage)
	}

	switch tool {
	case "get-issue":
		return renderIssue(res.Payload)
	case "create-issue":
		return fmt.Sprintf("✅ created issue **%v**: %v\n%v",
			res.Payload["key"], res.Payload["summary"], res.Payload["url"])
	case "update-issue":
		return renderIssueUpdate(res.Payload)
	case "delete-issue":
		return fmt.Sprintf("🗑️ deleted issue **%v**", res.Payload["key"])
	case "search-issues":
		return renderListing("issue", res.Payload, "key", "summary")
	case "create-page":
		return fmt.Sprintf("✅ created page **%v** in space %v (id %v)\n%v",
			res.Payload["title"], res.Payload["space"], res.Payload["id"], res.Payload["url"])
	case "get-page":
		return renderPage(res.Payload)
	case "update-page":
		return fmt.Sprintf("✅ updated page **%v** to version %v\n%v",
			res.Payload["id"], res.Payload["version"], res.Payload["url"])
	case "delete-page":
		return fmt.Sprintf("🗑️ deleted page **%v**", res.Payload["id"])
	case "search-pages":
		return renderListing("page", res.Payload, "id", "title")
	default:
		return renderGeneric(res.Payload)
	}
}

// RenderCatalog formats the tool catalogue for the list-tools reply.
func RenderCatalog(catalog []tools.Spec) string {
	return "🛠️ Available tools:\n" + intent.CatalogText(catalog)
}

func renderIssue(p map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎫 **%v**: %v\n", p["key"], p["summary"])
	fmt.Fprintf(&b, "status: %v", p["status"])
	if v, ok := p["assignee"]; ok && v != "" {
		fmt.Fprintf(&b, " · assignee: %v", v)
	}
	fmt.Fprintf(&b, "\n%v", p["url"])
	return b.String()
}

func renderIssueUpdate(p map[string]any) string {
	fields := "no fields changed"
	if updated, ok := p["updated"].([]any); ok && len(updated) > 0 {
		parts := make([]string, len(updated))
		for i, f := range updated {
			parts[i] = fmt.Sprint(f)
		}
		fields = "updated " + strings.Join(parts, ", ")
	}
	return fmt.Sprintf("✅ issue **%v**: %s\n%v", p["key"], fields, p["url"])
}

func renderPage(p map[string]any) string {
	return fmt.Sprintf("📄 **%v** (id %v)\nspace: %v · version: %v\n%v",
		p["title"], p["id"], p["space"], p["version"], p["url"])
}

// renderListing formats search results: a count line plus one line per item
// carrying its identifier, headline field, and URL.
func renderListing(noun string, p map[string]any, idField, headlineField string) string {
	results, _ := p["results"].([]any)
	if len(results) == 0 {
		return fmt.Sprintf("🔍 no %ss matched %q", noun, p["query"])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 %d %s(s) matched %q:\n", len(results), noun, p["query"])
	for _, item := range results {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- **%v**: %v — %v\n", entry[idField], entry[headlineField], entry["url"])
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderGeneric dumps the payload as sorted key/value lines.
func renderGeneric(p map[string]any) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("✅ done:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, p[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

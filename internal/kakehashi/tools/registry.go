// Package tools defines the tool registry: the catalogue of named operations
// the bot can perform against the issue tracker and the wiki, each with a
// typed argument schema and dual mock/live execution.
//
// The registry is the only place tool semantics live. Adding a tool is a
// registration in newHandlers, not an edit to any dispatcher branching.
package tools

import (
	"context"
	"fmt"
	"log/slog"
)

// Mode selects how a backend family executes its tools.
type Mode int

const (
	// Mock returns deterministic canned payloads with no network access.
	// Selected at startup when the backend's credentials are absent, so the
	// whole pipeline stays testable without a live account.
	Mock Mode = iota
	// Live performs real backend HTTP calls.
	Live
)

// String implements fmt.Stringer for log output.
func (m Mode) String() string {
	if m == Live {
		return "live"
	}
	return "mock"
}

// Family identifies which backend a tool talks to.
type Family string

const (
	FamilyTracker Family = "tracker"
	FamilyWiki    Family = "wiki"
)

// Spec describes one registered tool. Required is ordered: the positional
// intent parser binds tokens in this order.
type Spec struct {
	Name        string
	Required    []string
	Optional    []string
	Description string
}

// Args is the per-invocation argument set. It is built once by the
// dispatcher, never mutated afterwards, and discarded when the call returns.
type Args map[string]string

// Backend executes live calls for one backend family. Implementations must
// convert every transport fault into a Failure envelope; Call never panics
// and never returns a Go error.
type Backend interface {
	Call(ctx context.Context, operation string, args Args) Result
}

// handler binds a Spec to its mock fixture and backend family.
type handler struct {
	spec   Spec
	family Family
	mock   func(Args) Result
}

// Registry holds every registered tool plus the two backend bindings and
// their modes. It is immutable after construction and safe for concurrent
// use.
type Registry struct {
	order    []string
	handlers map[string]*handler

	tracker     Backend
	wiki        Backend
	trackerMode Mode
	wikiMode    Mode
}

// RegistryConfig wires backends and modes into a new Registry. A nil backend
// is acceptable when the matching mode is Mock.
type RegistryConfig struct {
	Tracker     Backend
	Wiki        Backend
	TrackerMode Mode
	WikiMode    Mode
}

// NewRegistry builds the registry with the full tool catalogue registered.
func NewRegistry(cfg RegistryConfig) *Registry {
	r := &Registry{
		handlers:    make(map[string]*handler),
		tracker:     cfg.Tracker,
		wiki:        cfg.Wiki,
		trackerMode: cfg.TrackerMode,
		wikiMode:    cfg.WikiMode,
	}
	for _, h := range newHandlers() {
		r.register(h)
	}
	return r
}

func (r *Registry) register(h *handler) {
	if _, dup := r.handlers[h.spec.Name]; dup {
		// Names are unique by construction; a duplicate is a programming
		// error worth failing loudly on.
		panic(fmt.Sprintf("tools: duplicate tool name %q", h.spec.Name))
	}
	r.handlers[h.spec.Name] = h
	r.order = append(r.order, h.spec.Name)
}

// Lookup returns the spec for name, reporting whether it is registered.
func (r *Registry) Lookup(name string) (Spec, bool) {
	h, ok := r.handlers[name]
	if !ok {
		return Spec{}, false
	}
	return h.spec, true
}

// Catalog returns every registered spec in registration order.
func (r *Registry) Catalog() []Spec {
	out := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.handlers[name].spec)
	}
	return out
}

// Mode returns the execution mode for the given backend family.
func (r *Registry) Mode(f Family) Mode {
	if f == FamilyWiki {
		return r.wikiMode
	}
	return r.trackerMode
}

// Execute runs the named tool. Required arguments are re-checked here so the
// registry never reaches a backend with an incomplete argument set, even when
// called directly rather than through the Dispatcher.
func (r *Registry) Execute(ctx context.Context, name string, args Args) Result {
	h, ok := r.handlers[name]
	if !ok {
		return Failure("unknown tool: %s", name)
	}

	for _, req := range h.spec.Required {
		if args[req] == "" {
			return Failure("%s is required", req)
		}
	}

	mode := r.Mode(h.family)
	if mode == Mock {
		slog.Debug("executing tool in mock mode", "tool", name)
		return h.mock(args)
	}

	backend := r.tracker
	if h.family == FamilyWiki {
		backend = r.wiki
	}
	if backend == nil {
		return Failure("no %s backend configured", h.family)
	}
	return backend.Call(ctx, name, args)
}

// newHandlers declares the full tool catalogue. Required argument order here
// is load-bearing: it drives positional parsing and the prompt catalogue.
func newHandlers() []*handler {
	return []*handler{
		{
			spec: Spec{
				Name:        "get-issue",
				Required:    []string{"id"},
				Description: "Fetch summary, status, and assignee for one issue by its key.",
			},
			family: FamilyTracker,
			mock:   mockGetIssue,
		},
		{
			spec: Spec{
				Name:        "create-issue",
				Required:    []string{"project", "summary", "description", "type"},
				Description: "Create a new issue in the given project.",
			},
			family: FamilyTracker,
			mock:   mockCreateIssue,
		},
		{
			spec: Spec{
				Name:        "update-issue",
				Required:    []string{"id"},
				Optional:    []string{"summary", "description", "status", "assignee"},
				Description: "Update fields of an existing issue; status changes go through workflow transitions.",
			},
			family: FamilyTracker,
			mock:   mockUpdateIssue,
		},
		{
			spec: Spec{
				Name:        "delete-issue",
				Required:    []string{"id"},
				Description: "Delete an issue by its key.",
			},
			family: FamilyTracker,
			mock:   mockDeleteIssue,
		},
		{
			spec: Spec{
				Name:        "search-issues",
				Required:    []string{"jql"},
				Description: "Search issues with a JQL query; returns up to 10 matches.",
			},
			family: FamilyTracker,
			mock:   mockSearchIssues,
		},
		{
			spec: Spec{
				Name:        "create-page",
				Required:    []string{"space", "title", "content"},
				Optional:    []string{"parent-id"},
				Description: "Create a wiki page in the given space.",
			},
			family: FamilyWiki,
			mock:   mockCreatePage,
		},
		{
			spec: Spec{
				Name:        "get-page",
				Required:    []string{"id"},
				Description: "Fetch title, space, and version for one wiki page by its ID.",
			},
			family: FamilyWiki,
			mock:   mockGetPage,
		},
		{
			spec: Spec{
				Name:        "update-page",
				Required:    []string{"id"},
				Optional:    []string{"title", "content"},
				Description: "Update a wiki page's title or content; the stored version number is advanced automatically.",
			},
			family: FamilyWiki,
			mock:   mockUpdatePage,
		},
		{
			spec: Spec{
				Name:        "delete-page",
				Required:    []string{"id"},
				Description: "Delete a wiki page by its ID.",
			},
			family: FamilyWiki,
			mock:   mockDeletePage,
		},
		{
			spec: Spec{
				Name:        "search-pages",
				Required:    []string{"query"},
				Description: "Full-text search across wiki pages; returns up to 10 matches.",
			},
			family: FamilyWiki,
			mock:   mockSearchPages,
		},
	}
}

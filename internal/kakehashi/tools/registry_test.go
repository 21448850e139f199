package tools_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/kakehashi/kakehashi/internal/kakehashi/tools"
)

// countingBackend records every live call so tests can assert no backend was
// touched on a validation failure.
type countingBackend struct {
	calls int
}

func (b *countingBackend) Call(ctx context.Context, operation string, args tools.Args) tools.Result {
	b.calls++
	return tools.Success(map[string]any{"operation": operation})
}

// completeArgs returns a full required-argument set for the given spec.
func completeArgs(spec tools.Spec) tools.Args {
	args := make(tools.Args, len(spec.Required))
	for _, name := range spec.Required {
		args[name] = "PROJ-123"
	}
	return args
}

func newMockRegistry() *tools.Registry {
	return tools.NewRegistry(tools.RegistryConfig{
		TrackerMode: tools.Mock,
		WikiMode:    tools.Mock,
	})
}

func TestExecute_MockModeSucceedsForEveryTool(t *testing.T) {
	reg := newMockRegistry()
	ctx := context.Background()

	for _, spec := range reg.Catalog() {
		t.Run(spec.Name, func(t *testing.T) {
			res := reg.Execute(ctx, spec.Name, completeArgs(spec))
			if !res.OK {
				t.Fatalf("mock execution failed: %s", res.ErrorMessage)
			}
			if len(res.Payload) == 0 {
				t.Fatal("mock payload is empty")
			}
		})
	}
}

func TestExecute_MockModeIsDeterministic(t *testing.T) {
	reg := newMockRegistry()
	ctx := context.Background()

	for _, spec := range reg.Catalog() {
		args := completeArgs(spec)
		first := reg.Execute(ctx, spec.Name, args)
		second := reg.Execute(ctx, spec.Name, args)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%s: repeated mock calls differ:\n  first:  %#v\n  second: %#v",
				spec.Name, first, second)
		}
	}
}

func TestExecute_ListingToolsAlwaysCarryResults(t *testing.T) {
	reg := newMockRegistry()
	ctx := context.Background()

	for _, name := range []string{"search-issues", "search-pages"} {
		spec, ok := reg.Lookup(name)
		if !ok {
			t.Fatalf("%s not registered", name)
		}
		res := reg.Execute(ctx, name, completeArgs(spec))
		if !res.OK {
			t.Fatalf("%s: %s", name, res.ErrorMessage)
		}
		if _, ok := res.Payload["results"]; !ok {
			t.Errorf("%s: success payload must carry a results field", name)
		}
	}
}

func TestExecute_MissingRequiredNeverReachesBackend(t *testing.T) {
	backend := &countingBackend{}
	reg := tools.NewRegistry(tools.RegistryConfig{
		Tracker:     backend,
		Wiki:        backend,
		TrackerMode: tools.Live,
		WikiMode:    tools.Live,
	})
	ctx := context.Background()

	for _, spec := range reg.Catalog() {
		res := reg.Execute(ctx, spec.Name, tools.Args{})
		if res.OK {
			t.Errorf("%s: expected failure for empty arguments", spec.Name)
		}
	}
	if backend.calls != 0 {
		t.Errorf("backend was called %d times despite missing required arguments", backend.calls)
	}
}

func TestExecute_LiveModeDelegatesToBackend(t *testing.T) {
	backend := &countingBackend{}
	reg := tools.NewRegistry(tools.RegistryConfig{
		Tracker:     backend,
		Wiki:        backend,
		TrackerMode: tools.Live,
		WikiMode:    tools.Live,
	})

	spec, _ := reg.Lookup("get-issue")
	res := reg.Execute(context.Background(), "get-issue", completeArgs(spec))
	if !res.OK {
		t.Fatalf("unexpected failure: %s", res.ErrorMessage)
	}
	if backend.calls != 1 {
		t.Errorf("expected exactly one backend call, got %d", backend.calls)
	}
	if res.Payload["operation"] != "get-issue" {
		t.Errorf("backend received operation %v, want get-issue", res.Payload["operation"])
	}
}

func TestLookup_UnknownTool(t *testing.T) {
	reg := newMockRegistry()
	if _, ok := reg.Lookup("frobnicate"); ok {
		t.Error("Lookup(frobnicate) reported a registered tool")
	}

	res := reg.Execute(context.Background(), "frobnicate", tools.Args{})
	if res.OK {
		t.Fatal("expected failure for unknown tool")
	}
}

func TestCatalog_NamesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, spec := range newMockRegistry().Catalog() {
		if seen[spec.Name] {
			t.Errorf("duplicate tool name %q", spec.Name)
		}
		seen[spec.Name] = true
	}
}

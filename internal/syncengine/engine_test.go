package syncengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/loom-dev/loom/internal/executor"
	"github.com/loom-dev/loom/internal/registry"
	"github.com/loom-dev/loom/internal/vcsrunner"
	"github.com/loom-dev/loom/internal/workspace"
)

func newTestEngine(stateDir string, fake *executor.Fake) *Engine {
	runner := vcsrunner.New(fake)
	return New(runner, workspace.New(runner, stateDir), stateDir, 0, nil)
}

// Invariant 2 (ownership): a single focused workspace receives every entry
// unconditionally, with no ownership computation needed.
func TestRoutePreviewEditsSingleFocusCopiesUnconditionally(t *testing.T) {
	stateDir, repoPath := t.TempDir(), t.TempDir()
	slug := workspace.RepoSlug(repoPath)
	if err := os.WriteFile(filepath.Join(repoPath, "foo.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if rerr := registry.SaveFocus(stateDir, slug, registry.FocusState{Workspaces: []string{"alice"}}); rerr != nil {
		t.Fatal(rerr)
	}

	fake := executor.NewFake()
	fake.When("jj", []string{"diff", "--summary"}, executor.Output{Stdout: []byte("M foo.txt\n")}, nil)

	e := newTestEngine(stateDir, fake)
	if err := e.routePreviewEdits(context.Background(), repoPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(stateDir, "workspaces", slug, "alice", "foo.txt"))
	if err != nil || string(got) != "hello" {
		t.Fatalf("got %q, err %v", got, err)
	}
}

// Invariant: a file touched by more than one focused workspace is a
// conflict and must not be routed anywhere.
func TestRoutePreviewEditsSkipsConflictingFile(t *testing.T) {
	stateDir, repoPath := t.TempDir(), t.TempDir()
	slug := workspace.RepoSlug(repoPath)
	if err := os.WriteFile(filepath.Join(repoPath, "shared.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if rerr := registry.SaveFocus(stateDir, slug, registry.FocusState{Workspaces: []string{"a", "b"}}); rerr != nil {
		t.Fatal(rerr)
	}

	fake := executor.NewFake()
	fake.When("jj", []string{"diff", "--summary"}, executor.Output{Stdout: []byte("M shared.txt\n")}, nil) // preview diff
	fake.When("jj", []string{"diff", "--summary"}, executor.Output{Stdout: []byte("M shared.txt\n")}, nil) // workspace a
	fake.When("jj", []string{"diff", "--summary"}, executor.Output{Stdout: []byte("M shared.txt\n")}, nil) // workspace b

	e := newTestEngine(stateDir, fake)
	if err := e.routePreviewEdits(context.Background(), repoPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"a", "b"} {
		if _, err := os.Stat(filepath.Join(stateDir, "workspaces", slug, name, "shared.txt")); !os.IsNotExist(err) {
			t.Errorf("shared.txt should not have been routed to %s", name)
		}
	}
}

// An empty focus set means the watcher fired with nothing to do.
func TestRoutePreviewEditsNoFocusIsNoop(t *testing.T) {
	stateDir, repoPath := t.TempDir(), t.TempDir()
	fake := executor.NewFake()
	e := newTestEngine(stateDir, fake)
	if err := e.routePreviewEdits(context.Background(), repoPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.Calls()) != 0 {
		t.Error("expected no subprocess calls when focus is empty")
	}
}

func TestSyncAgentsToPreviewCopiesWorkspaceEditsBack(t *testing.T) {
	stateDir, repoPath := t.TempDir(), t.TempDir()
	slug := workspace.RepoSlug(repoPath)
	wsDir := filepath.Join(stateDir, "workspaces", slug, "alice")
	if err := os.MkdirAll(wsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(wsDir, "bar.txt"), []byte("agent-edit"), 0o644); err != nil {
		t.Fatal(err)
	}
	if rerr := registry.SaveFocus(stateDir, slug, registry.FocusState{Workspaces: []string{"alice"}}); rerr != nil {
		t.Fatal(rerr)
	}

	fake := executor.NewFake()
	fake.When("jj", []string{"status", "--quiet"}, executor.Output{}, nil)
	fake.When("jj", []string{"diff", "--summary"}, executor.Output{Stdout: []byte("A bar.txt\n")}, nil)

	e := newTestEngine(stateDir, fake)
	if err := e.syncAgentsToPreview(context.Background(), repoPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(repoPath, "bar.txt"))
	if err != nil || string(got) != "agent-edit" {
		t.Fatalf("got %q, err %v", got, err)
	}
}

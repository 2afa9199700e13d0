package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/loom-dev/loom/internal/executor"
	"github.com/loom-dev/loom/internal/result"
	"github.com/loom-dev/loom/internal/vcsrunner"
)

func newTestManager(t *testing.T) (*Manager, *executor.Fake, string) {
	t.Helper()
	stateDir := t.TempDir()
	fake := executor.NewFake()
	runner := vcsrunner.New(fake)
	return New(runner, stateDir), fake, stateDir
}

func TestAddRejectsReservedName(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.Add(context.Background(), "/repo", "unassigned")
	if err == nil || err.Kind != result.InvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestAddFailsIfDirectoryExists(t *testing.T) {
	m, _, stateDir := newTestManager(t)
	dir := filepath.Join(stateDir, "workspaces", "repo", "alice")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := m.Add(context.Background(), "/repo", "alice")
	if err == nil || err.Kind != result.WorkspaceExists {
		t.Fatalf("expected WORKSPACE_EXISTS, got %v", err)
	}
}

func TestAddHappyPath(t *testing.T) {
	m, fake, stateDir := newTestManager(t)
	dir := filepath.Join(stateDir, "workspaces", "repo", "alice")

	fake.When("jj", []string{"config", "get", "revset-aliases.trunk()"}, executor.Output{ExitCode: 0, Stdout: []byte(`"main"`)}, nil)
	fake.When("jj", []string{"workspace", "add", "--name", "alice", dir, "-r", "main"}, executor.Output{ExitCode: 0}, nil)
	fake.When("jj", []string{"describe", "-m", "wip: alice"}, executor.Output{ExitCode: 0}, nil)
	fake.When("jj", []string{"log", "-r", "alice@", "--no-graph", "-T", "change_id"}, executor.Output{ExitCode: 0, Stdout: []byte("abc123\n")}, nil)
	fake.When("jj", []string{"bookmark", "create", "alice", "-r", "abc123"}, executor.Output{ExitCode: 0}, nil)

	ws, err := m.Add(context.Background(), "/repo", "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ws.Name != "alice" || ws.TipID != "abc123" {
		t.Errorf("got %+v", ws)
	}
	if _, statErr := os.Stat(filepath.Join(dir, ".vcs-ignore")); statErr != nil {
		t.Errorf(".vcs-ignore not written: %v", statErr)
	}
}

func TestListFiltersToManagedSubtree(t *testing.T) {
	m, _, stateDir := newTestManager(t)
	root := filepath.Join(stateDir, "workspaces", "repo")
	if err := os.MkdirAll(filepath.Join(root, "alice"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "bob"), 0o755); err != nil {
		t.Fatal(err)
	}

	list, err := m.List("/repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d workspaces, want 2", len(list))
	}
}

func TestTipOfFailsOnBlank(t *testing.T) {
	m, fake, _ := newTestManager(t)
	fake.When("jj", []string{"log", "-r", "ghost@", "--no-graph", "-T", "change_id"}, executor.Output{ExitCode: 0, Stdout: []byte("")}, nil)
	_, err := m.TipOf(context.Background(), "/repo", "ghost")
	if err == nil || err.Kind != result.WorkspaceNotFound {
		t.Fatalf("expected WORKSPACE_NOT_FOUND, got %v", err)
	}
}

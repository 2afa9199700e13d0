// Package workspace manages the lifecycle of per-agent working directories
// under the global state directory. Each workspace is a genuine separate
// directory created with `jj workspace add`, because the sync engine needs
// a distinct filesystem tree per agent to watch and copy into.
package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/loom-dev/loom/internal/changeset"
	"github.com/loom-dev/loom/internal/result"
	"github.com/loom-dev/loom/internal/vcsrunner"
)

const wipPrefix = "wip: "

// Manager owns the lifecycle of workspaces for one repo.
type Manager struct {
	runner   *vcsrunner.Runner
	stateDir string
}

func New(runner *vcsrunner.Runner, stateDir string) *Manager {
	return &Manager{runner: runner, stateDir: stateDir}
}

// RepoSlug is the basename of the repo path, used to namespace state.
func RepoSlug(repoPath string) string {
	return filepath.Base(filepath.Clean(repoPath))
}

// dirFor returns the managed on-disk path for a named workspace.
func (m *Manager) dirFor(repoPath, name string) string {
	return filepath.Join(m.stateDir, "workspaces", RepoSlug(repoPath), name)
}

// Dir is the exported form of dirFor, used by callers outside this package
// (e.g. the Stack Orchestrator) that need a workspace's on-disk path
// without going through List.
func (m *Manager) Dir(repoPath, name string) string {
	return m.dirFor(repoPath, name)
}

// managedRoot returns the subtree that List() filters workspaces to.
func (m *Manager) managedRoot(repoPath string) string {
	return filepath.Join(m.stateDir, "workspaces", RepoSlug(repoPath))
}

// Add creates a new workspace at trunk: resolves trunk, creates the VCS
// workspace, sets its WIP description, writes an editor-integration ignore
// file, and creates a local bookmark at the new tip.
func (m *Manager) Add(ctx context.Context, repoPath, name string) (changeset.Workspace, *result.Error) {
	if name == changeset.UnassignedWorkspace {
		return changeset.Workspace{}, result.New(result.InvalidInput, "%q is a reserved workspace name", name)
	}
	dir := m.dirFor(repoPath, name)
	if _, err := os.Stat(dir); err == nil {
		return changeset.Workspace{}, result.New(result.WorkspaceExists, "workspace %q already exists at %s", name, dir)
	}

	trunk, rerr := m.runner.TrunkOf(ctx, repoPath)
	if rerr != nil {
		return changeset.Workspace{}, rerr
	}

	if _, rerr := m.runner.RunWithLockRetry(ctx, []string{"workspace", "add", "--name", name, dir, "-r", trunk}, repoPath); rerr != nil {
		return changeset.Workspace{}, rerr
	}

	if _, rerr := m.runner.RunWithLockRetry(ctx, []string{"describe", "-m", wipPrefix + name}, dir); rerr != nil {
		return changeset.Workspace{}, rerr
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return changeset.Workspace{}, result.Wrap(result.CommandFailed, err, "creating workspace directory %s", dir)
	}
	if err := os.WriteFile(filepath.Join(dir, ".vcs-ignore"), []byte("# managed by loom; do not edit\n"), 0o644); err != nil {
		return changeset.Workspace{}, result.Wrap(result.CommandFailed, err, "writing .vcs-ignore for workspace %q", name)
	}

	tip, rerr := m.TipOf(ctx, repoPath, name)
	if rerr != nil {
		return changeset.Workspace{}, rerr
	}

	if _, rerr := m.runner.RunWithLockRetry(ctx, []string{"bookmark", "create", name, "-r", tip}, repoPath); rerr != nil {
		return changeset.Workspace{}, rerr
	}

	return changeset.Workspace{Name: name, Path: dir, TipID: tip}, nil
}

// Remove tears down a workspace in a fixed order: collect bookmarks,
// untrack remotes, delete local bookmarks, forget the VCS workspace,
// abandon the tip, delete the directory. Every step runs even if an
// earlier one failed (best-effort cleanup); the first error encountered
// is returned.
func (m *Manager) Remove(ctx context.Context, repoPath, name string) *result.Error {
	dir := m.dirFor(repoPath, name)
	var first *result.Error
	record := func(err *result.Error) {
		if err != nil && first == nil {
			first = err
		}
	}

	tip, tipErr := m.TipOf(ctx, repoPath, name)
	record(tipErr)

	if tip != "" {
		inv, err := m.runner.Run(ctx, []string{"log", "-r", tip, "--no-graph", "-T", "bookmarks"}, repoPath)
		record(err)
		for _, bm := range strings.Fields(inv.Stdout) {
			bm = strings.TrimSuffix(bm, "*")
			if bm == "" {
				continue
			}
			if _, err := m.runner.RunWithLockRetry(ctx, []string{"bookmark", "untrack", bm + "@origin"}, repoPath); err != nil {
				record(err)
			}
			if _, err := m.runner.RunWithLockRetry(ctx, []string{"bookmark", "delete", bm}, repoPath); err != nil {
				record(err)
			}
		}
	}

	if _, err := m.runner.RunWithLockRetry(ctx, []string{"workspace", "forget", name}, repoPath); err != nil {
		record(err)
	}

	if tip != "" {
		if _, err := m.runner.RunWithLockRetry(ctx, []string{"abandon", tip}, repoPath); err != nil {
			record(err)
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		record(result.Wrap(result.CommandFailed, err, "removing workspace directory %s", dir))
	}

	return first
}

// List returns only workspaces whose directory lives under the managed
// subtree; anything else (e.g. workspaces created out-of-band) is filtered.
func (m *Manager) List(repoPath string) ([]changeset.Workspace, *result.Error) {
	root := m.managedRoot(repoPath)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, result.Wrap(result.CommandFailed, err, "listing workspaces under %s", root)
	}
	var out []changeset.Workspace
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if !isUnder(root, dir) {
			continue
		}
		out = append(out, changeset.Workspace{Name: e.Name(), Path: dir})
	}
	return out, nil
}

func isUnder(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..")
}

// TipOf returns the change-id at `name@`; fails WORKSPACE_NOT_FOUND if the
// query comes back blank.
func (m *Manager) TipOf(ctx context.Context, repoPath, name string) (string, *result.Error) {
	inv, err := m.runner.Run(ctx, []string{"log", "-r", name + "@", "--no-graph", "-T", "change_id"}, repoPath)
	if err != nil {
		return "", err
	}
	tip := strings.TrimSpace(inv.Stdout)
	if tip == "" {
		return "", result.New(result.WorkspaceNotFound, "workspace %q has no tip", name)
	}
	return tip, nil
}

// Snapshot forces the VCS to record a workspace's dirty files.
func (m *Manager) Snapshot(ctx context.Context, workspacePath string) *result.Error {
	_, err := m.runner.Run(ctx, []string{"status", "--quiet"}, workspacePath)
	return err
}

// StripWIPPrefix removes the "wip: " prefix from a workspace tip's
// description, used by submitWorkspace before folding it into a stack
// submission.
func (m *Manager) StripWIPPrefix(ctx context.Context, workspacePath, currentDescription string) *result.Error {
	stripped := strings.TrimPrefix(currentDescription, wipPrefix)
	if stripped == currentDescription {
		return nil
	}
	_, err := m.runner.RunWithLockRetry(ctx, []string{"describe", "-m", stripped}, workspacePath)
	return err
}

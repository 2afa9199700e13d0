// Package syncengine is the daemon that watches a preview working tree and
// a set of agent workspace directories and keeps them in sync via a
// per-repo serialized "lane": two watch roots per repo, debounced through
// an idle/running/running-dirty state machine.
package syncengine

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/loom-dev/loom/internal/changeset"
	"github.com/loom-dev/loom/internal/ownership"
	"github.com/loom-dev/loom/internal/registry"
	"github.com/loom-dev/loom/internal/result"
	"github.com/loom-dev/loom/internal/vcsparse"
	"github.com/loom-dev/loom/internal/vcsrunner"
	"github.com/loom-dev/loom/internal/workspace"
)

// Engine owns every watched repo's sync lane.
type Engine struct {
	runner   *vcsrunner.Runner
	ws       *workspace.Manager
	stateDir string
	debounce time.Duration
	logger   *log.Logger

	mu    sync.Mutex
	repos map[string]*repoSync
}

type repoSync struct {
	repoPath string
	slug     string
	lane     lane
	preview  *debouncedWatcher
	agents   *debouncedWatcher
}

// New constructs an Engine. logger may be nil, in which case log.Default
// is used.
func New(runner *vcsrunner.Runner, ws *workspace.Manager, stateDir string, debounce time.Duration, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{runner: runner, ws: ws, stateDir: stateDir, debounce: debounce, logger: logger, repos: make(map[string]*repoSync)}
}

// AddRepo starts watching repoPath's working tree and its workspaces
// directory. Calling AddRepo twice for the same path is a no-op.
func (e *Engine) AddRepo(ctx context.Context, repoPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.repos[repoPath]; exists {
		return nil
	}
	rs := &repoSync{repoPath: repoPath, slug: workspace.RepoSlug(repoPath)}

	preview, err := newDebouncedWatcher(e.debounce, nil, func() { e.runPass(ctx, rs, rs.routePreviewEditsPass) })
	if err != nil {
		return fmt.Errorf("creating preview watcher for %s: %w", repoPath, err)
	}
	if err := preview.addRecursive(repoPath); err != nil {
		return fmt.Errorf("watching %s: %w", repoPath, err)
	}

	agentsRoot := filepath.Join(e.stateDir, "workspaces", rs.slug)
	_ = os.MkdirAll(agentsRoot, 0o755)
	agents, err := newDebouncedWatcher(e.debounce, nil, func() { e.runPass(ctx, rs, rs.syncAgentsToPreviewPass) })
	if err != nil {
		preview.stop()
		return fmt.Errorf("creating workspaces watcher for %s: %w", repoPath, err)
	}
	if err := agents.addRecursive(agentsRoot); err != nil {
		preview.stop()
		agents.stop()
		return fmt.Errorf("watching %s: %w", agentsRoot, err)
	}

	rs.preview, rs.agents = preview, agents
	e.repos[repoPath] = rs
	preview.start()
	agents.start()
	e.logger.Printf("watching repo %s (slug %s)", repoPath, rs.slug)
	return nil
}

// RemoveRepo stops watching repoPath.
func (e *Engine) RemoveRepo(repoPath string) {
	e.mu.Lock()
	rs, ok := e.repos[repoPath]
	delete(e.repos, repoPath)
	e.mu.Unlock()
	if !ok {
		return
	}
	rs.preview.stop()
	rs.agents.stop()
}

// runPass drives the lane state machine: it runs pass once, and if the
// lane was marked dirty while the pass was in flight, runs it again
// immediately. At most one pass is pending while one is running.
func (e *Engine) runPass(ctx context.Context, rs *repoSync, pass func(context.Context, *Engine)) {
	if !rs.lane.tryStart() {
		return
	}
	for {
		pass(ctx, e)
		if !rs.lane.finish() {
			return
		}
	}
}

func (rs *repoSync) routePreviewEditsPass(ctx context.Context, e *Engine) {
	if err := e.routePreviewEdits(ctx, rs.repoPath); err != nil {
		e.logger.Printf("route %s: %v", rs.repoPath, err)
	}
}

func (rs *repoSync) syncAgentsToPreviewPass(ctx context.Context, e *Engine) {
	if err := e.syncAgentsToPreview(ctx, rs.repoPath); err != nil {
		e.logger.Printf("sync %s: %v", rs.repoPath, err)
	}
}

// Shutdown stops every repo's watchers and their pending debounce timers.
// A pass that a timer has already started is not waited for. It does not
// release the pid file; the caller does that after Shutdown returns.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	repos := make([]*repoSync, 0, len(e.repos))
	for _, rs := range e.repos {
		repos = append(repos, rs)
	}
	e.repos = make(map[string]*repoSync)
	e.mu.Unlock()

	for _, rs := range repos {
		rs.preview.stop()
		rs.agents.stop()
	}
}

// routePreviewEdits copies each edit made in the preview tree into the one
// focused agent workspace that owns it (or into the sole focused workspace
// when only one is focused). Edits with no owner or with several owners are
// logged and skipped.
func (e *Engine) routePreviewEdits(ctx context.Context, repoPath string) error {
	slug := workspace.RepoSlug(repoPath)
	focus, rerr := registry.LoadFocus(e.stateDir, slug)
	if rerr != nil {
		return rerr
	}
	if len(focus.Workspaces) == 0 {
		return nil
	}

	inv, rerr := e.runner.Run(ctx, []string{"diff", "--summary"}, repoPath)
	if rerr != nil {
		return rerr
	}
	entries := vcsparse.ParseDiffSummary(inv.Stdout)

	if len(focus.Workspaces) == 1 {
		target := focus.Workspaces[0]
		for _, en := range entries {
			if err := e.applyEntry(repoPath, e.workspaceDir(slug, target), en); err != nil {
				e.logger.Printf("route %s to %s: %v", en.Path, target, err)
			}
		}
		return nil
	}

	diffsByWorkspace := make(map[string][]string, len(focus.Workspaces))
	for _, name := range focus.Workspaces {
		wsDir := e.workspaceDir(slug, name)
		winv, werr := e.runner.Run(ctx, []string{"diff", "--summary"}, wsDir)
		if werr != nil {
			e.logger.Printf("diff for workspace %s: %v", name, werr)
			continue
		}
		for _, en := range vcsparse.ParseDiffSummary(winv.Stdout) {
			diffsByWorkspace[name] = append(diffsByWorkspace[name], en.Path)
		}
	}
	own := ownership.Build(diffsByWorkspace)

	for _, en := range entries {
		owners := own.Owners(en.Path)
		switch len(owners) {
		case 0:
			e.logger.Printf("no owner for %s in %s; skipping", en.Path, repoPath)
		case 1:
			if err := e.applyEntry(repoPath, e.workspaceDir(slug, owners[0]), en); err != nil {
				e.logger.Printf("route %s to %s: %v", en.Path, owners[0], err)
			}
		default:
			e.logger.Printf("conflict on %s: owned by %v; skipping", en.Path, owners)
		}
	}
	return nil
}

// syncAgentsToPreview snapshots each focused agent workspace and copies the
// edits in its diff into the preview tree.
func (e *Engine) syncAgentsToPreview(ctx context.Context, repoPath string) error {
	slug := workspace.RepoSlug(repoPath)
	focus, rerr := registry.LoadFocus(e.stateDir, slug)
	if rerr != nil {
		return rerr
	}
	if len(focus.Workspaces) == 0 {
		return nil
	}

	for _, name := range focus.Workspaces {
		wsDir := e.workspaceDir(slug, name)
		if rerr := e.ws.Snapshot(ctx, wsDir); rerr != nil {
			e.logger.Printf("snapshot workspace %s: %v", name, rerr)
			continue
		}
		inv, rerr := e.runner.Run(ctx, []string{"diff", "--summary"}, wsDir)
		if rerr != nil {
			e.logger.Printf("diff workspace %s: %v", name, rerr)
			continue
		}
		for _, en := range vcsparse.ParseDiffSummary(inv.Stdout) {
			if err := e.applyEntry(wsDir, repoPath, en); err != nil {
				e.logger.Printf("sync %s from %s: %v", en.Path, name, err)
			}
		}
	}
	return nil
}

// applyEntry applies one diff entry by copying/deleting bytes from fromDir
// into toDir, per the entry's status.
func (e *Engine) applyEntry(fromDir, toDir string, en vcsparse.DiffEntry) error {
	switch en.Status {
	case vcsparse.Added, vcsparse.Modified:
		return copyIfDifferent(filepath.Join(fromDir, en.Path), filepath.Join(toDir, en.Path))
	case vcsparse.Deleted:
		return deleteIfExists(filepath.Join(toDir, en.Path))
	case vcsparse.Renamed:
		if err := deleteIfExists(filepath.Join(toDir, en.OldPath)); err != nil {
			return err
		}
		return copyIfDifferent(filepath.Join(fromDir, en.Path), filepath.Join(toDir, en.Path))
	}
	return nil
}

func (e *Engine) workspaceDir(slug, name string) string {
	return filepath.Join(e.stateDir, "workspaces", slug, name)
}

// UpdatePreview rebuilds the preview merge commit for a membership change.
// It is invoked directly by the CLI's preview/workspace commands rather
// than by the watcher loop.
func (e *Engine) UpdatePreview(ctx context.Context, repoPath string, newMembers []string) *result.Error {
	slug := workspace.RepoSlug(repoPath)
	focus, rerr := registry.LoadFocus(e.stateDir, slug)
	if rerr != nil {
		return rerr
	}

	if len(newMembers) == 0 {
		trunk, rerr := e.runner.TrunkOf(ctx, repoPath)
		if rerr != nil {
			return rerr
		}
		if _, rerr := e.runner.RunWithLockRetry(ctx, []string{"new", trunk}, repoPath); rerr != nil {
			return rerr
		}
		if focus.PreviewChangeID != "" {
			if _, rerr := e.runner.RunWithLockRetry(ctx, []string{"abandon", focus.PreviewChangeID}, repoPath); rerr != nil {
				return rerr
			}
		}
		return registry.SaveFocus(e.stateDir, slug, registry.FocusState{})
	}

	if _, rerr := e.ws.TipOf(ctx, repoPath, changeset.UnassignedWorkspace); rerr != nil {
		if result.Is(rerr, result.WorkspaceNotFound) {
			if _, rerr := e.ws.Add(ctx, repoPath, changeset.UnassignedWorkspace); rerr != nil {
				return rerr
			}
		} else {
			return rerr
		}
	}
	unassignedTip, rerr := e.ws.TipOf(ctx, repoPath, changeset.UnassignedWorkspace)
	if rerr != nil {
		return rerr
	}

	parents := []string{unassignedTip}
	for _, name := range newMembers {
		wsDir := e.workspaceDir(slug, name)
		if rerr := e.ws.Snapshot(ctx, wsDir); rerr != nil {
			return rerr
		}
		tip, rerr := e.ws.TipOf(ctx, repoPath, name)
		if rerr != nil {
			return rerr
		}
		parents = append(parents, tip)
	}

	newArgs := append([]string{"new"}, parents...)
	if _, rerr := e.runner.RunWithLockRetry(ctx, newArgs, repoPath); rerr != nil {
		return rerr
	}
	desc := changeset.BuildPreviewDescription(newMembers)
	if _, rerr := e.runner.RunWithLockRetry(ctx, []string{"describe", "-m", desc}, repoPath); rerr != nil {
		return rerr
	}

	inv, rerr := e.runner.Run(ctx, []string{"log", "-r", "@", "--no-graph", "-T", "change_id"}, repoPath)
	if rerr != nil {
		return rerr
	}
	newPreviewID := strings.TrimSpace(inv.Stdout)

	if focus.PreviewChangeID != "" && focus.PreviewChangeID != newPreviewID {
		if _, rerr := e.runner.RunWithLockRetry(ctx, []string{"abandon", focus.PreviewChangeID}, repoPath); rerr != nil {
			return rerr
		}
	}

	return registry.SaveFocus(e.stateDir, slug, registry.FocusState{Workspaces: newMembers, PreviewChangeID: newPreviewID})
}

// Package vcsrunner invokes the content-tracking VCS subprocess (jj),
// classifies its stderr into a Kind, retries on lock contention, and
// caches the resolved trunk bookmark per working directory. It never
// builds a shell string: every invocation goes through the executor's
// argv vector.
package vcsrunner

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/loom-dev/loom/internal/executor"
	"github.com/loom-dev/loom/internal/result"
)

// Binary is the subprocess name invoked for every VCS call.
const Binary = "jj"

// lockRetryDelay and lockRetryAttempts bound runWithLockRetry.
const (
	lockRetryDelay    = 20 * time.Millisecond
	lockRetryAttempts = 10
)

// Runner wraps an Executor with VCS-specific error classification, lock
// retry, and a per-cwd trunk cache.
type Runner struct {
	exec executor.Executor

	mu         sync.Mutex
	trunkCache map[string]string
}

func New(exec executor.Executor) *Runner {
	return &Runner{exec: exec, trunkCache: make(map[string]string)}
}

// Invocation is the outcome of a single `vcs` call.
type Invocation struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run invokes `vcs <args...>` in cwd, classifying any non-zero exit.
func (r *Runner) Run(ctx context.Context, args []string, cwd string) (Invocation, *result.Error) {
	out, err := r.exec.Run(ctx, executor.Request{Name: Binary, Args: args, Dir: cwd, Timeout: executor.DefaultTimeout})
	if err != nil {
		// context deadline exceeded / spawn failure: never retried.
		return Invocation{}, result.FromCommand(result.CommandFailed, append([]string{Binary}, args...), "", "%s", err)
	}
	inv := Invocation{Stdout: string(out.Stdout), Stderr: string(out.Stderr), ExitCode: out.ExitCode}
	if out.ExitCode == 0 {
		return inv, nil
	}
	kind := detectErrorKind(inv.Stderr)
	if kind == "" {
		kind = result.CommandFailed
	}
	return inv, result.FromCommand(kind, append([]string{Binary}, args...), inv.Stderr, "vcs command failed")
}

// detectErrorKind classifies stderr by substring match, checking in order
// of precedence: NOT_IN_REPO, then INVALID_REVISION, then
// WORKSPACE_NOT_FOUND, then CONFLICT, falling through to none.
func detectErrorKind(stderr string) result.Kind {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(stderr, "No workspace configured"), strings.Contains(lower, "not a jj repo"), strings.Contains(lower, "no such file or directory: .jj"):
		return result.NotInRepo
	case strings.Contains(lower, "revision") && (strings.Contains(lower, "doesn't exist") || strings.Contains(lower, "invalid")):
		return result.InvalidRevision
	case strings.Contains(lower, "workspace") && strings.Contains(lower, "doesn't exist"):
		return result.WorkspaceNotFound
	case strings.Contains(stderr, "conflict"):
		return result.Conflict
	default:
		return ""
	}
}

// isLockError reports whether stderr indicates transient lock contention.
// The runner retries on any "locked"/"lock"/"packed-refs" match.
func isLockError(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "locked") || strings.Contains(lower, "lock") || strings.Contains(lower, "packed-refs")
}

// RunWithLockRetry wraps Run: on a lock-shaped failure it sleeps 20ms and
// retries, bounded at 10 attempts. Any other failure returns immediately.
func (r *Runner) RunWithLockRetry(ctx context.Context, args []string, cwd string) (Invocation, *result.Error) {
	var lastInv Invocation
	var lastErr *result.Error
	for attempt := 0; attempt < lockRetryAttempts; attempt++ {
		inv, err := r.Run(ctx, args, cwd)
		if err == nil {
			return inv, nil
		}
		lastInv, lastErr = inv, err
		if !isLockError(err.Stderr) {
			return inv, err
		}
		select {
		case <-ctx.Done():
			return lastInv, result.Wrap(result.CommandFailed, ctx.Err(), "cancelled during lock retry")
		case <-time.After(lockRetryDelay):
		}
	}
	return lastInv, lastErr
}

// TrunkOf returns the configured trunk bookmark for cwd, cached after the
// first successful resolution. Fails INVALID_STATE if unconfigured.
func (r *Runner) TrunkOf(ctx context.Context, cwd string) (string, *result.Error) {
	r.mu.Lock()
	if t, ok := r.trunkCache[cwd]; ok {
		r.mu.Unlock()
		return t, nil
	}
	r.mu.Unlock()

	inv, err := r.Run(ctx, []string{"config", "get", "revset-aliases.trunk()"}, cwd)
	if err != nil || strings.TrimSpace(inv.Stdout) == "" {
		return "", result.New(result.InvalidState, "no trunk bookmark configured for %s", cwd)
	}
	trunk := strings.Trim(strings.TrimSpace(inv.Stdout), `"'`)

	r.mu.Lock()
	r.trunkCache[cwd] = trunk
	r.mu.Unlock()
	return trunk, nil
}

// ResetTrunkCache clears the cached trunk for cwd (or all cwds if empty),
// used by tests and by commands that reconfigure trunk.
func (r *Runner) ResetTrunkCache(cwd string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cwd == "" {
		r.trunkCache = make(map[string]string)
		return
	}
	delete(r.trunkCache, cwd)
}

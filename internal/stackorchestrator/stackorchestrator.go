// Package stackorchestrator builds stacked-change PR submissions and folds
// them back into trunk. It drives a vcsrunner.Runner for VCS mutations and
// a hostadapter.Host for PR mutations, naming one bookmark per stacked
// change in trunk-to-tip order.
package stackorchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/loom-dev/loom/internal/changeset"
	"github.com/loom-dev/loom/internal/hostadapter"
	"github.com/loom-dev/loom/internal/naming"
	"github.com/loom-dev/loom/internal/result"
	"github.com/loom-dev/loom/internal/vcsparse"
	"github.com/loom-dev/loom/internal/vcsrunner"
	"github.com/loom-dev/loom/internal/workspace"
)

// SubmitOptions configures submitStack.
type SubmitOptions struct {
	RepoPath string
	Draft    bool
}

// SubmitResult is returned by submitStack and submitWorkspace.
type SubmitResult struct {
	Created int
	Updated int
	Synced  int
	Entries []changeset.StackEntry
}

// MergeResult is returned by mergeStack.
type MergeResult struct {
	Merged  int
	Entries []changeset.StackEntry
}

// Orchestrator implements submitStack/submitWorkspace/mergeStack.
type Orchestrator struct {
	runner *vcsrunner.Runner
	ws     *workspace.Manager
	host   hostadapter.Host
}

func New(runner *vcsrunner.Runner, ws *workspace.Manager, host hostadapter.Host) *Orchestrator {
	return &Orchestrator{runner: runner, ws: ws, host: host}
}

// stackChanges fetches trunk..@ ordered trunk-first.
func (o *Orchestrator) stackChanges(ctx context.Context, repoPath string) ([]changeset.Change, *result.Error) {
	trunk, rerr := o.runner.TrunkOf(ctx, repoPath)
	if rerr != nil {
		return nil, rerr
	}
	inv, rerr := o.runner.Run(ctx, []string{"log", "-r", trunk + ".. & ::@", "--no-graph", "-T", vcsparse.ChangesetTemplate}, repoPath)
	if rerr != nil {
		return nil, rerr
	}
	changes, perr := vcsparse.ParseChangesets(inv.Stdout)
	if perr != nil {
		return nil, perr
	}
	return changeset.TrunkToTip(changes), nil
}

// validateStack requires every change except a working-copy tip to carry a description and
// no change anywhere in the stack to have conflicts.
func validateStack(changes []changeset.Change) *result.Error {
	for i, c := range changes {
		isTip := i == len(changes)-1
		if c.Description == "" && !(isTip && c.IsWorkingCopy) {
			return result.New(result.MissingMessage, "change %s has no description", c.ShortChangeID())
		}
		if c.HasConflicts {
			return result.New(result.Conflict, "change %s has conflicts", c.ShortChangeID())
		}
	}
	return nil
}

// bookmarkFor returns a change's existing bookmark name, if any, by asking
// the VCS which local bookmarks point at it.
func (o *Orchestrator) bookmarkFor(ctx context.Context, repoPath, changeID string) (string, *result.Error) {
	inv, rerr := o.runner.Run(ctx, []string{"log", "-r", changeID, "--no-graph", "-T", "local_bookmarks.join(\"\\n\")"}, repoPath)
	if rerr != nil {
		return "", rerr
	}
	for _, line := range nonEmptyLines(inv.Stdout) {
		return line, nil
	}
	return "", nil
}

// nonEmptyLines splits s on newlines, trimming whitespace and dropping
// blank lines.
func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// transaction records every mutation a submitStack run has made, so a
// failure partway through can be unwound in reverse.
type transaction struct {
	createdBookmarks []string
	pushedBookmarks  []string
	createdPRs       []int
}

// rollback closes newest-PR-first and deletes every bookmark this
// transaction created.
func (o *Orchestrator) rollback(ctx context.Context, repoPath string, tx *transaction) []string {
	var failures []string
	for i := len(tx.createdPRs) - 1; i >= 0; i-- {
		if rerr := o.host.ClosePR(ctx, tx.createdPRs[i]); rerr != nil {
			failures = append(failures, fmt.Sprintf("closing PR #%d: %s", tx.createdPRs[i], rerr))
		}
	}
	for _, bm := range tx.createdBookmarks {
		if _, rerr := o.runner.RunWithLockRetry(ctx, []string{"bookmark", "delete", bm}, repoPath); rerr != nil {
			failures = append(failures, fmt.Sprintf("deleting bookmark %s: %s", bm, rerr))
		}
	}
	return failures
}

// SubmitStack resolves bookmark names for trunk..@, ensures and pushes
// their bookmarks, creates or updates one PR per change, and posts the
// stack comment to each resulting PR.
func (o *Orchestrator) SubmitStack(ctx context.Context, opts SubmitOptions) (SubmitResult, *result.Error) {
	changes, rerr := o.stackChanges(ctx, opts.RepoPath)
	if rerr != nil {
		return SubmitResult{}, rerr
	}
	if len(changes) == 0 {
		return SubmitResult{}, nil
	}
	if rerr := validateStack(changes); rerr != nil {
		return SubmitResult{}, rerr
	}

	trunk, rerr := o.runner.TrunkOf(ctx, opts.RepoPath)
	if rerr != nil {
		return SubmitResult{}, rerr
	}

	names, rerr := o.resolveNames(ctx, opts.RepoPath, changes)
	if rerr != nil {
		return SubmitResult{}, rerr
	}

	tx := &transaction{}
	entries, rerr := o.ensureBookmarks(ctx, opts.RepoPath, changes, names, tx)
	if rerr != nil {
		failures := o.rollback(ctx, opts.RepoPath, tx)
		return SubmitResult{}, enrichWithRollbackFailures(rerr, failures)
	}

	submitRes, rerr := o.createOrUpdatePRs(ctx, opts, trunk, changes, entries, tx)
	if rerr != nil {
		failures := o.rollback(ctx, opts.RepoPath, tx)
		return SubmitResult{}, enrichWithRollbackFailures(rerr, failures)
	}

	o.postStackComments(ctx, submitRes.Entries)
	return submitRes, nil
}

// PlanStack computes the same plan SubmitStack would act on (resolved
// bookmark names, prospective bases, and create/update actions against the
// host's current PRs) without creating or mutating anything. It backs
// `submit --dry-run`.
func (o *Orchestrator) PlanStack(ctx context.Context, repoPath string) ([]changeset.StackEntry, *result.Error) {
	changes, rerr := o.stackChanges(ctx, repoPath)
	if rerr != nil {
		return nil, rerr
	}
	if len(changes) == 0 {
		return nil, nil
	}
	if rerr := validateStack(changes); rerr != nil {
		return nil, rerr
	}
	trunk, rerr := o.runner.TrunkOf(ctx, repoPath)
	if rerr != nil {
		return nil, rerr
	}
	names, rerr := o.resolveNames(ctx, repoPath, changes)
	if rerr != nil {
		return nil, rerr
	}

	heads := make([]string, len(changes))
	for i, c := range changes {
		heads[i] = names[c.ChangeID]
	}
	prsByHead, rerr := o.host.BatchGetPRsByBranch(ctx, heads)
	if rerr != nil {
		return nil, rerr
	}

	entries := make([]changeset.StackEntry, len(changes))
	base := trunk
	for i, c := range changes {
		name := names[c.ChangeID]
		entry := changeset.StackEntry{ChangeID: c.ChangeID, Bookmark: name, Title: c.Description, ProspectiveBase: base}
		if info, ok := prsByHead[name]; ok && info.State == changeset.PROpen {
			entry.PRNumber = info.Number
			entry.URL = info.URL
			entry.Title = info.Title
			entry.State = info.State
			entry.ReviewDecision = info.ReviewDecision
			entry.Action = changeset.ActionUpdate
		} else {
			entry.Action = changeset.ActionCreate
		}
		entries[i] = entry
		base = name
	}
	return entries, nil
}

func enrichWithRollbackFailures(cause *result.Error, failures []string) *result.Error {
	if len(failures) == 0 {
		return cause
	}
	msg := cause.Message
	for _, f := range failures {
		msg += "; rollback also failed: " + f
	}
	return &result.Error{Kind: cause.Kind, Message: msg, Command: cause.Command, Stderr: cause.Stderr, Cause: cause.Cause}
}

// resolveNames derives a candidate name per change, then resolves
// collisions against the host in trunk-to-tip order.
func (o *Orchestrator) resolveNames(ctx context.Context, repoPath string, changes []changeset.Change) (map[string]string, *result.Error) {
	candidates := make([]string, len(changes))
	for i, c := range changes {
		existing, rerr := o.bookmarkFor(ctx, repoPath, c.ChangeID)
		if rerr != nil {
			return nil, rerr
		}
		if existing != "" {
			candidates[i] = existing
			continue
		}
		candidates[i] = naming.DatePrefixedLabel(c.Description, submitTime())
	}

	// One batch fetch covers every candidate name; a suffix tried by
	// naming.ResolveName that was never part of that batch is treated as
	// free rather than issuing another host round-trip per suffix.
	heads := make([]string, len(candidates))
	copy(heads, candidates)
	prsByHead, rerr := o.host.BatchGetPRsByBranch(ctx, heads)
	if rerr != nil {
		return nil, rerr
	}
	lookup := func(head string) (string, bool) {
		info, ok := prsByHead[head]
		return string(info.State), ok
	}

	names := make(map[string]string, len(changes))
	assigned := make(map[string]bool, len(changes))
	for i, c := range changes {
		name, _, err := naming.ResolveName(candidates[i], lookup, assigned)
		if err != nil {
			return nil, result.New(result.Conflict, "%s", err)
		}
		assigned[name] = true
		names[c.ChangeID] = name
	}
	return names, nil
}

// submitTime is the reference time used for date-prefixed labels. Kept as
// a function so tests can swap it.
var submitTime = time.Now

// ensureBookmarks creates (or leaves) each bookmark and pushes whichever
// are new or moved.
func (o *Orchestrator) ensureBookmarks(ctx context.Context, repoPath string, changes []changeset.Change, names map[string]string, tx *transaction) ([]changeset.StackEntry, *result.Error) {
	entries := make([]changeset.StackEntry, len(changes))
	for i, c := range changes {
		name := names[c.ChangeID]
		existing, rerr := o.bookmarkFor(ctx, repoPath, c.ChangeID)
		if rerr != nil {
			return nil, rerr
		}
		isNew := existing == ""
		if isNew {
			if _, rerr := o.runner.RunWithLockRetry(ctx, []string{"bookmark", "create", name, "-r", c.ChangeID}, repoPath); rerr != nil {
				return nil, rerr
			}
			tx.createdBookmarks = append(tx.createdBookmarks, name)
		} else if existing != name {
			if _, rerr := o.runner.RunWithLockRetry(ctx, []string{"bookmark", "set", name, "-r", c.ChangeID}, repoPath); rerr != nil {
				return nil, rerr
			}
			tx.createdBookmarks = append(tx.createdBookmarks, name)
		}

		if isNew || existing != name || o.aheadOfRemote(ctx, repoPath, name) {
			if _, rerr := o.runner.RunWithLockRetry(ctx, []string{"git", "push", "--bookmark", name}, repoPath); rerr != nil {
				return nil, rerr
			}
			tx.pushedBookmarks = append(tx.pushedBookmarks, name)
		}

		entries[i] = changeset.StackEntry{ChangeID: c.ChangeID, Bookmark: name}
	}
	return entries, nil
}

// aheadOfRemote reports whether name's local tip differs from its
// "@origin" counterpart.
func (o *Orchestrator) aheadOfRemote(ctx context.Context, repoPath, name string) bool {
	inv, rerr := o.runner.Run(ctx, []string{"log", "-r", name + " ~ " + name + "@origin", "--no-graph", "-T", "change_id"}, repoPath)
	if rerr != nil {
		return false
	}
	return len(nonEmptyLines(inv.Stdout)) > 0
}

// createOrUpdatePRs creates a PR for each change with no existing open PR,
// and retargets the base of any existing open PR whose base has moved.
func (o *Orchestrator) createOrUpdatePRs(ctx context.Context, opts SubmitOptions, trunk string, changes []changeset.Change, entries []changeset.StackEntry, tx *transaction) (SubmitResult, *result.Error) {
	heads := make([]string, len(entries))
	for i, e := range entries {
		heads[i] = e.Bookmark
	}
	prsByHead, rerr := o.host.BatchGetPRsByBranch(ctx, heads)
	if rerr != nil {
		return SubmitResult{}, rerr
	}

	var res SubmitResult
	base := trunk
	for i, c := range changes {
		entry := &entries[i]
		info, exists := prsByHead[entry.Bookmark]
		switch {
		case exists && info.State == changeset.PROpen:
			if info.BaseRefName != base {
				if rerr := o.host.UpdatePR(ctx, info.Number, base); rerr != nil {
					return SubmitResult{}, rerr
				}
			}
			entry.PRNumber = info.Number
			entry.URL = info.URL
			entry.Title = info.Title
			entry.State = info.State
			entry.ReviewDecision = info.ReviewDecision
			entry.ProspectiveBase = base
			entry.Action = changeset.ActionUpdate
			res.Updated++
		default:
			title := c.Description
			created, rerr := o.host.CreatePR(ctx, entry.Bookmark, base, title, "", opts.Draft)
			if rerr != nil {
				return SubmitResult{}, rerr
			}
			tx.createdPRs = append(tx.createdPRs, created.Number)
			entry.PRNumber = created.Number
			entry.URL = created.URL
			entry.Title = created.Title
			entry.State = created.State
			entry.ReviewDecision = created.ReviewDecision
			entry.ProspectiveBase = base
			entry.Action = changeset.ActionCreate
			res.Created++
		}
		base = entry.Bookmark
	}
	res.Entries = entries
	return res, nil
}

// postStackComments updates every PR in the stack with the current set
// of entries. Comment failures are best-effort: submit has already
// succeeded by this point.
func (o *Orchestrator) postStackComments(ctx context.Context, entries []changeset.StackEntry) {
	for _, e := range entries {
		if e.PRNumber == 0 {
			continue
		}
		o.host.UpsertStackComment(ctx, e.PRNumber, renderStackComment(entries, e.PRNumber))
	}
}

// entryStatus classifies one stack entry relative to the PR the comment is
// being posted to: the entry being commented on is always "this"; merged
// or closed PRs report that state regardless of review; an open PR
// reports "approved" once its review decision says so, else "waiting".
func entryStatus(e changeset.StackEntry, forPR int) string {
	switch {
	case e.PRNumber == forPR:
		return "this"
	case e.State == changeset.PRMerged:
		return "merged"
	case e.State == changeset.PRClosed:
		return "closed"
	case e.ReviewDecision == "APPROVED":
		return "approved"
	default:
		return "waiting"
	}
}

func renderStackComment(entries []changeset.StackEntry, forPR int) string {
	s := "Stack:\n"
	for _, e := range entries {
		s += fmt.Sprintf("- #%d %s (%s)\n", e.PRNumber, e.Title, entryStatus(e, forPR))
	}
	return s
}

// SubmitWorkspace strips a workspace's WIP description prefix, submits
// the stack from trunk to that workspace's tip, and rebuilds the preview
// if needed afterward.
func (o *Orchestrator) SubmitWorkspace(ctx context.Context, repoPath, name string, opts SubmitOptions, rebuildPreview func(context.Context) *result.Error) (SubmitResult, *result.Error) {
	dir := o.ws.Dir(repoPath, name)
	tip, rerr := o.ws.TipOf(ctx, repoPath, name)
	if rerr != nil {
		return SubmitResult{}, rerr
	}
	inv, rerr := o.runner.Run(ctx, []string{"log", "-r", tip, "--no-graph", "-T", "description"}, dir)
	if rerr != nil {
		return SubmitResult{}, rerr
	}
	if rerr := o.ws.StripWIPPrefix(ctx, dir, inv.Stdout); rerr != nil {
		return SubmitResult{}, rerr
	}

	res, rerr := o.SubmitStack(ctx, SubmitOptions{RepoPath: dir, Draft: opts.Draft})
	if rerr != nil {
		return SubmitResult{}, rerr
	}
	if rebuildPreview != nil {
		if rerr := rebuildPreview(ctx); rerr != nil {
			return res, rerr
		}
	}
	return res, nil
}

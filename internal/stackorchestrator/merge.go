package stackorchestrator

import (
	"context"
	"strings"

	"github.com/loom-dev/loom/internal/changeset"
	"github.com/loom-dev/loom/internal/hostadapter"
	"github.com/loom-dev/loom/internal/result"
)

// MergeStack folds a sequence of dependent PRs into trunk in order, one
// at a time.
func (o *Orchestrator) MergeStack(ctx context.Context, repoPath string, prs []int, method hostadapter.MergeMethod) (MergeResult, *result.Error) {
	for _, n := range prs {
		infos, rerr := o.host.BatchGetPRsByNumber(ctx, []int{n})
		if rerr != nil {
			return MergeResult{}, rerr
		}
		info, ok := infos[n]
		if !ok {
			return MergeResult{}, result.New(result.NotFound, "PR #%d not found", n)
		}
		if changeset.IsProtected(info.HeadRefName) {
			return MergeResult{}, result.New(result.InvalidInput, "refusing to merge protected head %q", info.HeadRefName)
		}
	}

	trunk, rerr := o.runner.TrunkOf(ctx, repoPath)
	if rerr != nil {
		return MergeResult{}, rerr
	}

	var res MergeResult
	for i, n := range prs {
		if rerr := o.host.UpdatePR(ctx, n, trunk); rerr != nil {
			return res, rerr
		}
		if rerr := o.host.WaitForMergeable(ctx, n); rerr != nil {
			return res, rerr
		}

		infos, rerr := o.host.BatchGetPRsByNumber(ctx, []int{n})
		if rerr != nil {
			return res, rerr
		}
		info := infos[n]

		tip, tipErr := o.runner.Run(ctx, []string{"log", "-r", info.HeadRefName, "--no-graph", "-T", "change_id"}, repoPath)

		if rerr := o.host.MergePR(ctx, n, method, true, info.HeadRefName); rerr != nil {
			return res, rerr
		}

		if _, rerr := o.runner.RunWithLockRetry(ctx, []string{"bookmark", "delete", info.HeadRefName}, repoPath); rerr != nil {
			return res, rerr
		}

		if tipErr == nil {
			o.runner.RunWithLockRetry(ctx, []string{"abandon", strings.TrimSpace(tip.Stdout)}, repoPath)
		}

		res.Merged++
		res.Entries = append(res.Entries, changeset.StackEntry{
			Bookmark: info.HeadRefName,
			Title:    info.Title,
			PRNumber: n,
			Action:   changeset.ActionSkip,
			State:    changeset.PRMerged,
		})

		if i+1 < len(prs) {
			if rerr := o.host.UpdatePRBranch(ctx, prs[i+1]); rerr != nil {
				return res, rerr
			}
			if _, rerr := o.runner.RunWithLockRetry(ctx, []string{"git", "fetch"}, repoPath); rerr != nil {
				return res, rerr
			}
		}
	}

	o.postStackComments(ctx, res.Entries)
	return res, nil
}

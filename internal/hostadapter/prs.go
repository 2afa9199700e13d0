package hostadapter

import (
	"context"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/loom-dev/loom/internal/changeset"
	"github.com/loom-dev/loom/internal/result"
)

// CreatePR opens a new pull request from head onto base.
func (c *Client) CreatePR(ctx context.Context, head, base, title, body string, draft bool) (PRInfo, *result.Error) {
	pr, _, err := c.rest.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
		Draft: github.Bool(draft),
	})
	if err != nil {
		return PRInfo{}, result.Wrap(result.CommandFailed, err, "creating PR %s -> %s", head, base)
	}
	return toPRInfo(pr), nil
}

// UpdatePR retargets an existing PR's base branch.
func (c *Client) UpdatePR(ctx context.Context, number int, base string) *result.Error {
	_, _, err := c.rest.PullRequests.Edit(ctx, c.owner, c.repo, number, &github.PullRequest{
		Base: &github.PullRequestBranch{Ref: github.String(base)},
	})
	if err != nil {
		return result.Wrap(result.CommandFailed, err, "updating PR #%d base to %s", number, base)
	}
	return nil
}

// ClosePR closes a PR without merging it.
func (c *Client) ClosePR(ctx context.Context, number int) *result.Error {
	_, _, err := c.rest.PullRequests.Edit(ctx, c.owner, c.repo, number, &github.PullRequest{
		State: github.String("closed"),
	})
	if err != nil {
		return result.Wrap(result.CommandFailed, err, "closing PR #%d", number)
	}
	return nil
}

// MergePR merges a PR via method, optionally deleting the head branch
// afterward. It refuses to delete a protected branch name.
func (c *Client) MergePR(ctx context.Context, number int, method MergeMethod, deleteHead bool, headRef string) *result.Error {
	_, _, err := c.rest.PullRequests.Merge(ctx, c.owner, c.repo, number, "", &github.PullRequestOptions{
		MergeMethod: string(method),
	})
	if err != nil {
		return result.Wrap(result.CommandFailed, err, "merging PR #%d via %s", number, method)
	}
	if deleteHead && !changeset.IsProtected(headRef) {
		if _, err := c.rest.Git.DeleteRef(ctx, c.owner, c.repo, "refs/heads/"+headRef); err != nil {
			return result.Wrap(result.CommandFailed, err, "deleting head branch %s", headRef)
		}
	}
	return nil
}

// UpdatePRBranch requests a host-side update-branch (rebase-on-base)
// operation, used between sequential merges in mergeStack's step 5.
func (c *Client) UpdatePRBranch(ctx context.Context, number int) *result.Error {
	_, _, err := c.rest.PullRequests.UpdateBranch(ctx, c.owner, c.repo, number, nil)
	if err != nil {
		return result.Wrap(result.CommandFailed, err, "requesting branch update for PR #%d", number)
	}
	return nil
}

// WaitForMergeable polls until a PR is mergeable and in a clean or
// unstable state, once every mergePollInterval, failing MERGE_BLOCKED
// after mergeTimeout.
func (c *Client) WaitForMergeable(ctx context.Context, number int) *result.Error {
	deadline := time.Now().Add(c.mergeTimeout)
	for {
		pr, _, err := c.rest.PullRequests.Get(ctx, c.owner, c.repo, number)
		if err != nil {
			return result.Wrap(result.CommandFailed, err, "fetching PR #%d", number)
		}
		if pr.GetMergeableState() == "dirty" {
			return result.New(result.MergeBlocked, "PR #%d has conflicts with its base", number)
		}
		if pr.Mergeable != nil && pr.GetMergeable() && (pr.GetMergeableState() == "clean" || pr.GetMergeableState() == "unstable") {
			return nil
		}
		if time.Now().After(deadline) {
			return result.New(result.MergeBlocked, "PR #%d did not become mergeable within %s", number, c.mergeTimeout)
		}
		select {
		case <-ctx.Done():
			return result.Wrap(result.CommandFailed, ctx.Err(), "cancelled waiting for PR #%d to become mergeable", number)
		case <-time.After(c.mergePollInterval):
		}
	}
}

func toPRInfo(pr *github.PullRequest) PRInfo {
	info := PRInfo{
		Number:      pr.GetNumber(),
		Title:       pr.GetTitle(),
		BaseRefName: pr.GetBase().GetRef(),
		HeadRefName: pr.GetHead().GetRef(),
		URL:         pr.GetHTMLURL(),
	}
	switch {
	case pr.GetMerged():
		info.State = changeset.PRMerged
	case pr.GetState() == "closed":
		info.State = changeset.PRClosed
	default:
		info.State = changeset.PROpen
	}
	return info
}

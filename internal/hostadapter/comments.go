package hostadapter

import (
	"context"
	"strings"

	"github.com/google/go-github/v62/github"
	"github.com/loom-dev/loom/internal/result"
)

// stackCommentMarker hides inside every stack comment's body so
// upsertStackComment can find its own prior comment instead of posting a
// new one on every submit.
const stackCommentMarker = "<!-- loom:stack-comment -->"

// UpsertStackComment inserts the marker into body, then updates the first
// comment that carries it or creates a new one.
func (c *Client) UpsertStackComment(ctx context.Context, number int, body string) *result.Error {
	full := stackCommentMarker + "\n" + body

	comments, _, err := c.rest.Issues.ListComments(ctx, c.owner, c.repo, number, nil)
	if err != nil {
		return result.Wrap(result.CommandFailed, err, "listing comments on PR #%d", number)
	}
	for _, comment := range comments {
		if strings.Contains(comment.GetBody(), stackCommentMarker) {
			_, _, err := c.rest.Issues.EditComment(ctx, c.owner, c.repo, comment.GetID(), &github.IssueComment{Body: github.String(full)})
			if err != nil {
				return result.Wrap(result.CommandFailed, err, "updating stack comment on PR #%d", number)
			}
			return nil
		}
	}
	if _, _, err := c.rest.Issues.CreateComment(ctx, c.owner, c.repo, number, &github.IssueComment{Body: github.String(full)}); err != nil {
		return result.Wrap(result.CommandFailed, err, "creating stack comment on PR #%d", number)
	}
	return nil
}

package hostadapter

import (
	"context"
	"fmt"
	"reflect"

	"github.com/loom-dev/loom/internal/changeset"
	"github.com/loom-dev/loom/internal/result"
	"github.com/shurcooL/githubv4"
)

// prNode is the shape fetched for every pull request, by branch or by
// number.
type prNode struct {
	Number         githubv4.Int
	Title          githubv4.String
	State          githubv4.String
	BaseRefName    githubv4.String
	HeadRefName    githubv4.String
	URL            githubv4.String
	ReviewDecision githubv4.String
}

func (n prNode) toPRInfo() PRInfo {
	info := PRInfo{
		Number:         int(n.Number),
		Title:          string(n.Title),
		BaseRefName:    string(n.BaseRefName),
		HeadRefName:    string(n.HeadRefName),
		URL:            string(n.URL),
		ReviewDecision: string(n.ReviewDecision),
	}
	switch string(n.State) {
	case "MERGED":
		info.State = changeset.PRMerged
	case "CLOSED":
		info.State = changeset.PRClosed
	default:
		info.State = changeset.PROpen
	}
	return info
}

// BatchGetPRsByBranch fetches the most recently updated PRs in a single
// GraphQL round-trip and returns the best match per requested head: an
// OPEN PR if one exists, else the most recently updated CLOSED/MERGED one.
func (c *Client) BatchGetPRsByBranch(ctx context.Context, heads []string) (map[string]PRInfo, *result.Error) {
	wanted := make(map[string]bool, len(heads))
	for _, h := range heads {
		wanted[h] = true
	}

	var query struct {
		Repository struct {
			PullRequests struct {
				Nodes []prNode
			} `graphql:"pullRequests(first: 100, orderBy: {field: UPDATED_AT, direction: DESC}, states: [OPEN, CLOSED, MERGED])"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner": githubv4.String(c.owner),
		"name":  githubv4.String(c.repo),
	}
	if err := c.gql.Query(ctx, &query, vars); err != nil {
		return nil, result.Wrap(result.CommandFailed, err, "batch-fetching PRs by branch")
	}

	out := make(map[string]PRInfo, len(heads))
	for _, node := range query.Repository.PullRequests.Nodes {
		head := string(node.HeadRefName)
		if !wanted[head] {
			continue
		}
		info := node.toPRInfo()
		existing, have := out[head]
		if !have || (info.State == changeset.PROpen && existing.State != changeset.PROpen) {
			out[head] = info
		}
	}
	return out, nil
}

// BatchGetPRsByNumber fetches an arbitrary set of PRs by number in a
// single GraphQL round-trip, by dynamically aliasing one `pullRequest(...)`
// field per number, the same reflect.StructOf trick real githubv4
// batch-query tooling uses when the field set isn't known until runtime.
func (c *Client) BatchGetPRsByNumber(ctx context.Context, numbers []int) (map[int]PRInfo, *result.Error) {
	if len(numbers) == 0 {
		return map[int]PRInfo{}, nil
	}

	fields := make([]reflect.StructField, len(numbers))
	for i, n := range numbers {
		fields[i] = reflect.StructField{
			Name: fmt.Sprintf("Pr%d", i),
			Type: reflect.TypeOf(prNode{}),
			Tag:  reflect.StructTag(fmt.Sprintf(`graphql:"pr%d: pullRequest(number: %d)"`, i, n)),
		}
	}
	repoType := reflect.StructOf(fields)
	queryType := reflect.StructOf([]reflect.StructField{
		{
			Name: "Repository",
			Type: repoType,
			Tag:  reflect.StructTag(fmt.Sprintf(`graphql:"repository(owner: %q, name: %q)"`, c.owner, c.repo)),
		},
	})

	queryPtr := reflect.New(queryType)
	if err := c.gql.Query(ctx, queryPtr.Interface(), nil); err != nil {
		return nil, result.Wrap(result.CommandFailed, err, "batch-fetching PRs by number")
	}

	repoVal := queryPtr.Elem().FieldByName("Repository")
	out := make(map[int]PRInfo, len(numbers))
	for i, n := range numbers {
		node := repoVal.Field(i).Interface().(prNode)
		out[n] = node.toPRInfo()
	}
	return out, nil
}

// Package hostadapter talks to the PR-hosting service: batched GraphQL
// reads via shurcooL/githubv4, REST mutations via go-github/v62, and a
// per-cwd cache of the resolved owner/repo/client.
package hostadapter

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/loom-dev/loom/internal/changeset"
	"github.com/loom-dev/loom/internal/result"
	"github.com/loom-dev/loom/internal/vcsrunner"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// PRInfo is the host-agnostic view of one pull request used throughout
// the Stack Orchestrator.
type PRInfo struct {
	Number         int
	Title          string
	State          changeset.PRState
	BaseRefName    string
	HeadRefName    string
	URL            string
	ReviewDecision string
}

// MergeMethod selects how mergePR folds a PR into its base.
type MergeMethod string

const (
	MergeSquash MergeMethod = "squash"
	MergeMerge  MergeMethod = "merge"
	MergeRebase MergeMethod = "rebase"
)

// Host is the full surface the Stack Orchestrator depends on. Production
// code is backed by Client; tests supply a hand-written fake.
type Host interface {
	BatchGetPRsByBranch(ctx context.Context, heads []string) (map[string]PRInfo, *result.Error)
	BatchGetPRsByNumber(ctx context.Context, numbers []int) (map[int]PRInfo, *result.Error)
	CreatePR(ctx context.Context, head, base, title, body string, draft bool) (PRInfo, *result.Error)
	UpdatePR(ctx context.Context, number int, base string) *result.Error
	ClosePR(ctx context.Context, number int) *result.Error
	MergePR(ctx context.Context, number int, method MergeMethod, deleteHead bool, headRef string) *result.Error
	UpdatePRBranch(ctx context.Context, number int) *result.Error
	WaitForMergeable(ctx context.Context, number int) *result.Error
	UpsertStackComment(ctx context.Context, number int, body string) *result.Error
}

// Client is the production Host: REST via go-github, GraphQL via githubv4,
// both sharing one oauth2-authenticated http.Client.
type Client struct {
	rest *github.Client
	gql  *githubv4.Client

	owner, repo string

	mergePollInterval, mergeTimeout time.Duration
}

// repoCacheEntry is what's cached per working directory: the resolved
// owner/repo and a ready client, built once and reused for the life of the
// process.
type repoCacheEntry struct {
	client *Client
	err    *result.Error
}

var (
	cacheMu sync.Mutex
	cache   = make(map[string]repoCacheEntry)
)

// ForCwd returns the cached Client for cwd, resolving the remote URL and
// constructing a new one on first use.
func ForCwd(ctx context.Context, runner *vcsrunner.Runner, cwd, token string, mergePollInterval, mergeTimeout time.Duration) (*Client, *result.Error) {
	cacheMu.Lock()
	if entry, ok := cache[cwd]; ok {
		cacheMu.Unlock()
		return entry.client, entry.err
	}
	cacheMu.Unlock()

	owner, repo, rerr := remoteOwnerRepo(ctx, runner, cwd)
	var client *Client
	if rerr == nil {
		client = newClient(ctx, token, owner, repo, mergePollInterval, mergeTimeout)
	}

	cacheMu.Lock()
	cache[cwd] = repoCacheEntry{client: client, err: rerr}
	cacheMu.Unlock()
	return client, rerr
}

func newClient(ctx context.Context, token, owner, repo string, mergePollInterval, mergeTimeout time.Duration) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(ctx, ts)
	return &Client{
		rest:              github.NewClient(httpClient),
		gql:               githubv4.NewClient(httpClient),
		owner:             owner,
		repo:              repo,
		mergePollInterval: mergePollInterval,
		mergeTimeout:      mergeTimeout,
	}
}

// remoteRegexp matches both SSH and HTTPS GitHub remote URL forms.
var remoteRegexp = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/.]+?)(\.git)?$`)

// remoteOwnerRepo asks the VCS for its configured remote URLs and parses
// owner/repo from the first one that matches a GitHub remote. A parse
// failure is COMMAND_FAILED.
func remoteOwnerRepo(ctx context.Context, runner *vcsrunner.Runner, cwd string) (owner, repo string, err *result.Error) {
	inv, rerr := runner.Run(ctx, []string{"git", "remote", "list"}, cwd)
	if rerr != nil {
		return "", "", rerr
	}
	for _, line := range strings.Split(inv.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		m := remoteRegexp.FindStringSubmatch(fields[1])
		if m != nil {
			return m[1], m[2], nil
		}
	}
	return "", "", result.New(result.CommandFailed, "could not parse owner/repo from any remote in %s", cwd)
}

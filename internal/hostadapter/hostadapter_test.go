package hostadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v62/github"
	"github.com/loom-dev/loom/internal/changeset"
	"github.com/shurcooL/githubv4"
)

func TestRemoteRegexpParsesSSHAndHTTPS(t *testing.T) {
	cases := map[string][2]string{
		"git@github.com:loom-dev/loom.git": {"loom-dev", "loom"},
		"https://github.com/loom-dev/loom":  {"loom-dev", "loom"},
	}
	for remote, want := range cases {
		m := remoteRegexp.FindStringSubmatch(remote)
		if m == nil || m[1] != want[0] || m[2] != want[1] {
			t.Errorf("remote %q: got %v, want %v", remote, m, want)
		}
	}
}

func TestPRNodeToPRInfoClassifiesState(t *testing.T) {
	cases := map[string]changeset.PRState{
		"OPEN":   changeset.PROpen,
		"CLOSED": changeset.PRClosed,
		"MERGED": changeset.PRMerged,
	}
	for raw, want := range cases {
		node := prNode{State: githubv4.String(raw), HeadRefName: "feature"}
		if got := node.toPRInfo().State; got != want {
			t.Errorf("state %q: got %v, want %v", raw, got, want)
		}
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	gh := github.NewClient(nil)
	base, _ := url.Parse(server.URL + "/")
	gh.BaseURL = base
	return &Client{rest: gh, owner: "loom-dev", repo: "loom"}
}

func TestUpsertStackCommentCreatesWhenNoMarkerFound(t *testing.T) {
	created := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]*github.IssueComment{{ID: github.Int64(1), Body: github.String("unrelated")}})
		case http.MethodPost:
			created = true
			json.NewEncoder(w).Encode(&github.IssueComment{ID: github.Int64(2)})
		}
	})
	if rerr := client.UpsertStackComment(context.Background(), 7, "stack plan"); rerr != nil {
		t.Fatalf("unexpected error: %v", rerr)
	}
	if !created {
		t.Error("expected a new comment to be created when no marker comment exists")
	}
}

func TestUpsertStackCommentUpdatesExistingMarkerComment(t *testing.T) {
	updated := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]*github.IssueComment{{ID: github.Int64(5), Body: github.String(stackCommentMarker + "\nold plan")}})
		case http.MethodPatch:
			updated = true
			json.NewEncoder(w).Encode(&github.IssueComment{ID: github.Int64(5)})
		}
	})
	if rerr := client.UpsertStackComment(context.Background(), 7, "new plan"); rerr != nil {
		t.Fatalf("unexpected error: %v", rerr)
	}
	if !updated {
		t.Error("expected the existing marker comment to be updated, not recreated")
	}
}

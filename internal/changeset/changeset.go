// Package changeset defines the entity types at the center of the data
// model: Change, Bookmark, Workspace, the preview merge commit, and the
// stack PR plan, plus the derived queries the orchestrator and sync
// engine run over them.
package changeset

import "strings"

// Change is an immutable handle to a VCS revision.
type Change struct {
	ChangeID      string
	CommitID      string
	Description   string
	AuthorName    string
	AuthorEmail   string
	Timestamp     string
	Parents       []string
	IsWorkingCopy bool
	IsImmutable   bool
	IsEmpty       bool
	HasConflicts  bool
}

// ShortChangeID returns the conventional 8-character prefix used in CLI
// output; jj itself decides the true minimal unique prefix, this is just
// a display truncation.
func (c Change) ShortChangeID() string {
	if len(c.ChangeID) <= 8 {
		return c.ChangeID
	}
	return c.ChangeID[:8]
}

// ShortCommitID mirrors ShortChangeID for the content hash.
func (c Change) ShortCommitID() string {
	if len(c.CommitID) <= 8 {
		return c.CommitID
	}
	return c.CommitID[:8]
}

// Bookmark is a named, movable pointer to a change.
type Bookmark struct {
	Name       string
	TargetID   string
	Remote     string // empty for a purely local bookmark
	Ahead      int
	Behind     int
}

// IsRemoteTracking reports whether Name carries a "name@remote" suffix,
// which is excluded from local-name operations per the data model.
func (b Bookmark) IsRemoteTracking() bool {
	return strings.Contains(b.Name, "@")
}

// LocalName strips any "@remote" suffix.
func (b Bookmark) LocalName() string {
	if i := strings.Index(b.Name, "@"); i >= 0 {
		return b.Name[:i]
	}
	return b.Name
}

// Workspace is a named, on-disk working directory owned by one agent.
type Workspace struct {
	Name   string
	Path   string
	TipID  string
}

// UnassignedWorkspace is the special workspace that always exists at trunk
// once any workspace is focused; it can never be the user-chosen name.
const UnassignedWorkspace = "unassigned"

// PreviewTrailerPrefix is the machine-readable trailer line prefix the
// preview commit's description carries, one per included workspace.
const PreviewTrailerPrefix = "Preview-Workspace: "

// BuildPreviewDescription renders the preview commit's description: the
// literal header "preview", a blank line, then one trailer per member in
// insertion order.
func BuildPreviewDescription(members []string) string {
	var b strings.Builder
	b.WriteString("preview\n\n")
	for _, m := range members {
		b.WriteString(PreviewTrailerPrefix)
		b.WriteString(m)
		b.WriteString("\n")
	}
	return b.String()
}

// ParsePreviewTrailers extracts the ordered workspace names from a preview
// commit's description.
func ParsePreviewTrailers(description string) []string {
	var members []string
	for _, line := range strings.Split(description, "\n") {
		if strings.HasPrefix(line, PreviewTrailerPrefix) {
			members = append(members, strings.TrimPrefix(line, PreviewTrailerPrefix))
		}
	}
	return members
}

// PRState mirrors the host's pull-request lifecycle.
type PRState string

const (
	PROpen   PRState = "OPEN"
	PRClosed PRState = "CLOSED"
	PRMerged PRState = "MERGED"
)

// StackAction is the action the submitter will take for one change.
type StackAction string

const (
	ActionCreate StackAction = "create"
	ActionUpdate StackAction = "update"
	ActionSync   StackAction = "sync"
	ActionSkip   StackAction = "skip"
)

// StackEntry is one row of a stack PR plan: an ordered, ephemeral record
// produced by the Stack Orchestrator and consumed by the submitter.
type StackEntry struct {
	ChangeID        string
	Bookmark        string
	Title           string
	PRNumber        int // 0 means no PR yet
	ProspectiveBase string
	Action          StackAction
	URL             string
	State           PRState
	ReviewDecision  string
}

// ProtectedBranchNames are the trunk-like names mergeStack refuses to
// treat as a submittable head or delete.
var ProtectedBranchNames = map[string]bool{
	"trunk": true, "main": true, "master": true, "develop": true,
}

// IsProtected reports whether name is one of the protected trunk-like
// names that submit/merge must never delete or target as a head.
func IsProtected(name string) bool {
	return ProtectedBranchNames[name]
}

// TrunkToTip orders a set of changes from trunk to the working-copy tip by
// following the Parents chain. It assumes the input forms a single linear
// path (the invariant "a submitted stack is a single path: no diamonds").
func TrunkToTip(changes []Change) []Change {
	byID := make(map[string]Change, len(changes))
	hasChild := make(map[string]bool, len(changes))
	for _, c := range changes {
		byID[c.ChangeID] = c
		for _, p := range c.Parents {
			hasChild[p] = true
		}
	}
	// the tip is the change with no child in this set.
	var tip *Change
	for _, c := range changes {
		c := c
		if !hasChild[c.ChangeID] {
			tip = &c
			break
		}
	}
	if tip == nil {
		return nil
	}
	var ordered []Change
	cur := *tip
	for {
		ordered = append([]Change{cur}, ordered...)
		if len(cur.Parents) == 0 {
			break
		}
		parent, ok := byID[cur.Parents[0]]
		if !ok {
			break
		}
		cur = parent
	}
	return ordered
}

// Package vcsparse parses line-oriented `vcs` output: diff summaries,
// numstat, and the compact JSON-per-line changeset template. Every
// function here is a pure function of its string input, with no I/O and
// no subprocess calls.
package vcsparse

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/loom-dev/loom/internal/changeset"
	"github.com/loom-dev/loom/internal/result"
)

// Status is a diff entry's change kind.
type Status string

const (
	Modified Status = "M"
	Added    Status = "A"
	Deleted  Status = "D"
	Renamed  Status = "R"
)

// DiffEntry is one line of a parsed diff summary.
type DiffEntry struct {
	Status  Status
	Path    string
	OldPath string // only set when Status == Renamed
}

// ParseDiffSummary parses `vcs diff --summary` output. A rename line of the
// form "R {a => b}" yields {Status: R, Path: b, OldPath: a}.
func ParseDiffSummary(text string) []DiffEntry {
	var entries []DiffEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		status := Status(line[:1])
		rest := strings.TrimSpace(line[1:])
		switch status {
		case Modified, Added, Deleted:
			entries = append(entries, DiffEntry{Status: status, Path: rest})
		case Renamed:
			old, new, ok := parseRename(rest)
			if !ok {
				continue
			}
			entries = append(entries, DiffEntry{Status: Renamed, Path: new, OldPath: old})
		}
	}
	return entries
}

// parseRename parses "{src/a.ts => src/b.ts}" into ("src/a.ts", "src/b.ts").
// It also tolerates a shared-prefix form "dir/{a => b}.ts".
func parseRename(s string) (oldPath, newPath string, ok bool) {
	open := strings.Index(s, "{")
	close := strings.Index(s, "}")
	if open < 0 || close < 0 || close < open {
		return "", "", false
	}
	prefix := s[:open]
	suffix := s[close+1:]
	inner := s[open+1 : close]
	parts := strings.SplitN(inner, "=>", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	oldPath = prefix + strings.TrimSpace(parts[0]) + suffix
	newPath = prefix + strings.TrimSpace(parts[1]) + suffix
	return oldPath, newPath, true
}

// ParseDiffPaths returns, for each DiffEntry in turn, the paths it
// touches in {new, old} order (old only present for renames).
func ParseDiffPaths(entries []DiffEntry) []string {
	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
		if e.OldPath != "" {
			paths = append(paths, e.OldPath)
		}
	}
	return paths
}

// LineStat counts added/removed lines for one file from numstat output.
type LineStat struct {
	Added   int
	Removed int
}

// ParseNumstat parses `vcs diff --numstat` output: "<added>\t<removed>\t<path>".
// Binary files report "-" for both counts, which MUST map to 0.
func ParseNumstat(text string) map[string]LineStat {
	out := make(map[string]LineStat)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			continue
		}
		out[fields[2]] = LineStat{Added: numstatCount(fields[0]), Removed: numstatCount(fields[1])}
	}
	return out
}

func numstatCount(field string) int {
	if field == "-" {
		return 0
	}
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0
	}
	return n
}

// ChangesetTemplate is the `jj log -T` argument that emits one JSON
// object per line matching changesetRow, for use with ParseChangesets.
const ChangesetTemplate = `'{"change_id":' ++ change_id.short(40).escape_json() ++ ` +
	`',"commit_id":' ++ commit_id.short(40).escape_json() ++ ` +
	`',"description":' ++ description.escape_json() ++ ` +
	`',"author_name":' ++ author.name().escape_json() ++ ` +
	`',"author_email":' ++ author.email().escape_json() ++ ` +
	`',"timestamp":' ++ author.timestamp().escape_json() ++ ` +
	`',"parents":[' ++ parents.map(|p| p.change_id().short(40).escape_json()).join(",") ++ '],' ++ ` +
	`'"is_working_copy":' ++ current_working_copy ++ ',' ++ ` +
	`'"is_immutable":' ++ immutable ++ ',' ++ ` +
	`'"is_empty":' ++ empty ++ ',' ++ ` +
	`'"has_conflicts":' ++ conflict ++ '}\n'`

// ParseChangesets decodes the VCS's JSON-per-line changeset template into
// Change values. Any line that fails to unmarshal into the expected schema
// fails the whole batch with PARSE_ERROR; there are no best-effort partial
// results.
func ParseChangesets(jsonlText string) ([]changeset.Change, *result.Error) {
	var out []changeset.Change
	for i, line := range strings.Split(jsonlText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var row changesetRow
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, result.Wrap(result.ParseError, err, "invalid changeset JSON at line %d", i+1)
		}
		if row.ChangeID == "" || row.CommitID == "" {
			return nil, result.New(result.ParseError, "changeset at line %d missing change-id or commit-id", i+1)
		}
		out = append(out, changeset.Change{
			ChangeID:      row.ChangeID,
			CommitID:      row.CommitID,
			Description:   row.Description,
			AuthorName:    row.AuthorName,
			AuthorEmail:   row.AuthorEmail,
			Timestamp:     row.Timestamp,
			Parents:       row.Parents,
			IsWorkingCopy: row.IsWorkingCopy,
			IsImmutable:   row.IsImmutable,
			IsEmpty:       row.IsEmpty,
			HasConflicts:  row.HasConflicts,
		})
	}
	return out, nil
}

// changesetRow is the wire schema emitted by the VCS's `log -T` template.
type changesetRow struct {
	ChangeID      string   `json:"change_id"`
	CommitID      string   `json:"commit_id"`
	Description   string   `json:"description"`
	AuthorName    string   `json:"author_name"`
	AuthorEmail   string   `json:"author_email"`
	Timestamp     string   `json:"timestamp"`
	Parents       []string `json:"parents"`
	IsWorkingCopy bool     `json:"is_working_copy"`
	IsImmutable   bool     `json:"is_immutable"`
	IsEmpty       bool     `json:"is_empty"`
	HasConflicts  bool     `json:"has_conflicts"`
}

// DetectError classifies a stderr blob by substring match, independent of
// exit code, for callers (e.g. the sync lane) that already have captured
// stderr in hand. Precedence: NOT_IN_REPO > INVALID_REVISION >
// WORKSPACE_NOT_FOUND > none.
func DetectError(stderr string) (result.Kind, bool) {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(stderr, "No workspace configured"), strings.Contains(lower, "not a jj repo"):
		return result.NotInRepo, true
	case strings.Contains(lower, "revision") && strings.Contains(lower, "doesn't exist"):
		return result.InvalidRevision, true
	case strings.Contains(lower, "workspace") && strings.Contains(lower, "doesn't exist"):
		return result.WorkspaceNotFound, true
	default:
		return "", false
	}
}

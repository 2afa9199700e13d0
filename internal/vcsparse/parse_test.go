package vcsparse

import (
	"reflect"
	"testing"

	"github.com/loom-dev/loom/internal/result"
)

// S2 from the spec: rename parsing and path round-trip.
func TestParseDiffSummaryRename(t *testing.T) {
	entries := ParseDiffSummary("R {src/a.ts => src/b.ts}")
	want := []DiffEntry{{Status: Renamed, Path: "src/b.ts", OldPath: "src/a.ts"}}
	if !reflect.DeepEqual(entries, want) {
		t.Fatalf("got %+v, want %+v", entries, want)
	}

	paths := ParseDiffPaths(entries)
	wantPaths := []string{"src/b.ts", "src/a.ts"}
	if !reflect.DeepEqual(paths, wantPaths) {
		t.Fatalf("paths = %v, want %v", paths, wantPaths)
	}
}

func TestParseDiffSummaryBasicStatuses(t *testing.T) {
	text := "M foo.go\nA bar.go\nD baz.go\n"
	entries := ParseDiffSummary(text)
	want := []DiffEntry{
		{Status: Modified, Path: "foo.go"},
		{Status: Added, Path: "bar.go"},
		{Status: Deleted, Path: "baz.go"},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Fatalf("got %+v, want %+v", entries, want)
	}
}

func TestParseNumstatBinaryIsZero(t *testing.T) {
	text := "3\t1\tfoo.go\n-\t-\timage.png\n"
	got := ParseNumstat(text)
	want := map[string]LineStat{
		"foo.go":    {Added: 3, Removed: 1},
		"image.png": {Added: 0, Removed: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseChangesetsRejectsBatchOnSchemaViolation(t *testing.T) {
	jsonl := `{"change_id":"abc","commit_id":"def"}
{"change_id":"","commit_id":"ghi"}`
	_, err := ParseChangesets(jsonl)
	if err == nil {
		t.Fatal("expected PARSE_ERROR for missing change_id")
	}
}

func TestParseChangesetsValidBatch(t *testing.T) {
	jsonl := `{"change_id":"abc","commit_id":"def","description":"fix bug"}`
	out, err := ParseChangesets(jsonl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].ChangeID != "abc" || out[0].Description != "fix bug" {
		t.Fatalf("got %+v", out)
	}
}

func TestDetectErrorPrecedence(t *testing.T) {
	kind, ok := DetectError("No workspace configured, and the revision doesn't exist")
	if !ok {
		t.Fatal("expected a match")
	}
	if kind != result.NotInRepo {
		t.Errorf("kind = %s, want NOT_IN_REPO (precedence)", kind)
	}
}

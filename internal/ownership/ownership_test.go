package ownership

import "testing"

// Invariant 2: no cross-workspace leakage when workspaces touch disjoint
// file sets.
func TestDisjointFilesHaveExactlyOneOwnerEach(t *testing.T) {
	m := Build(map[string][]string{
		"a": {"foo.go"},
		"b": {"bar.go"},
	})
	if got := m.Owners("foo.go"); len(got) != 1 || got[0] != "a" {
		t.Errorf("foo.go owners = %v, want [a]", got)
	}
	if got := m.Owners("bar.go"); len(got) != 1 || got[0] != "b" {
		t.Errorf("bar.go owners = %v, want [b]", got)
	}
	if m.Conflict("foo.go") || m.Conflict("bar.go") {
		t.Error("expected no conflicts for disjoint file sets")
	}
}

func TestConflictWhenMultipleWorkspacesTouchSameFile(t *testing.T) {
	m := Build(map[string][]string{
		"a": {"shared.go"},
		"b": {"shared.go"},
	})
	if !m.Conflict("shared.go") {
		t.Error("expected conflict for shared.go")
	}
	entries := m.ConflictingFiles()
	if len(entries) != 1 || entries[0].File != "shared.go" {
		t.Fatalf("got %+v", entries)
	}
	if len(entries[0].Owners) != 2 {
		t.Errorf("owners = %v, want 2 entries", entries[0].Owners)
	}
}

func TestOwnersDeduplicatesRepeatedPaths(t *testing.T) {
	m := Build(map[string][]string{
		"a": {"foo.go", "foo.go"},
	})
	if got := m.Owners("foo.go"); len(got) != 1 {
		t.Errorf("owners = %v, want exactly 1 entry", got)
	}
}

func TestNoOwnerForUntouchedFile(t *testing.T) {
	m := Build(map[string][]string{"a": {"foo.go"}})
	if got := m.Owners("missing.go"); got != nil {
		t.Errorf("owners = %v, want nil", got)
	}
}

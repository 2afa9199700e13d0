// Package ownership builds the file-ownership map: for a set of
// workspaces, which workspace(s) touch each file, and which files are
// touched by more than one (a conflict). This is a pure function of each
// workspace's diff-summary against trunk; it performs no I/O itself,
// callers fetch the diff text via vcsrunner and hand it in.
package ownership

import "sort"

// Map is file path -> the ordered, deduplicated list of workspaces that
// touch it.
type Map struct {
	owners map[string][]string
}

// Build constructs the ownership map from each workspace's already-parsed
// diff-summary paths. diffsByWorkspace keys are workspace names; Build
// visits them in sorted name order, so each file's owner list is
// deterministic regardless of map iteration order.
func Build(diffsByWorkspace map[string][]string) Map {
	owners := make(map[string][]string)
	// iterate in sorted workspace-name order for deterministic owner lists.
	names := make([]string, 0, len(diffsByWorkspace))
	for name := range diffsByWorkspace {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, path := range diffsByWorkspace[name] {
			if !contains(owners[path], name) {
				owners[path] = append(owners[path], name)
			}
		}
	}
	return Map{owners: owners}
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// Owners returns the workspaces that touch file, or nil if none do.
func (m Map) Owners(file string) []string {
	return m.owners[file]
}

// Conflict reports whether more than one workspace touches file.
func (m Map) Conflict(file string) bool {
	return len(m.owners[file]) > 1
}

// ConflictEntry is one row of ConflictingFiles' result.
type ConflictEntry struct {
	File   string
	Owners []string
}

// ConflictingFiles returns every file with more than one owner, sorted by
// path for deterministic output.
func (m Map) ConflictingFiles() []ConflictEntry {
	var out []ConflictEntry
	for file, owners := range m.owners {
		if len(owners) > 1 {
			out = append(out, ConflictEntry{File: file, Owners: owners})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}

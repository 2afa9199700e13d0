// Package registry owns the two atomically-persisted JSON files that
// coordinate the daemon and the CLI: repos.json and each repo's
// focus.json. Both are read/written via write-to-temp-then-rename so a
// reader never observes a partial write.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/loom-dev/loom/internal/result"
)

// Mode is the registry entry's VCS mode. This is the Open Question #3
// decision: an enum, not a bool, with migration of the legacy bool/array
// shapes at load time (see DESIGN.md).
type Mode string

const (
	ModeVCS   Mode = "vcs"
	ModePlain Mode = "plain"
)

// Entry is one repo the daemon should watch.
type Entry struct {
	Path              string   `json:"path"`
	Mode              Mode     `json:"mode,omitempty"`
	FocusedWorkspaces []string `json:"focusedWorkspaces,omitempty"`
}

// legacyEntry captures the older on-disk shapes this package migrates:
// a `workspaces` array instead of `focusedWorkspaces`, and/or a boolean
// `gitMode` instead of the `mode` enum.
type legacyEntry struct {
	Path              string   `json:"path"`
	Mode              Mode     `json:"mode,omitempty"`
	GitMode           *bool    `json:"gitMode,omitempty"`
	FocusedWorkspaces []string `json:"focusedWorkspaces,omitempty"`
	Workspaces        []string `json:"workspaces,omitempty"`
}

func (e legacyEntry) migrate() Entry {
	out := Entry{Path: e.Path, Mode: e.Mode, FocusedWorkspaces: e.FocusedWorkspaces}
	if out.FocusedWorkspaces == nil {
		out.FocusedWorkspaces = e.Workspaces
	}
	if out.Mode == "" {
		if e.GitMode != nil && *e.GitMode {
			out.Mode = ModePlain
		} else {
			out.Mode = ModeVCS
		}
	}
	return out
}

// ReposPath returns the path to repos.json under stateDir.
func ReposPath(stateDir string) string {
	return filepath.Join(stateDir, "repos.json")
}

// LoadRepos reads and migrates repos.json. A missing file is not an error:
// it returns an empty registry.
func LoadRepos(stateDir string) ([]Entry, *result.Error) {
	path := ReposPath(stateDir)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, result.Wrap(result.CommandFailed, err, "reading %s", path)
	}
	var legacy []legacyEntry
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, result.Wrap(result.ParseError, err, "parsing %s", path)
	}
	entries := make([]Entry, 0, len(legacy))
	for _, e := range legacy {
		entries = append(entries, e.migrate())
	}
	return entries, nil
}

// SaveRepos writes repos.json atomically: write-to-temp in the same
// directory, then rename.
func SaveRepos(stateDir string, entries []Entry) *result.Error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return result.Wrap(result.CommandFailed, err, "marshalling repos.json")
	}
	return atomicWrite(ReposPath(stateDir), data)
}

// FocusState is the per-repo record of which workspaces are currently
// included in the preview.
type FocusState struct {
	Workspaces []string `json:"workspaces"`
	// PreviewChangeID is the change-id of the preview merge commit this
	// member set last produced, so the next updatePreview pass knows what
	// to abandon when membership changes again.
	PreviewChangeID string `json:"previewChangeId,omitempty"`
}

// FocusPath returns the path to a repo's focus.json.
func FocusPath(stateDir, repoSlug string) string {
	return filepath.Join(stateDir, "workspaces", repoSlug, "focus.json")
}

// LoadFocus reads a repo's focus state. A missing file means an empty
// focus set, not an error.
func LoadFocus(stateDir, repoSlug string) (FocusState, *result.Error) {
	path := FocusPath(stateDir, repoSlug)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return FocusState{}, nil
	}
	if err != nil {
		return FocusState{}, result.Wrap(result.CommandFailed, err, "reading %s", path)
	}
	var fs FocusState
	if err := json.Unmarshal(data, &fs); err != nil {
		return FocusState{}, result.Wrap(result.ParseError, err, "parsing %s", path)
	}
	return fs, nil
}

// SaveFocus writes a repo's focus state atomically.
func SaveFocus(stateDir, repoSlug string, fs FocusState) *result.Error {
	path := FocusPath(stateDir, repoSlug)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return result.Wrap(result.CommandFailed, err, "creating %s", filepath.Dir(path))
	}
	if fs.Workspaces == nil {
		fs.Workspaces = []string{}
	}
	data, err := json.MarshalIndent(fs, "", "  ")
	if err != nil {
		return result.Wrap(result.CommandFailed, err, "marshalling focus.json")
	}
	return atomicWrite(path, data)
}

func atomicWrite(path string, data []byte) *result.Error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return result.Wrap(result.CommandFailed, err, "creating %s", filepath.Dir(path))
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return result.Wrap(result.CommandFailed, err, "writing %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return result.Wrap(result.CommandFailed, err, "renaming %s to %s", tmp, path)
	}
	return nil
}

// Package git is loom's plain-git escape hatch: resolving a repository's
// root and handing control of its working tree back to an ordinary git
// checkout once a change leaves loom's managed view.
package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/loom-dev/loom/internal/vcs"
)

// Git holds the repository root resolved by New.
type Git struct {
	repoRoot string
}

// New resolves path's repository root. The path should be somewhere
// within a git repository.
func New(path string) (*Git, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = absPath
	output, err := cmd.Output()
	if err != nil {
		return nil, vcs.ErrNotInVCS
	}

	root := strings.TrimSpace(string(output))
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	return &Git{repoRoot: root}, nil
}

// Checkout sets HEAD to the named branch or revision, updating the
// working tree to match. Used when handing a repository back from
// loom's managed view to plain git.
func (g *Git) Checkout(ref string) error {
	cmd := exec.Command("git", "checkout", ref)
	cmd.Dir = g.repoRoot

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to checkout %s: %w\n%s", ref, err, string(output))
	}

	return nil
}

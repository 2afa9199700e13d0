// Package vcs holds the sentinel errors shared by loom's plain-git
// escape hatch (internal/vcs/git) for the handful of operations that
// don't go through vcsrunner's jj subprocess wrapper.
package vcs

import "errors"

// ErrNotInVCS is returned when the operation requires being inside a
// git repository but none was found.
var ErrNotInVCS = errors.New("not in a VCS repository")

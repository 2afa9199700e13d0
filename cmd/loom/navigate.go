package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/loom-dev/loom/internal/changeset"
	"github.com/loom-dev/loom/internal/registry"
	"github.com/loom-dev/loom/internal/result"
	vcsgit "github.com/loom-dev/loom/internal/vcs/git"
	"github.com/loom-dev/loom/internal/vcsparse"
	"github.com/spf13/cobra"
)

var checkoutCmd = &cobra.Command{
	Use:     "checkout <target>",
	GroupID: "nav",
	Short:   "Move the working copy onto an arbitrary revision",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := newEnv()
		exitOnResult(newChangeAt(cmd.Context(), e, args[0]))
	},
}

var upCmd = &cobra.Command{
	Use:     "up",
	GroupID: "nav",
	Short:   "Move toward the tip of the stack",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := newEnv()
		ctx := cmd.Context()
		cur, rerr := currentChange(ctx, e)
		exitOnResult(rerr)
		atTip := !hasChildren(ctx, e)
		if cur.Description != "" && atTip {
			exitOnResult(newChangeAt(ctx, e, "@"))
			return
		}
		exitOnResult(newChangeAt(ctx, e, "children(@)"))
	},
}

var downCmd = &cobra.Command{
	Use:     "down",
	GroupID: "nav",
	Short:   "Move toward trunk",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := newEnv()
		ctx := cmd.Context()
		trunk, rerr := e.runner.TrunkOf(ctx, e.cwd)
		exitOnResult(rerr)
		parentIsTrunk, rerr := revsetNonEmpty(ctx, e, fmt.Sprintf("@- & %s", trunk))
		exitOnResult(rerr)
		if parentIsTrunk {
			exitOnResult(newChangeAt(ctx, e, trunk))
			return
		}
		exitOnResult(newChangeAt(ctx, e, "@-"))
	},
}

var topCmd = &cobra.Command{
	Use:     "top",
	GroupID: "nav",
	Short:   "Move to the tip of the current stack",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := newEnv()
		ctx := cmd.Context()
		trunk, rerr := e.runner.TrunkOf(ctx, e.cwd)
		exitOnResult(rerr)
		inv, rerr := e.runner.Run(ctx, []string{"log", "-r", trunk + ".. & ::@", "--no-graph", "-T", vcsparse.ChangesetTemplate}, e.cwd)
		exitOnResult(rerr)
		changes, perr := vcsparse.ParseChangesets(inv.Stdout)
		exitOnResult(perr)
		ordered := changeset.TrunkToTip(changes)
		if len(ordered) == 0 {
			return
		}
		exitOnResult(newChangeAt(ctx, e, ordered[len(ordered)-1].ChangeID))
	},
}

var exitCmd = &cobra.Command{
	Use:     "exit",
	GroupID: "nav",
	Short:   "Leave loom's managed view and return to plain git visibility",
	Args:    cobra.NoArgs,
	Run:     runExit,
}

func init() {
	rootCmd.AddCommand(checkoutCmd, upCmd, downCmd, topCmd, exitCmd)
}

// newChangeAt runs `vcs new <revset>`, the primitive every navigation
// command is built from. jj has no direct "checkout"; its own idiom is to
// start a fresh working-copy change on top of the target revision.
func newChangeAt(ctx context.Context, e *env, revset string) *result.Error {
	_, rerr := e.runner.RunWithLockRetry(ctx, []string{"new", revset}, e.cwd)
	return rerr
}

func currentChange(ctx context.Context, e *env) (changeset.Change, *result.Error) {
	inv, rerr := e.runner.Run(ctx, []string{"log", "-r", "@", "--no-graph", "-T", vcsparse.ChangesetTemplate}, e.cwd)
	if rerr != nil {
		return changeset.Change{}, rerr
	}
	changes, perr := vcsparse.ParseChangesets(inv.Stdout)
	if perr != nil {
		return changeset.Change{}, perr
	}
	if len(changes) == 0 {
		return changeset.Change{}, result.New(result.InvalidRevision, "no current change")
	}
	return changes[0], nil
}

func hasChildren(ctx context.Context, e *env) bool {
	ok, _ := revsetNonEmpty(ctx, e, "children(@)")
	return ok
}

func revsetNonEmpty(ctx context.Context, e *env, revset string) (bool, *result.Error) {
	inv, rerr := e.runner.Run(ctx, []string{"log", "-r", revset, "--no-graph", "-T", "change_id"}, e.cwd)
	if rerr != nil {
		return false, rerr
	}
	return strings.TrimSpace(inv.Stdout) != "", nil
}

// runExit walks up to 10 ancestors looking for one carrying a local
// bookmark, moves the plain-VCS HEAD there (trunk if none found), copies
// the unassigned workspace's files into the repo tree, and flips the
// registry entry into plain mode.
func runExit(cmd *cobra.Command, args []string) {
	e := newEnv()
	ctx := cmd.Context()

	target, rerr := nearestAncestorBookmark(ctx, e)
	exitOnResult(rerr)
	if target == "" {
		target, rerr = e.runner.TrunkOf(ctx, e.cwd)
		exitOnResult(rerr)
	}

	plain, err := vcsgit.New(e.cwd)
	if err != nil {
		exitOnResult(result.Wrap(result.CommandFailed, err, "opening %s as a plain git repository", e.cwd))
	}
	if err := plain.Checkout(target); err != nil {
		exitOnResult(result.Wrap(result.CommandFailed, err, "checking out %s in plain VCS", target))
	}

	unassignedDir := e.ws.Dir(e.cwd, changeset.UnassignedWorkspace)
	if _, err := os.Stat(unassignedDir); err == nil {
		exitOnResult(copyTree(unassignedDir, e.cwd))
	}

	exitOnResult(setGitMode(e.cfg.StateDir, e.cwd))
	fmt.Printf("exited to %s\n", target)
}

// nearestAncestorBookmark walks @, @-, @-- ... up to 10 levels looking for
// the first change carrying a local bookmark.
func nearestAncestorBookmark(ctx context.Context, e *env) (string, *result.Error) {
	revset := "@"
	for i := 0; i < 10; i++ {
		inv, rerr := e.runner.Run(ctx, []string{"log", "-r", revset, "--no-graph", "-T", "local_bookmarks.join(\"\\n\")"}, e.cwd)
		if rerr != nil {
			return "", rerr
		}
		for _, line := range strings.Split(inv.Stdout, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				return line, nil
			}
		}
		revset += "-"
	}
	return "", nil
}

func setGitMode(stateDir, repoPath string) *result.Error {
	entries, rerr := registry.LoadRepos(stateDir)
	if rerr != nil {
		return rerr
	}
	found := false
	for i, en := range entries {
		if en.Path == repoPath {
			entries[i].Mode = registry.ModePlain
			found = true
		}
	}
	if !found {
		entries = append(entries, registry.Entry{Path: repoPath, Mode: registry.ModePlain})
	}
	return registry.SaveRepos(stateDir, entries)
}

// copyTree copies every regular file under src into the matching path under
// dst, creating directories as needed. It skips the VCS's own metadata and
// loom's editor-integration marker file.
func copyTree(src, dst string) *result.Error {
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." || strings.HasPrefix(rel, ".jj") || rel == ".vcs-ignore" {
			if d.IsDir() && strings.HasPrefix(rel, ".jj") {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
	if err != nil {
		return result.Wrap(result.CommandFailed, err, "copying %s into %s", src, dst)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

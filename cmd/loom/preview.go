package main

import (
	"fmt"
	"log"

	"github.com/loom-dev/loom/internal/registry"
	"github.com/loom-dev/loom/internal/result"
	"github.com/loom-dev/loom/internal/syncengine"
	"github.com/loom-dev/loom/internal/workspace"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:     "preview",
	GroupID: "workspace",
	Short:   "Control which workspaces are included in the preview tree",
}

func init() {
	previewCmd.AddCommand(
		&cobra.Command{Use: "add <workspace>...", Args: cobra.MinimumNArgs(1), Run: runPreviewMutate(previewAdd)},
		&cobra.Command{Use: "remove <workspace>...", Args: cobra.MinimumNArgs(1), Run: runPreviewMutate(previewRemove)},
		&cobra.Command{Use: "only <workspace>...", Args: cobra.MinimumNArgs(1), Run: runPreviewMutate(previewOnly)},
		&cobra.Command{Use: "all", Args: cobra.NoArgs, Run: runPreviewMutate(previewAll)},
		&cobra.Command{Use: "none", Args: cobra.NoArgs, Run: runPreviewMutate(previewNone)},
		&cobra.Command{Use: "edit <workspace>", Args: cobra.ExactArgs(1), Run: runPreviewMutate(previewOnly)},
	)
	rootCmd.AddCommand(previewCmd)
}

// runPreviewMutate adapts a focus-mutating function into a cobra Run,
// sharing the register-repo/rebuild-preview/save-focus sequence every
// preview subcommand follows.
func runPreviewMutate(mutate func(e *env, current, args []string) []string) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		e := newEnv()
		ctx := cmd.Context()

		slug := workspace.RepoSlug(e.cwd)
		focus, rerr := registry.LoadFocus(e.cfg.StateDir, slug)
		exitOnResult(rerr)

		newMembers := mutate(e, focus.Workspaces, args)

		if len(newMembers) == 0 {
			exitOnResult(unregisterRepo(e.cfg.StateDir, e.cwd))
		} else {
			exitOnResult(registerRepo(e.cfg.StateDir, e.cwd))
		}

		eng := syncengine.New(e.runner, e.ws, e.cfg.StateDir, e.cfg.DebounceInterval, log.Default())
		exitOnResult(eng.UpdatePreview(ctx, e.cwd, newMembers))

		fmt.Printf("preview now includes: %v\n", newMembers)
	}
}

func previewAdd(e *env, current, args []string) []string {
	seen := make(map[string]bool, len(current))
	out := append([]string{}, current...)
	for _, m := range current {
		seen[m] = true
	}
	for _, a := range args {
		if !seen[a] {
			out = append(out, a)
			seen[a] = true
		}
	}
	return out
}

func previewRemove(e *env, current, args []string) []string {
	drop := make(map[string]bool, len(args))
	for _, a := range args {
		drop[a] = true
	}
	var out []string
	for _, m := range current {
		if !drop[m] {
			out = append(out, m)
		}
	}
	return out
}

func previewOnly(e *env, current, args []string) []string {
	return append([]string{}, args...)
}

func previewAll(e *env, current, args []string) []string {
	list, rerr := e.ws.List(e.cwd)
	exitOnResult(rerr)
	var out []string
	for _, w := range list {
		out = append(out, w.Name)
	}
	return out
}

func previewNone(e *env, current, args []string) []string {
	return nil
}

// registerRepo ensures repoPath is present in repos.json, adding it with the
// default VCS mode if missing.
func registerRepo(stateDir, repoPath string) *result.Error {
	entries, rerr := registry.LoadRepos(stateDir)
	if rerr != nil {
		return rerr
	}
	for _, en := range entries {
		if en.Path == repoPath {
			return nil
		}
	}
	entries = append(entries, registry.Entry{Path: repoPath, Mode: registry.ModeVCS})
	return registry.SaveRepos(stateDir, entries)
}

// unregisterRepo removes repoPath from repos.json, used by the preview
// commands whenever the new focus set is empty.
func unregisterRepo(stateDir, repoPath string) *result.Error {
	entries, rerr := registry.LoadRepos(stateDir)
	if rerr != nil {
		return rerr
	}
	out := entries[:0]
	for _, en := range entries {
		if en.Path != repoPath {
			out = append(out, en)
		}
	}
	return registry.SaveRepos(stateDir, out)
}

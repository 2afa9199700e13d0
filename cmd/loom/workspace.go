package main

import (
	"context"
	"fmt"
	"log"

	"github.com/loom-dev/loom/internal/cliutil"
	"github.com/loom-dev/loom/internal/registry"
	"github.com/loom-dev/loom/internal/result"
	"github.com/loom-dev/loom/internal/stackorchestrator"
	"github.com/loom-dev/loom/internal/syncengine"
	"github.com/loom-dev/loom/internal/workspace"
	"github.com/spf13/cobra"
)

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	GroupID: "workspace",
	Short:   "Manage per-agent workspaces",
}

var workspaceSubmitDraft bool

var workspaceSubmitCmd = &cobra.Command{
	Use:  "submit <name>",
	Args: cobra.ExactArgs(1),
	Run:  runWorkspaceSubmit,
}

func init() {
	workspaceSubmitCmd.Flags().BoolVar(&workspaceSubmitDraft, "draft", false, "open the created pull request as a draft")
	workspaceCmd.AddCommand(
		&cobra.Command{Use: "add <name>", Args: cobra.ExactArgs(1), Run: runWorkspaceAdd},
		&cobra.Command{Use: "remove <name>", Args: cobra.ExactArgs(1), Run: runWorkspaceRemove},
		&cobra.Command{Use: "list", Args: cobra.NoArgs, Run: runWorkspaceList},
		&cobra.Command{Use: "status", Args: cobra.NoArgs, Run: runWorkspaceStatus},
		workspaceSubmitCmd,
	)
	rootCmd.AddCommand(workspaceCmd)
}

func runWorkspaceAdd(cmd *cobra.Command, args []string) {
	e := newEnv()
	ws, rerr := e.ws.Add(cmd.Context(), e.cwd, args[0])
	exitOnResult(rerr)
	fmt.Printf("created workspace %q at %s (tip %s)\n", ws.Name, ws.Path, ws.TipID)
}

func runWorkspaceRemove(cmd *cobra.Command, args []string) {
	e := newEnv()
	exitOnResult(e.ws.Remove(cmd.Context(), e.cwd, args[0]))
	fmt.Printf("removed workspace %q\n", args[0])
}

func runWorkspaceList(cmd *cobra.Command, args []string) {
	e := newEnv()
	list, rerr := e.ws.List(e.cwd)
	exitOnResult(rerr)
	for _, w := range list {
		fmt.Println(w.Name)
	}
}

func runWorkspaceStatus(cmd *cobra.Command, args []string) {
	e := newEnv()
	list, rerr := e.ws.List(e.cwd)
	exitOnResult(rerr)
	for i, w := range list {
		tip, rerr := e.ws.TipOf(cmd.Context(), e.cwd, w.Name)
		if rerr == nil {
			list[i].TipID = tip
		}
	}
	focus, rerr := registry.LoadFocus(e.cfg.StateDir, workspace.RepoSlug(e.cwd))
	exitOnResult(rerr)
	focused := make(map[string]bool, len(focus.Workspaces))
	for _, name := range focus.Workspaces {
		focused[name] = true
	}
	fmt.Print(cliutil.RenderWorkspaceStatus(list, focused))
}

func runWorkspaceSubmit(cmd *cobra.Command, args []string) {
	e := newEnv()
	ctx := cmd.Context()
	name := args[0]

	orch, rerr := e.orchestrator(ctx)
	exitOnResult(rerr)

	rebuild := rebuildPreviewIfFocused(e, name)
	res, rerr := orch.SubmitWorkspace(ctx, e.cwd, name, stackorchestrator.SubmitOptions{RepoPath: e.cwd, Draft: workspaceSubmitDraft}, rebuild)
	exitOnResult(rerr)
	fmt.Print(cliutil.RenderStackPlan(res.Entries))
}

// rebuildPreviewIfFocused returns a submitWorkspace rebuild callback that
// re-runs updatePreview with the current focus set only when name is one of
// its members. Submitting a workspace not currently focused leaves the
// preview untouched.
func rebuildPreviewIfFocused(e *env, name string) func(context.Context) *result.Error {
	return func(ctx context.Context) *result.Error {
		focus, rerr := registry.LoadFocus(e.cfg.StateDir, workspace.RepoSlug(e.cwd))
		if rerr != nil {
			return rerr
		}
		member := false
		for _, m := range focus.Workspaces {
			if m == name {
				member = true
				break
			}
		}
		if !member {
			return nil
		}
		eng := syncengine.New(e.runner, e.ws, e.cfg.StateDir, e.cfg.DebounceInterval, log.Default())
		return eng.UpdatePreview(ctx, e.cwd, focus.Workspaces)
	}
}

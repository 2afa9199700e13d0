package main

import (
	"fmt"
	"os"

	"github.com/loom-dev/loom/internal/cliutil"
	"github.com/loom-dev/loom/internal/stackorchestrator"
	"github.com/spf13/cobra"
)

var (
	submitDraft  bool
	submitDryRun bool
)

var submitCmd = &cobra.Command{
	Use:     "submit",
	GroupID: "stack",
	Short:   "Submit the current stack as dependent pull requests",
	Long: `submit walks the stack from trunk to the working-copy tip, ensures a
bookmark and PR per change, and prints the resulting plan.`,
	Run: func(cmd *cobra.Command, args []string) {
		e := newEnv()
		ctx := cmd.Context()
		orch, rerr := e.orchestrator(ctx)
		exitOnResult(rerr)

		if submitDryRun {
			changes, rerr := orch.PlanStack(ctx, e.cwd)
			exitOnResult(rerr)
			fmt.Print(cliutil.RenderStackPlan(changes))
			return
		}

		res, rerr := orch.SubmitStack(ctx, stackorchestrator.SubmitOptions{RepoPath: e.cwd, Draft: submitDraft})
		exitOnResult(rerr)
		fmt.Print(cliutil.RenderStackPlan(res.Entries))
		fmt.Fprintf(os.Stderr, "created %d, updated %d, synced %d\n", res.Created, res.Updated, res.Synced)
	},
}

func init() {
	submitCmd.Flags().BoolVar(&submitDraft, "draft", false, "open created pull requests as drafts")
	submitCmd.Flags().BoolVar(&submitDryRun, "dry-run", false, "print the plan without creating or updating anything")
	rootCmd.AddCommand(submitCmd)
}

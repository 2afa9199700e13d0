package main

import (
	"fmt"
	"strconv"

	"github.com/loom-dev/loom/internal/cliutil"
	"github.com/loom-dev/loom/internal/hostadapter"
	"github.com/spf13/cobra"
)

var mergeMethod string

var mergeCmd = &cobra.Command{
	Use:     "merge <pr>...",
	GroupID: "stack",
	Short:   "Fold a sequence of dependent pull requests into trunk",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := newEnv()
		ctx := cmd.Context()

		method := hostadapter.MergeMethod(mergeMethod)
		switch method {
		case hostadapter.MergeSquash, hostadapter.MergeMerge, hostadapter.MergeRebase:
		default:
			exitUsage("unknown --method %q (want squash, merge, or rebase)", mergeMethod)
		}

		prs := make([]int, len(args))
		for i, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil {
				exitUsage("invalid PR number %q", a)
			}
			prs[i] = n
		}

		orch, rerr := e.orchestrator(ctx)
		exitOnResult(rerr)
		res, rerr := orch.MergeStack(ctx, e.cwd, prs, method)
		exitOnResult(rerr)
		fmt.Print(cliutil.RenderMergeProgress(res.Entries))
		fmt.Printf("merged %d\n", res.Merged)
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeMethod, "method", string(hostadapter.MergeSquash), "merge method: squash, merge, or rebase")
	rootCmd.AddCommand(mergeCmd)
}

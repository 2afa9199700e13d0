package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/loom-dev/loom/internal/naming"
	"github.com/loom-dev/loom/internal/result"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:     "create <message>",
	GroupID: "stack",
	Short:   "Start a new change on top of the working copy",
	Long: `create starts a new, empty change on top of @, describes it with the
given message, and creates a local bookmark for it, the starting point a
later submit turns into a pull request.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := newEnv()
		changeID, bookmark, rerr := runCreate(cmd.Context(), e, strings.Join(args, " "))
		exitOnResult(rerr)
		fmt.Printf("changeId: %s\nbookmark: %s\n", changeID, bookmark)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}

func runCreate(ctx context.Context, e *env, message string) (changeID, bookmark string, rerr *result.Error) {
	if _, rerr := e.runner.RunWithLockRetry(ctx, []string{"new"}, e.cwd); rerr != nil {
		return "", "", rerr
	}
	if _, rerr := e.runner.RunWithLockRetry(ctx, []string{"describe", "-m", message}, e.cwd); rerr != nil {
		return "", "", rerr
	}
	inv, rerr := e.runner.Run(ctx, []string{"log", "-r", "@", "--no-graph", "-T", "change_id"}, e.cwd)
	if rerr != nil {
		return "", "", rerr
	}
	changeID = strings.TrimSpace(inv.Stdout)
	bookmark = naming.DatePrefixedLabel(message, time.Now())
	if _, rerr := e.runner.RunWithLockRetry(ctx, []string{"bookmark", "create", bookmark, "-r", changeID}, e.cwd); rerr != nil {
		return "", "", rerr
	}
	return changeID, bookmark, nil
}

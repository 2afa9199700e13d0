package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/loom-dev/loom/internal/logging"
	"github.com/loom-dev/loom/internal/registry"
	"github.com/loom-dev/loom/internal/syncengine"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "daemon",
	Short:   "Run or inspect the sync daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sync daemon in the foreground",
	Args:  cobra.NoArgs,
	Run:   runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal a running daemon to shut down",
	Args:  cobra.NoArgs,
	Run:   runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the daemon's pid file names a live process",
	Args:  cobra.NoArgs,
	Run:   runDaemonStatus,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonStatusCmd)
	rootCmd.AddCommand(daemonCmd)
}

// runDaemonStart acquires the pid file, attaches every registered repo to a
// fresh Engine, and blocks until SIGINT/SIGTERM triggers shutdown.
func runDaemonStart(cmd *cobra.Command, args []string) {
	e := newEnv()

	if rerr := syncengine.AcquirePidFile(e.cfg.StateDir); rerr != nil {
		exitOnResult(rerr)
	}
	defer syncengine.ReleasePidFile(e.cfg.StateDir)

	logger, closeLog, err := logging.New(e.cfg.StateDir, os.Stderr)
	if err != nil {
		exitUsage("opening daemon log: %v", err)
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	eng := syncengine.New(e.runner, e.ws, e.cfg.StateDir, e.cfg.DebounceInterval, logger)

	entries, rerr := registry.LoadRepos(e.cfg.StateDir)
	exitOnResult(rerr)
	for _, entry := range entries {
		if err := eng.AddRepo(ctx, entry.Path); err != nil {
			logger.Printf("adding repo %s: %v", entry.Path, err)
		}
	}

	logger.Printf("daemon started, pid %d, watching %d repos", os.Getpid(), len(entries))
	<-ctx.Done()
	logger.Printf("shutting down")
	eng.Shutdown()
}

func runDaemonStop(cmd *cobra.Command, args []string) {
	e := newEnv()
	pid, running := syncengine.PidFileStatus(e.cfg.StateDir)
	if !running {
		fmt.Println("daemon is not running")
		return
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		exitUsage("finding daemon process %d: %v", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		exitUsage("signalling daemon process %d: %v", pid, err)
	}
	fmt.Printf("sent SIGTERM to pid %d\n", pid)
}

func runDaemonStatus(cmd *cobra.Command, args []string) {
	e := newEnv()
	pid, running := syncengine.PidFileStatus(e.cfg.StateDir)
	if running {
		fmt.Printf("running, pid %d\n", pid)
		return
	}
	fmt.Println("not running")
}

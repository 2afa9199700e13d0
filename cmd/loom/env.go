package main

import (
	"context"
	"fmt"
	"os"

	"github.com/loom-dev/loom/internal/config"
	"github.com/loom-dev/loom/internal/executor"
	"github.com/loom-dev/loom/internal/hostadapter"
	"github.com/loom-dev/loom/internal/result"
	"github.com/loom-dev/loom/internal/stackorchestrator"
	"github.com/loom-dev/loom/internal/vcsrunner"
	"github.com/loom-dev/loom/internal/workspace"
)

// env bundles the dependencies every subcommand wires together: the
// resolved config, a VCS runner backed by the real executor, and the
// current working directory, taken to be the repo the command operates on.
type env struct {
	cfg    *config.Config
	runner *vcsrunner.Runner
	ws     *workspace.Manager
	cwd    string
}

// newEnv loads and validates configuration, exiting 2 on a config error
// since a broken config is an invalid-arguments situation, not a Result
// failure from an operation that ran.
func newEnv() *env {
	path := configFlag
	if path == "" {
		path = "loom.toml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		exitUsage("loading config: %v", err)
	}
	if stateDirFlag != "" {
		cfg.StateDir = stateDirFlag
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "Error: %v\n", e)
		}
		os.Exit(2)
	}

	cwd, err := os.Getwd()
	if err != nil {
		exitUsage("resolving working directory: %v", err)
	}

	runner := vcsrunner.New(executor.New())
	ws := workspace.New(runner, cfg.StateDir)
	return &env{cfg: cfg, runner: runner, ws: ws, cwd: cwd}
}

// host resolves the PR-hosting client for the current repo, reading an
// API token from the environment.
func (e *env) host(ctx context.Context) (hostadapter.Host, *result.Error) {
	token := os.Getenv("LOOM_GITHUB_TOKEN")
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	return hostadapter.ForCwd(ctx, e.runner, e.cwd, token, e.cfg.MergePollInterval, e.cfg.MergePollTimeout)
}

func (e *env) orchestrator(ctx context.Context) (*stackorchestrator.Orchestrator, *result.Error) {
	h, rerr := e.host(ctx)
	if rerr != nil {
		return nil, rerr
	}
	return stackorchestrator.New(e.runner, e.ws, h), nil
}

// exitOnResult maps a *result.Error to loom's exit-code contract: 0 on nil,
// 1 otherwise, after printing the classified error.
func exitOnResult(err *result.Error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	os.Exit(1)
}

// exitUsage reports invalid CLI arguments or configuration, exit code 2.
func exitUsage(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(2)
}

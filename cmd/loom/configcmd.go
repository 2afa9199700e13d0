package main

import (
	"fmt"
	"os"

	"github.com/loom-dev/loom/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "daemon",
	Short:   "Inspect loom's configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the fully-resolved configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := newEnv()
		fmt.Printf("state_dir: %s\n", e.cfg.StateDir)
		fmt.Printf("trunk: %s\n", e.cfg.Trunk)
		fmt.Printf("debounce_interval: %s\n", e.cfg.DebounceInterval)
		fmt.Printf("subprocess_timeout: %s\n", e.cfg.SubprocessTimeout)
		fmt.Printf("merge_poll_interval: %s\n", e.cfg.MergePollInterval)
		fmt.Printf("merge_poll_timeout: %s\n", e.cfg.MergePollTimeout)
		fmt.Printf("host_api_base_url: %s\n", e.cfg.HostAPIBaseURL)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the same validation the daemon runs before starting",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := configFlag
		if path == "" {
			path = "loom.toml"
		}
		cfg, err := config.Load(path)
		if err != nil {
			exitUsage("loading config: %v", err)
		}
		errs := config.Validate(cfg)
		if len(errs) == 0 {
			fmt.Println("config is valid")
			return
		}
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "Error: %v\n", e)
		}
		os.Exit(2)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

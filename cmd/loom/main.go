// Command loom provides stack submission, merge, preview focus, workspace
// lifecycle, stack navigation, and the daemon that keeps a preview working
// tree in sync with a set of agent workspaces, all as cobra subcommands
// registered against rootCmd from each file's own init().
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var stateDirFlag string
var configFlag string

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Keep per-agent workspaces and a shared preview tree in sync",
	Long: `loom runs a background daemon that bidirectionally reconciles a set of
per-agent working directories with a single "preview" working tree, and a
stack orchestrator that turns the resulting changes into dependent pull
requests.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to loom.toml (default: ./loom.toml)")
	rootCmd.PersistentFlags().StringVar(&stateDirFlag, "state-dir", "", "override the configured state directory")

	rootCmd.AddGroup(
		&cobra.Group{ID: "stack", Title: "Stack commands:"},
		&cobra.Group{ID: "workspace", Title: "Workspace commands:"},
		&cobra.Group{ID: "nav", Title: "Navigation commands:"},
		&cobra.Group{ID: "daemon", Title: "Daemon commands:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(2)
	}
}

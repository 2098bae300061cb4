package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "inkwell",
	Short: "Inkwell - multi-agent long-form writing workflows",
	Long: `Inkwell drives long-form writing projects through a staged workflow of
specialized agents: a planner drafts the story structure, critics review it,
a writer produces chapters, and an editor approves or requests revisions.

Projects run inside the inkwelld daemon; this CLI creates projects, inspects
their persisted state, and tails their live event stream.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no subcommand is specified, show help
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	// Formatted colored errors are printed by the printer package.
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

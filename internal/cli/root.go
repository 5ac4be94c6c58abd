// Package cli implements the pubsite command line.
package cli

import (
	"github.com/spf13/cobra"

	"pubsite.dev/pubsite/internal/cli/helpers"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pubsite",
		Short: "Pubsite builds a static site and publishes it to GitHub Pages",
		Long: `Pubsite builds a static site and publishes it to GitHub Pages.

It creates the destination repository when needed, uploads the built files,
commits them to the publish branch and enables Pages for that branch.`,
	}

	rootCmd.PersistentFlags().String(helpers.ProjectFlag, "", "Project directory (defaults to the working directory)")
	rootCmd.PersistentFlags().String("log-file", "", `Log file path; "-" disables file logging`)

	// Add subcommands
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newPublishCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	return rootCmd
}

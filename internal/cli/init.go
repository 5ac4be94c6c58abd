package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pubsite.dev/pubsite/internal/build"
	"pubsite.dev/pubsite/internal/cli/helpers"
	"pubsite.dev/pubsite/internal/config"
	"pubsite.dev/pubsite/internal/publish"
	"pubsite.dev/pubsite/internal/runtime"
	"pubsite.dev/pubsite/internal/tui"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	var (
		repo         string
		dir          string
		branch       string
		buildCommand string
		private      bool
		force        bool
	)

	cmd := &cobra.Command{
		Use:          "init",
		Short:        "Write a .pubsite.yaml for the current project",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				path := filepath.Join(ctx.Root, config.FileName)
				_, err := os.Stat(path)
				wasInitialized := err == nil
				if err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("failed to check %s: %w", config.FileName, err)
				}
				if wasInitialized && !force {
					return fmt.Errorf("%s already exists; pass --force to overwrite it", config.FileName)
				}

				cfg := ctx.Config
				if repo != "" {
					cfg.Repository = repo
				}
				if dir != "" {
					cfg.Directory = dir
				}
				if branch != "" {
					cfg.Branch = branch
				}
				if cmd.Flags().Changed("build-command") {
					if _, err := build.ParseCommand(buildCommand); err != nil {
						return err
					}
					cfg.BuildCommand = &buildCommand
				}
				if cmd.Flags().Changed("private") {
					cfg.Private = private
				}

				candidate := publish.Request{
					RepositoryName:   cfg.GetRepository(),
					PublishDirectory: cfg.GetDirectory(),
					Branch:           cfg.GetBranch(),
				}
				if err := candidate.Validate(); err != nil {
					return err
				}

				if err := cfg.Save(ctx.Root); err != nil {
					return fmt.Errorf("failed to write config: %w", err)
				}

				if wasInitialized {
					ctx.Splog.Info("Rewrote %s", config.FileName)
				} else {
					ctx.Splog.Info("Wrote %s", config.FileName)
				}
				ctx.Splog.Info("Repository: %s", tui.ColorCyan(candidate.RepositoryName))
				ctx.Splog.Info("Directory:  %s", candidate.PublishDirectory)
				ctx.Splog.Info("Branch:     %s", candidate.Branch)
				if command := cfg.GetBuildCommand(); command != "" {
					ctx.Splog.Info("Build:      %s", command)
				} else {
					ctx.Splog.Info("Build:      %s", tui.ColorDim("none"))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "Destination repository name")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory holding the built site, relative to the project")
	cmd.Flags().StringVar(&branch, "branch", "", "Publish branch")
	cmd.Flags().StringVar(&buildCommand, "build-command", "", `Build command; "" disables the build`)
	cmd.Flags().BoolVar(&private, "private", false, "Create the repository as private")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration")

	return cmd
}

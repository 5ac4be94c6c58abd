package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"pubsite.dev/pubsite/internal/build"
	"pubsite.dev/pubsite/internal/cli/helpers"
	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
	"pubsite.dev/pubsite/internal/publish"
	"pubsite.dev/pubsite/internal/runtime"
	"pubsite.dev/pubsite/internal/tui"
	"pubsite.dev/pubsite/internal/utils"
)

type publishFlags struct {
	repo          string
	dir           string
	branch        string
	buildCommand  string
	message       string
	skipBuild     bool
	yes           bool
	open          bool
	clean         bool
	noHistory     bool
	noInteractive bool
}

// newPublishCmd creates the publish command
func newPublishCmd() *cobra.Command {
	f := &publishFlags{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Build the site and publish it to GitHub Pages",
		Long: `Build the site and publish it to GitHub Pages.

Runs the build command, creates the destination repository if it does not
exist, uploads every file of the publish directory, commits them to the
publish branch and enables GitHub Pages for that branch.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return executePublish(ctx, cmd, f)
			})
		},
	}

	cmd.Flags().StringVar(&f.repo, "repo", "", "Destination repository name (defaults to the project directory name)")
	cmd.Flags().StringVar(&f.dir, "dir", "", "Directory holding the built site, relative to the project")
	cmd.Flags().StringVarP(&f.branch, "branch", "b", "", "Publish branch (defaults to gh-pages)")
	cmd.Flags().StringVar(&f.buildCommand, "build-command", "", "Build command to run before publishing")
	cmd.Flags().StringVarP(&f.message, "message", "m", "", "Commit message for the publish commit")
	cmd.Flags().BoolVar(&f.skipBuild, "skip-build", false, "Publish the directory as is without building")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&f.open, "open", false, "Open the published site in a browser")
	cmd.Flags().BoolVar(&f.clean, "clean", false, "Remove files that are no longer part of the site from the publish branch")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "Do not record the publish in the local history")
	cmd.Flags().BoolVar(&f.noInteractive, "no-interactive", false, "Disable the progress display and prompts")

	return cmd
}

func executePublish(ctx *runtime.Context, cmd *cobra.Command, f *publishFlags) error {
	cfg := ctx.Config
	splog := ctx.Splog

	req := publish.Request{
		RepositoryName:   cfg.GetRepository(),
		PublishDirectory: cfg.GetDirectory(),
		Branch:           cfg.GetBranch(),
		CommitMessage:    cfg.CommitMessage,
		SourceDir:        ctx.Root,
		Clean:            cfg.Clean || f.clean,
		Private:          cfg.Private,
	}
	if f.repo != "" {
		req.RepositoryName = f.repo
	}
	if f.dir != "" {
		// relative to the project, where the build runs
		req.PublishDirectory = f.dir
		if !filepath.IsAbs(f.dir) {
			req.PublishDirectory = filepath.Join(ctx.Root, f.dir)
		}
	}
	if f.branch != "" {
		req.Branch = f.branch
	}
	if f.message != "" {
		req.CommitMessage = f.message
	}
	if err := req.Validate(); err != nil {
		return err
	}

	commandLine := cfg.GetBuildCommand()
	if cmd.Flags().Changed("build-command") {
		commandLine = f.buildCommand
	}
	if f.skipBuild {
		commandLine = ""
	}
	runner, err := build.NewRunner(commandLine, ctx.Root)
	if err != nil {
		return err
	}

	interactive := !f.noInteractive && utils.IsInteractive()
	if interactive && !f.yes {
		ok, err := tui.PromptConfirm(fmt.Sprintf("Publish %s to the %s branch of %s?", req.PublishDirectory, req.Branch, req.RepositoryName), true)
		if err != nil {
			return err
		}
		if !ok {
			splog.Info("Publish cancelled.")
			return nil
		}
	}

	client, err := ctx.GitHubClient()
	if err != nil {
		return err
	}

	opts := publish.Options{
		Client:      client,
		Queue:       ctx.Queue,
		Splog:       splog,
		Concurrency: cfg.GetConcurrency(),
		Reporter:    publish.LogReporter{Splog: splog},
	}
	if !runner.Skipped() {
		splog.Debug("Build command: %s", runner)
		opts.Builder = runner
	}
	if !f.noHistory {
		store, err := ctx.History()
		if err != nil {
			splog.Warn("Publish history unavailable: %v", err)
		} else {
			opts.Recorder = store
		}
	}

	var result *publish.Result
	if interactive && tui.IsTTY() {
		result, err = publishWithTUI(ctx, opts, req)
	} else {
		result, err = publish.NewPublisher(opts).Publish(ctx, req)
	}

	if err != nil {
		if result == nil {
			return err
		}
		// the branch was updated but Pages could not be enabled
		splog.Warn("%s", pubsiteerrors.KindOf(err).Summary())
		splog.Warn("%v", err)
		splog.Info("The site was pushed to %s; enable Pages for it in the repository settings.", tui.ColorCyan(result.RepositoryFullName+"@"+result.Branch))
		return err
	}

	splog.Success("%s", result.Message)
	splog.Info("%s", tui.ColorCyan(result.PagesURL))
	splog.Debug("Commit %s with %d files in %s", result.CommitSHA, result.Files, result.Duration)

	if f.open {
		if err := utils.OpenBrowser(ctx, result.PagesURL); err != nil {
			splog.Warn("Could not open a browser: %v", err)
		}
	}
	return nil
}

// publishWithTUI runs the publish while a progress display renders its steps
func publishWithTUI(ctx *runtime.Context, opts publish.Options, req publish.Request) (*publish.Result, error) {
	splog := ctx.Splog
	reporter := tui.NewChannelPublishProgressReporter()
	opts.Reporter = reporter

	// Start TUI in a goroutine
	done := make(chan bool, 1)
	tuiErr := make(chan error, 1)
	go func() {
		err := tui.RunPublishTUI("Publishing "+req.RepositoryName, publish.StepDescriptions(), reporter.Updates(), done)
		if err != nil {
			tuiErr <- err
		}
	}()

	// Console output would interleave with the display
	splog.SetQuiet(true)
	result, err := publish.NewPublisher(opts).Publish(ctx, req)
	reporter.Close()

	select {
	case <-done:
	case err := <-tuiErr:
		splog.Debug("TUI error: %v", err)
	}
	splog.SetQuiet(false)

	return result, err
}

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	gogithub "github.com/google/go-github/v62/github"

	"pubsite.dev/pubsite/internal/config"
	"pubsite.dev/pubsite/internal/git"
	"pubsite.dev/pubsite/internal/github"
	"pubsite.dev/pubsite/internal/history"
	"pubsite.dev/pubsite/internal/jobqueue"
	"pubsite.dev/pubsite/internal/tui"
)

// GitHubClientFactory creates the authenticated GitHub client.
// Tests replace it to point at a mock server.
var GitHubClientFactory = func(ctx context.Context, hostname string) (*gogithub.Client, error) {
	token, err := github.GetToken(ctx, hostname)
	if err != nil {
		return nil, err
	}
	return github.NewClient(ctx, hostname, token)
}

// Context provides access to configuration and shared services for commands
type Context struct {
	context.Context

	Splog  *tui.Splog
	Config *config.ProjectConfig
	Root   string
	Queue  *jobqueue.Queue

	client  *gogithub.Client
	history *history.Store
}

// Options configures NewContext
type Options struct {
	// Root is the project directory; defaults to the working directory
	Root string
	// Out receives console output; defaults to stdout
	Out io.Writer
	// LogFile overrides the log file location; "-" disables file logging
	LogFile string
}

// NewContext loads the project configuration and creates shared services.
// Call Close when the command finishes.
func NewContext(ctx context.Context, opts Options) (*Context, error) {
	root := opts.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = defaultRoot(wd)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	logFile := opts.LogFile
	switch logFile {
	case "":
		logFile = tui.GetLogFilePath()
	case "-":
		logFile = ""
	}
	splog, err := tui.NewSplogWithConfigWriter(out, logFile)
	if err != nil {
		// logging to a file is best effort
		splog = tui.NewSplogWriter(out, os.Getenv("DEBUG") != "")
		splog.Debug("File logging disabled: %v", err)
	}

	return &Context{
		Context: ctx,
		Splog:   splog,
		Config:  cfg,
		Root:    root,
		Queue:   jobqueue.New(splog.Logger()),
	}, nil
}

// defaultRoot is wd when it holds a project config, otherwise the root of the
// Git repository containing wd, otherwise wd
func defaultRoot(wd string) string {
	if _, err := os.Stat(filepath.Join(wd, config.FileName)); err == nil {
		return wd
	}
	if repoRoot, err := git.GetRepoRoot(wd); err == nil {
		return repoRoot
	}
	return wd
}

// GitHubClient returns the authenticated client, creating it on first use
func (c *Context) GitHubClient() (*gogithub.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	client, err := GitHubClientFactory(c, c.Config.GetHostname())
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

// History opens the publish history store on first use
func (c *Context) History() (*history.Store, error) {
	if c.history != nil {
		return c.history, nil
	}

	path := c.Config.HistoryPath
	if path == "" {
		p, err := history.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(c.Root, path)
	}

	store, err := history.OpenStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open publish history: %w", err)
	}
	c.history = store
	return store, nil
}

// Close stops the job queue after queued work finishes and releases resources
func (c *Context) Close() error {
	var errs []error
	if err := c.Queue.Shutdown(context.WithoutCancel(c)); err != nil {
		errs = append(errs, err)
	}
	if c.history != nil {
		if err := c.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Splog.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

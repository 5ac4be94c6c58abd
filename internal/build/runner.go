// Package build runs the project's static-site build command.
//
// The build tool is opaque to pubsite: only its exit status and captured
// output are observed.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
)

// Result holds the outcome of a successful build
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes a build command in a fixed working directory
type Runner struct {
	Command []string
	Dir     string
	Env     []string
}

// NewRunner creates a Runner from a shell-style command line
func NewRunner(commandLine, dir string) (*Runner, error) {
	args, err := ParseCommand(commandLine)
	if err != nil {
		return nil, err
	}
	return &Runner{Command: args, Dir: dir}, nil
}

// ParseCommand splits a command line using shell quoting rules
func ParseCommand(commandLine string) ([]string, error) {
	args, err := shellquote.Split(strings.TrimSpace(commandLine))
	if err != nil {
		return nil, fmt.Errorf("invalid build command %q: %w", commandLine, err)
	}
	return args, nil
}

// Skipped reports whether the runner has no command configured
func (r *Runner) Skipped() bool {
	return r == nil || len(r.Command) == 0
}

// String returns the command line as it would be typed in a shell
func (r *Runner) String() string {
	if r.Skipped() {
		return ""
	}
	return shellquote.Join(r.Command...)
}

// Run executes the build. A non-zero exit or a spawn failure is reported as a
// BuildFailure PublishError carrying the captured stderr.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.Skipped() {
		return &Result{}, nil
	}

	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		result.ExitCode = exitCode

		cmdErr := pubsiteerrors.NewCommandError(r.Command[0], r.Command[1:], exitCode, result.Stdout, result.Stderr, err)
		upstream := strings.TrimSpace(result.Stderr)
		if upstream == "" {
			upstream = err.Error()
		}
		pubErr := pubsiteerrors.NewPublishError(pubsiteerrors.KindBuild, upstream, cmdErr)
		pubErr.Detail = r.String()
		return result, pubErr
	}

	return result, nil
}

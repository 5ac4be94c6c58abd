// Package errors provides sentinel errors and custom error types for the pubsite application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	// ErrPublishFailed matches every PublishError regardless of kind
	ErrPublishFailed = errors.New("publish failed")

	// ErrInvalidRequest indicates a publish request failed validation before it was queued
	ErrInvalidRequest = errors.New("invalid publish request")

	// ErrQueueClosed indicates that work was submitted to a queue that has been shut down
	ErrQueueClosed = errors.New("job queue is closed")

	// ErrNoToken indicates that no GitHub token could be found
	ErrNoToken = errors.New("no GitHub token available")
)

// Kind identifies which publish step failed
type Kind int

// Publish failure kinds, in the order the steps run
const (
	KindBuild Kind = iota + 1
	KindRepositoryResolution
	KindBlobCreation
	KindTreeCreation
	KindCommitCreation
	KindRefUpdate
	KindPagesEnable
)

var kindNames = map[Kind]string{
	KindBuild:                "BuildFailure",
	KindRepositoryResolution: "RepositoryResolutionFailure",
	KindBlobCreation:         "BlobCreationFailure",
	KindTreeCreation:         "TreeCreationFailure",
	KindCommitCreation:       "CommitCreationFailure",
	KindRefUpdate:            "RefUpdateFailure",
	KindPagesEnable:          "PagesEnableFailure",
}

var kindSummaries = map[Kind]string{
	KindBuild:                "Failed to build site",
	KindRepositoryResolution: "Failed to create or locate repository",
	KindBlobCreation:         "Failed to upload file blob",
	KindTreeCreation:         "Failed to create Git tree for publication",
	KindCommitCreation:       "Failed to create Git commit for publication",
	KindRefUpdate:            "Failed to update publish branch reference",
	KindPagesEnable:          "Failed to enable GitHub Pages",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Summary returns the human readable headline used for this kind
func (k Kind) Summary() string {
	if s, ok := kindSummaries[k]; ok {
		return s
	}
	return "Publish failed"
}

// PublishError is the single externally visible failure of a publish run.
// Upstream holds the hosting API (or build tool) message for diagnosis.
type PublishError struct {
	Kind     Kind
	Detail   string // optional context, e.g. the file path that failed to upload
	Upstream string
	Err      error
}

func (e *PublishError) Error() string {
	msg := e.Kind.Summary()
	if e.Detail != "" {
		msg += fmt.Sprintf(" (%s)", e.Detail)
	}
	if e.Upstream != "" {
		msg += ": " + e.Upstream
	} else if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrPublishFailed
func (e *PublishError) Is(target error) bool {
	return target == ErrPublishFailed
}

// NewPublishError creates a new PublishError
func NewPublishError(kind Kind, upstream string, err error) *PublishError {
	return &PublishError{
		Kind:     kind,
		Upstream: upstream,
		Err:      err,
	}
}

// KindOf returns the kind of the first PublishError in err's chain, or 0
func KindOf(err error) Kind {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// CommandError represents an error from an external command execution
type CommandError struct {
	Command  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError
func NewCommandError(command string, args []string, exitCode int, stdout, stderr string, err error) *CommandError {
	return &CommandError{
		Command:  command,
		Args:     args,
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
		Err:      err,
	}
}

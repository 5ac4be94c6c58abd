package publish

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
	"pubsite.dev/pubsite/internal/github"
)

// DefaultBranch is the branch GitHub Pages serves when none is configured
const DefaultBranch = "gh-pages"

var repositoryNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Request describes one publish
type Request struct {
	RepositoryName   string
	PublishDirectory string
	Branch           string

	// CommitMessage defaults to github.DefaultCommitMessage
	CommitMessage string
	// SourceDir is where the local git revision is read from; defaults to the working directory
	SourceDir string
	// SourceRevision is appended to the commit message. Publish fills it from
	// SourceDir before the run is queued when it is empty.
	SourceRevision string
	// Clean replaces the branch contents instead of layering on the previous tree
	Clean bool

	Description string
	Private     bool
}

// Validate checks the request and fills in defaults
func (r *Request) Validate() error {
	r.RepositoryName = strings.TrimSpace(r.RepositoryName)
	r.PublishDirectory = strings.TrimSpace(r.PublishDirectory)
	r.Branch = strings.TrimSpace(r.Branch)

	if r.RepositoryName == "" {
		return fmt.Errorf("%w: repository name is required", pubsiteerrors.ErrInvalidRequest)
	}
	if !repositoryNamePattern.MatchString(r.RepositoryName) || r.RepositoryName == "." || r.RepositoryName == ".." {
		return fmt.Errorf("%w: repository name %q may only contain letters, digits, '.', '-' and '_'", pubsiteerrors.ErrInvalidRequest, r.RepositoryName)
	}
	if r.PublishDirectory == "" {
		return fmt.Errorf("%w: publish directory is required", pubsiteerrors.ErrInvalidRequest)
	}
	if r.Branch == "" {
		r.Branch = DefaultBranch
	}
	if strings.ContainsAny(r.Branch, " ~^:?*[\\") || strings.HasPrefix(r.Branch, "-") || strings.Contains(r.Branch, "..") {
		return fmt.Errorf("%w: %q is not a valid branch name", pubsiteerrors.ErrInvalidRequest, r.Branch)
	}
	return nil
}

// Result is returned when a publish reaches the publish branch
type Result struct {
	Message            string
	RepositoryFullName string
	PagesURL           string

	Branch            string
	CommitSHA         string
	ParentSHA         string
	Files             int
	RepositoryCreated bool
	Pages             *github.PagesStatus
	Duration          time.Duration

	// State is StateDone, or StateFailed when the branch moved but Pages could not be enabled
	State State
}

// successMessage is the confirmation shown to the user
func successMessage(repo github.RepoRef, branch string) string {
	return fmt.Sprintf("Published %s from the %s branch.", repo.FullName(), branch)
}

package testhelpers

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitRepo is a local Git repository for testing. It is driven through go-git
// so tests do not depend on a git binary.
type GitRepo struct {
	Dir  string
	repo *git.Repository
}

// NewGitRepo initializes a new Git repository in dir
func NewGitRepo(dir string) (*GitRepo, error) {
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to init repo: %w", err)
	}
	return &GitRepo{Dir: dir, repo: repo}, nil
}

// NewTestGitRepo creates a repository in a temporary directory
func NewTestGitRepo(t *testing.T) *GitRepo {
	t.Helper()
	return Must(NewGitRepo(t.TempDir()))
}

// CommitFile writes content to name and commits it, returning the commit sha
func (r *GitRepo) CommitFile(name, content, message string) (string, error) {
	path := filepath.Join(r.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", err
	}
	if _, err := wt.Add(name); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", name, err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return hash.String(), nil
}

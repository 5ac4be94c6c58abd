package git

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ShortSHALength is the length of an abbreviated commit sha
const ShortSHALength = 7

// ErrNotRepository is returned when dir is not inside a Git repository
var ErrNotRepository = errors.New("not a git repository")

// Source describes the checked out state of a repository
type Source struct {
	Root     string
	Revision string // full HEAD sha; empty when HEAD is unborn
	Dirty    bool   // tracked files differ from HEAD
}

// ShortRevision returns the abbreviated HEAD sha
func (s *Source) ShortRevision() string {
	if len(s.Revision) > ShortSHALength {
		return s.Revision[:ShortSHALength]
	}
	return s.Revision
}

func open(dir string) (*gogit.Repository, error) {
	if dir == "" {
		dir = "."
	}
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, ErrNotRepository
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}
	return repo, nil
}

// GetRepoRoot returns the root directory of the Git repository containing dir
func GetRepoRoot(dir string) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}

	// Get the worktree to find the root
	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	return worktree.Filesystem.Root(), nil
}

// DescribeSource reads the HEAD commit and worktree state of the repository containing dir
func DescribeSource(dir string) (*Source, error) {
	repo, err := open(dir)
	if err != nil {
		return nil, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	src := &Source{Root: worktree.Filesystem.Root()}

	head, err := repo.Head()
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		return src, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read HEAD: %w", err)
	}
	src.Revision = head.Hash().String()

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree status: %w", err)
	}
	for _, s := range status {
		// untracked files, such as build output, do not count
		if s.Worktree == gogit.Untracked {
			continue
		}
		if s.Worktree != gogit.Unmodified || s.Staging != gogit.Unmodified {
			src.Dirty = true
			break
		}
	}
	return src, nil
}

package publish

import (
	"pubsite.dev/pubsite/internal/git"
	"pubsite.dev/pubsite/internal/github"
)

// sourceRevision describes the HEAD of the Git repository containing dir as
// "abc1234", or "abc1234, modified" when tracked files have uncommitted
// changes. It returns "" outside a repository or when HEAD is unborn.
func sourceRevision(dir string) string {
	src, err := git.DescribeSource(dir)
	if err != nil || src.Revision == "" {
		return ""
	}
	if src.Dirty {
		return src.ShortRevision() + ", modified"
	}
	return src.ShortRevision()
}

// commitMessage appends revision, when known, to message
func commitMessage(message, revision string) string {
	if message == "" {
		message = github.DefaultCommitMessage
	}
	if revision == "" {
		return message
	}
	return message + " (source " + revision + ")"
}

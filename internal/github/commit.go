package github

import (
	"context"

	"github.com/google/go-github/v62/github"

	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
)

const (
	blobFileMode = "100644"
	blobType     = "blob"
)

// BranchTip is the commit a branch currently points at
type BranchTip struct {
	CommitSHA string
	TreeSHA   string
}

// RemoteTree is a tree created for one publish
type RemoteTree struct {
	SHA     string
	BaseSHA string
	Entries []RemoteBlob
}

// RemoteCommit is the commit created for one publish
type RemoteCommit struct {
	SHA        string
	TreeSHA    string
	ParentSHAs []string
	Message    string
}

// CommitOptions tunes AssembleCommit
type CommitOptions struct {
	Message string
	// Clean builds the tree from the uploaded blobs alone instead of layering
	// it on the previous tree, so files removed from the site disappear.
	Clean bool
}

// DefaultCommitMessage is used when CommitOptions.Message is empty
const DefaultCommitMessage = "Publish static site"

func headsRef(branch string) string {
	return "heads/" + branch
}

// GetBranchTip reads the commit and tree at the tip of branch.
// It returns nil without error when the branch does not exist yet.
func GetBranchTip(ctx context.Context, client *github.Client, owner, name, branch string) (*BranchTip, error) {
	ref, _, err := client.Git.GetRef(ctx, owner, name, headsRef(branch))
	switch Classify(err) {
	case OutcomeOK:
	case OutcomeNotFound:
		return nil, nil
	case OutcomeAlreadyExists, OutcomeConflict, OutcomeFailed:
		return nil, err
	}

	commitSHA := ref.GetObject().GetSHA()
	commit, _, err := client.Git.GetCommit(ctx, owner, name, commitSHA)
	if err != nil {
		return nil, err
	}

	return &BranchTip{
		CommitSHA: commitSHA,
		TreeSHA:   commit.GetTree().GetSHA(),
	}, nil
}

// CreateTree creates a tree whose entries are exactly blobs, layered on baseTree when it is non-empty
func CreateTree(ctx context.Context, client *github.Client, owner, name, baseTree string, blobs []RemoteBlob) (*RemoteTree, error) {
	entries := make([]*github.TreeEntry, 0, len(blobs))
	for _, b := range blobs {
		entries = append(entries, &github.TreeEntry{
			Path: github.String(b.Path),
			Mode: github.String(blobFileMode),
			Type: github.String(blobType),
			SHA:  github.String(b.SHA),
		})
	}

	tree, _, err := client.Git.CreateTree(ctx, owner, name, baseTree, entries)
	switch Classify(err) {
	case OutcomeOK:
	case OutcomeAlreadyExists, OutcomeNotFound, OutcomeConflict, OutcomeFailed:
		return nil, pubsiteerrors.NewPublishError(pubsiteerrors.KindTreeCreation, UpstreamMessage(err), err)
	}

	return &RemoteTree{SHA: tree.GetSHA(), BaseSHA: baseTree, Entries: blobs}, nil
}

// CreateCommit creates a commit pointing at treeSHA with the given parents
func CreateCommit(ctx context.Context, client *github.Client, owner, name, message, treeSHA string, parents []string) (*RemoteCommit, error) {
	commit := &github.Commit{
		Message: github.String(message),
		Tree:    &github.Tree{SHA: github.String(treeSHA)},
	}
	for _, p := range parents {
		commit.Parents = append(commit.Parents, &github.Commit{SHA: github.String(p)})
	}

	created, _, err := client.Git.CreateCommit(ctx, owner, name, commit, nil)
	switch Classify(err) {
	case OutcomeOK:
	case OutcomeAlreadyExists, OutcomeNotFound, OutcomeConflict, OutcomeFailed:
		return nil, pubsiteerrors.NewPublishError(pubsiteerrors.KindCommitCreation, UpstreamMessage(err), err)
	}

	parentSHAs := make([]string, 0, len(parents))
	parentSHAs = append(parentSHAs, parents...)
	return &RemoteCommit{
		SHA:        created.GetSHA(),
		TreeSHA:    treeSHA,
		ParentSHAs: parentSHAs,
		Message:    message,
	}, nil
}

// AssembleCommit builds a tree from blobs and commits it on top of the current
// tip of branch. A missing branch is the normal first-publish case and yields
// a root commit.
func AssembleCommit(ctx context.Context, client *github.Client, owner, name string, blobs []RemoteBlob, branch string, opts CommitOptions) (*RemoteCommit, error) {
	tip, err := GetBranchTip(ctx, client, owner, name, branch)
	if err != nil {
		pubErr := pubsiteerrors.NewPublishError(pubsiteerrors.KindTreeCreation, UpstreamMessage(err), err)
		pubErr.Detail = "reading tip of " + branch
		return nil, pubErr
	}

	var baseTree string
	var parents []string
	if tip != nil {
		parents = []string{tip.CommitSHA}
		if !opts.Clean {
			baseTree = tip.TreeSHA
		}
	}

	tree, err := CreateTree(ctx, client, owner, name, baseTree, blobs)
	if err != nil {
		return nil, err
	}

	message := opts.Message
	if message == "" {
		message = DefaultCommitMessage
	}
	return CreateCommit(ctx, client, owner, name, message, tree.SHA, parents)
}

package github

import (
	"context"

	"github.com/google/go-github/v62/github"

	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
)

// RefOutcome says how the branch reference was moved
type RefOutcome int

const (
	// RefUpdated means an existing branch was fast-forwarded
	RefUpdated RefOutcome = iota
	// RefCreated means the branch did not exist and was created
	RefCreated
)

// UpdateBranchRef points branch at commitSHA, creating the branch when it does not exist
func UpdateBranchRef(ctx context.Context, client *github.Client, owner, name, branch, commitSHA string) (RefOutcome, error) {
	ref := &github.Reference{
		Ref:    github.String("refs/" + headsRef(branch)),
		Object: &github.GitObject{SHA: github.String(commitSHA)},
	}

	_, _, err := client.Git.UpdateRef(ctx, owner, name, ref, false)
	switch Classify(err) {
	case OutcomeOK:
		return RefUpdated, nil
	case OutcomeNotFound:
		// first publish to this branch
	case OutcomeAlreadyExists, OutcomeConflict, OutcomeFailed:
		return RefUpdated, refFailure(err)
	}

	_, _, err = client.Git.CreateRef(ctx, owner, name, ref)
	switch Classify(err) {
	case OutcomeOK:
		return RefCreated, nil
	case OutcomeAlreadyExists, OutcomeNotFound, OutcomeConflict, OutcomeFailed:
		return RefCreated, refFailure(err)
	}
	return RefCreated, refFailure(err)
}

func refFailure(err error) error {
	return pubsiteerrors.NewPublishError(pubsiteerrors.KindRefUpdate, UpstreamMessage(err), err)
}

package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v62/github"

	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
)

// ResolveOutcome says how the destination repository was obtained
type ResolveOutcome int

const (
	// RepositoryCreated means a new repository was created
	RepositoryCreated ResolveOutcome = iota
	// RepositoryReused means a same-named repository of the authenticated user is reused
	RepositoryReused
)

// ResolvedRepository is the destination of a publish
type ResolvedRepository struct {
	RepoRef
	Outcome ResolveOutcome
}

// RepositoryOptions are applied only when the repository is created
type RepositoryOptions struct {
	Description string
	Private     bool
}

// ResolveRepository creates the destination repository under the authenticated
// account, or reuses a same-named one the account already owns. A name clash
// never triggers a second create call.
func ResolveRepository(ctx context.Context, client *github.Client, name string, opts RepositoryOptions) (*ResolvedRepository, error) {
	repo := &github.Repository{
		Name:     github.String(name),
		Private:  github.Bool(opts.Private),
		AutoInit: github.Bool(true), // the Git data API rejects writes to a repository with no commits
	}
	if opts.Description != "" {
		repo.Description = github.String(opts.Description)
	}

	created, _, err := client.Repositories.Create(ctx, "", repo)

	switch Classify(err) {
	case OutcomeOK:
		owner := created.GetOwner().GetLogin()
		createdName := created.GetName()
		if createdName == "" {
			createdName = name
		}
		return &ResolvedRepository{
			RepoRef: RepoRef{Owner: owner, Name: createdName},
			Outcome: RepositoryCreated,
		}, nil

	case OutcomeAlreadyExists:
		if !isRepositoryNameTaken(err) {
			return nil, resolutionFailure(err)
		}
		login, err := authenticatedLogin(ctx, client)
		if err != nil {
			return nil, resolutionFailure(err)
		}
		return &ResolvedRepository{
			RepoRef: RepoRef{Owner: login, Name: name},
			Outcome: RepositoryReused,
		}, nil

	case OutcomeNotFound, OutcomeConflict, OutcomeFailed:
		return nil, resolutionFailure(err)
	}
	return nil, resolutionFailure(err)
}

// authenticatedLogin returns the login of the token's owner
func authenticatedLogin(ctx context.Context, client *github.Client) (string, error) {
	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return "", err
	}
	if user.GetLogin() == "" {
		return "", fmt.Errorf("authenticated user has no login")
	}
	return user.GetLogin(), nil
}

func resolutionFailure(err error) error {
	return pubsiteerrors.NewPublishError(pubsiteerrors.KindRepositoryResolution, UpstreamMessage(err), err)
}

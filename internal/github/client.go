// Package github drives the GitHub REST API to publish a built site.
//
// Publishing never pushes with git. Instead it talks to the Git data API
// directly: files become blobs, blobs become a tree, the tree becomes a commit,
// and the publish branch reference is moved to that commit. Each step lives in
// its own file and reports recoverable API responses through Outcome.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// DefaultHostname is the public GitHub host
const DefaultHostname = "github.com"

// RepoRef identifies a repository by owner and name
type RepoRef struct {
	Owner string
	Name  string
}

// FullName returns owner/name
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// NewClient creates a GitHub client authenticated with a bearer token.
// Supports both github.com and GitHub Enterprise instances.
func NewClient(ctx context.Context, hostname, token string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	hostname = strings.TrimSpace(hostname)
	if hostname == "" || hostname == DefaultHostname {
		return client, nil
	}

	// GitHub Enterprise: REST at /api/v3/, uploads at /api/uploads/
	baseURL, err := url.Parse(fmt.Sprintf("https://%s/api/v3/", hostname))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL for hostname %s: %w", hostname, err)
	}
	uploadURL, err := url.Parse(fmt.Sprintf("https://%s/api/uploads/", hostname))
	if err != nil {
		return nil, fmt.Errorf("failed to parse upload URL for hostname %s: %w", hostname, err)
	}
	client.BaseURL = baseURL
	client.UploadURL = uploadURL

	return client, nil
}

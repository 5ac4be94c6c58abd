package github

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/go-github/v62/github"

	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
)

const pagesSourcePath = "/"

// PagesStatus describes the Pages configuration after EnablePages
type PagesStatus struct {
	URL            string
	AlreadyEnabled bool
	// SourceUpdated is set when Pages was already enabled for another branch and was repointed
	SourceUpdated bool
	// Unverified is set when Pages was already enabled but its source could not be read
	Unverified bool
}

// PagesURL returns the address github.com Pages serves owner/name at. The
// html_url reported by the API takes precedence over it, since GitHub
// Enterprise hosts Pages elsewhere.
func PagesURL(owner, name string) string {
	host := strings.ToLower(owner) + ".github.io"
	if strings.EqualFold(name, host) {
		return "https://" + host
	}
	return fmt.Sprintf("https://%s/%s", host, name)
}

// EnablePages asks GitHub to serve branch as the repository's Pages site.
// Pages being enabled already counts as success; in that case the configured
// source is checked and moved to branch when it points elsewhere.
func EnablePages(ctx context.Context, client *github.Client, owner, name, branch string, logger *slog.Logger) (*PagesStatus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	status := &PagesStatus{URL: PagesURL(owner, name)}

	source := &github.PagesSource{
		Branch: github.String(branch),
		Path:   github.String(pagesSourcePath),
	}
	enabled, _, err := client.Repositories.EnablePages(ctx, owner, name, &github.Pages{Source: source})

	switch Classify(err) {
	case OutcomeOK:
		status.useHTMLURL(enabled.GetHTMLURL())
		return status, nil
	case OutcomeConflict, OutcomeAlreadyExists:
		status.AlreadyEnabled = true
	case OutcomeNotFound, OutcomeFailed:
		return nil, pubsiteerrors.NewPublishError(pubsiteerrors.KindPagesEnable, UpstreamMessage(err), err)
	}

	current, _, err := client.Repositories.GetPagesInfo(ctx, owner, name)
	if err != nil {
		logger.Warn("could not verify existing Pages configuration", "repository", owner+"/"+name, "error", UpstreamMessage(err))
		status.Unverified = true
		return status, nil
	}
	status.useHTMLURL(current.GetHTMLURL())

	currentBranch := current.GetSource().GetBranch()
	currentPath := current.GetSource().GetPath()
	if currentBranch == branch && (currentPath == "" || currentPath == pagesSourcePath) {
		return status, nil
	}

	logger.Info("repointing Pages source", "repository", owner+"/"+name, "from", currentBranch+currentPath, "to", branch+pagesSourcePath)
	_, err = client.Repositories.UpdatePages(ctx, owner, name, &github.PagesUpdate{Source: source})
	if err != nil {
		pubErr := pubsiteerrors.NewPublishError(pubsiteerrors.KindPagesEnable, UpstreamMessage(err), err)
		pubErr.Detail = fmt.Sprintf("Pages already serves %s", currentBranch)
		return nil, pubErr
	}
	status.SourceUpdated = true
	return status, nil
}

// useHTMLURL replaces the computed URL with the one GitHub reported, if any
func (s *PagesStatus) useHTMLURL(htmlURL string) {
	if htmlURL = strings.TrimSuffix(htmlURL, "/"); htmlURL != "" {
		s.URL = htmlURL
	}
}

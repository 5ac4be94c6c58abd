package github

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/go-github/v62/github"
)

// Outcome is the step-level reading of an API call result. Steps switch over
// it instead of inspecting status codes themselves.
type Outcome int

const (
	// OutcomeOK means the call succeeded
	OutcomeOK Outcome = iota
	// OutcomeAlreadyExists means the resource was already there (422 already_exists)
	OutcomeAlreadyExists
	// OutcomeNotFound means the resource does not exist yet
	OutcomeNotFound
	// OutcomeConflict means the request conflicts with current state (409)
	OutcomeConflict
	// OutcomeFailed is every other failure
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeAlreadyExists:
		return "already-exists"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeConflict:
		return "conflict"
	default:
		return "failed"
	}
}

const (
	codeAlreadyExists = "already_exists"
	codeCustom        = "custom"

	msgReferenceMissing = "reference does not exist"
	msgEmptyRepository  = "git repository is empty"
)

// Classify maps an API error to an Outcome
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}

	var errResp *github.ErrorResponse
	if !errors.As(err, &errResp) || errResp.Response == nil {
		return OutcomeFailed
	}

	message := strings.ToLower(errResp.Message)
	switch errResp.Response.StatusCode {
	case http.StatusNotFound:
		return OutcomeNotFound
	case http.StatusConflict:
		// The Git data API answers 409 for reads against a repository with no commits
		if strings.Contains(message, msgEmptyRepository) {
			return OutcomeNotFound
		}
		return OutcomeConflict
	case http.StatusUnprocessableEntity:
		if strings.Contains(message, msgReferenceMissing) {
			return OutcomeNotFound
		}
		for _, e := range errResp.Errors {
			if isAlreadyExists(e) {
				return OutcomeAlreadyExists
			}
		}
	}
	return OutcomeFailed
}

func isAlreadyExists(e github.Error) bool {
	if e.Code == codeAlreadyExists {
		return true
	}
	// github.com reports a taken repository name as a custom error
	return e.Code == codeCustom && strings.Contains(strings.ToLower(e.Message), "already exists")
}

// isRepositoryNameTaken reports whether err says a repository with this name
// already exists for the authenticated account
func isRepositoryNameTaken(err error) bool {
	var errResp *github.ErrorResponse
	if !errors.As(err, &errResp) {
		return false
	}
	for _, e := range errResp.Errors {
		if strings.EqualFold(e.Resource, "Repository") && e.Field == "name" && isAlreadyExists(e) {
			return true
		}
	}
	return false
}

// UpstreamMessage extracts the hosting API's own message from err
func UpstreamMessage(err error) string {
	if err == nil {
		return ""
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return rateErr.Message
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return abuseErr.Message
	}
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) {
		msg := errResp.Message
		for _, e := range errResp.Errors {
			if e.Message != "" {
				msg += "; " + e.Message
			}
		}
		if msg != "" {
			return msg
		}
	}
	return err.Error()
}

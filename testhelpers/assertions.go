// Package testhelpers provides testing utilities for pubsite, including an
// in-memory GitHub API server, site fixtures, and custom assertions.
package testhelpers

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
)

// Must is a generic helper function that panics if err is not nil,
// otherwise returns the value. This is useful for test setup code
// where errors are not expected and should halt execution immediately.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// RequirePublishError asserts that err is a PublishError of the given kind
// whose message contains every fragment.
func RequirePublishError(t *testing.T, err error, kind pubsiteerrors.Kind, fragments ...string) *pubsiteerrors.PublishError {
	t.Helper()

	require.Error(t, err)
	require.True(t, errors.Is(err, pubsiteerrors.ErrPublishFailed), "expected a publish error, got %T: %v", err, err)

	var pubErr *pubsiteerrors.PublishError
	require.True(t, errors.As(err, &pubErr))
	require.Equal(t, kind, pubErr.Kind, "unexpected failure kind: %v", err)

	for _, fragment := range fragments {
		require.True(t, strings.Contains(err.Error(), fragment), "expected %q to contain %q", err.Error(), fragment)
	}
	return pubErr
}

// RequireCalls asserts the mock server received exactly ops, in order, ignoring
// operations not listed in filter. An empty filter compares every call.
func RequireCalls(t *testing.T, config *MockGitHubServerConfig, expected []string, filter ...string) {
	t.Helper()

	keep := make(map[string]bool, len(filter))
	for _, f := range filter {
		keep[f] = true
	}

	config.mu.Lock()
	calls := make([]string, 0, len(config.Calls))
	for _, c := range config.Calls {
		if len(keep) == 0 || keep[c] {
			calls = append(calls, c)
		}
	}
	config.mu.Unlock()

	require.Equal(t, expected, calls, "unexpected GitHub calls")
}

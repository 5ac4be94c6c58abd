package github

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
)

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	t.Run("github.com keeps the default API", func(t *testing.T) {
		client, err := NewClient(ctx, "", "token")
		require.NoError(t, err)
		require.Equal(t, "https://api.github.com/", client.BaseURL.String())
	})

	t.Run("enterprise host", func(t *testing.T) {
		client, err := NewClient(ctx, "github.example.com", "token")
		require.NoError(t, err)
		require.Equal(t, "https://github.example.com/api/v3/", client.BaseURL.String())
		require.Equal(t, "https://github.example.com/api/uploads/", client.UploadURL.String())
	})
}

func TestRepoRefFullName(t *testing.T) {
	require.Equal(t, "test-user/demo-site", RepoRef{Owner: "test-user", Name: "demo-site"}.FullName())
}

func TestGetToken(t *testing.T) {
	ctx := context.Background()

	stubGh := func(t *testing.T, token string, err error) *string {
		t.Helper()
		var gotHost string
		orig := ghAuthToken
		ghAuthToken = func(_ context.Context, hostname string) (string, error) {
			gotHost = hostname
			return token, err
		}
		t.Cleanup(func() { ghAuthToken = orig })
		return &gotHost
	}
	clearEnv := func(t *testing.T) {
		t.Helper()
		for _, name := range tokenEnvVars {
			t.Setenv(name, "")
		}
	}

	t.Run("environment wins", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GITHUB_TOKEN", " env-token\n")
		stubGh(t, "", errors.New("gh should not be called"))

		token, err := GetToken(ctx, "")
		require.NoError(t, err)
		require.Equal(t, "env-token", token)
	})

	t.Run("pubsite token takes precedence", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GITHUB_TOKEN", "generic")
		t.Setenv("PUBSITE_GITHUB_TOKEN", "specific")

		token, err := GetToken(ctx, "")
		require.NoError(t, err)
		require.Equal(t, "specific", token)
	})

	t.Run("falls back to gh", func(t *testing.T) {
		clearEnv(t)
		host := stubGh(t, "gh-token\n", nil)

		token, err := GetToken(ctx, "github.example.com")
		require.NoError(t, err)
		require.Equal(t, "gh-token", token)
		require.Equal(t, "github.example.com", *host)
	})

	t.Run("no token anywhere", func(t *testing.T) {
		clearEnv(t)
		stubGh(t, "", errors.New("gh: not logged in"))

		_, err := GetToken(ctx, "")
		require.ErrorIs(t, err, pubsiteerrors.ErrNoToken)
	})

	t.Run("empty gh output", func(t *testing.T) {
		clearEnv(t)
		stubGh(t, "  \n", nil)

		_, err := GetToken(ctx, "")
		require.ErrorIs(t, err, pubsiteerrors.ErrNoToken)
	})
}

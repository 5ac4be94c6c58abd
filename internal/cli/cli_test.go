package cli

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	gogithub "github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/require"

	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
	"pubsite.dev/pubsite/internal/runtime"
	"pubsite.dev/pubsite/testhelpers"
)

type cliFixture struct {
	root   string
	config *testhelpers.MockGitHubServerConfig
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	t.Setenv("PUBSITE_NON_INTERACTIVE", "1")

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".pubsite.yaml"), []byte("repository: demo-site\nhistoryPath: history.db\n"), 0600))
	testhelpers.WriteFiles(t, filepath.Join(root, "dist"), testhelpers.DefaultSite)

	f := &cliFixture{root: root, config: testhelpers.NewMockGitHubServerConfig()}
	client := testhelpers.NewMockGitHubClient(t, f.config)

	orig := runtime.GitHubClientFactory
	runtime.GitHubClientFactory = func(_ context.Context, _ string) (*gogithub.Client, error) {
		return client, nil
	}
	t.Cleanup(func() { runtime.GitHubClientFactory = orig })

	return f
}

func (f *cliFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd("1.2.3", "abc1234", "2026-01-01")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--project", f.root, "--log-file", "-"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPublishCommand(t *testing.T) {
	t.Run("publishes the site and records it", func(t *testing.T) {
		f := newCLIFixture(t)

		out, err := f.run(t, "publish", "--skip-build")
		require.NoError(t, err)
		require.Contains(t, out, "Published test-user/demo-site from the gh-pages branch.")
		require.Contains(t, out, "https://test-user.github.io/demo-site")

		tip := f.config.Ref("test-user", "demo-site", "gh-pages")
		require.NotEmpty(t, tip)
		files := f.config.TreeFiles(f.config.Commit(tip).Tree)
		for path, content := range testhelpers.DefaultSite {
			require.Equal(t, content, files[path], path)
		}
		require.Equal(t, 1, f.config.CallCount(testhelpers.OpEnablePages))

		out, err = f.run(t, "history")
		require.NoError(t, err)
		require.Contains(t, out, "published")
		require.Contains(t, out, "test-user/demo-site@gh-pages")
		require.Contains(t, out, tip[:7])

		out, err = f.run(t, "history", "--latest", "test-user/demo-site")
		require.NoError(t, err)
		require.Contains(t, out, tip[:7])
	})

	t.Run("flags override the project config", func(t *testing.T) {
		f := newCLIFixture(t)
		testhelpers.WriteFiles(t, filepath.Join(f.root, "public"), map[string]string{"index.html": "<h1>docs</h1>\n"})

		out, err := f.run(t, "publish", "--skip-build", "--repo", "docs", "--dir", "public", "--branch", "site", "-m", "Deploy docs")
		require.NoError(t, err)
		require.Contains(t, out, "Published test-user/docs from the site branch.")

		tip := f.config.Ref("test-user", "docs", "site")
		require.NotEmpty(t, tip)
		require.Equal(t, "Deploy docs", f.config.Commit(tip).Message)
		require.Equal(t, map[string]string{"index.html": "<h1>docs</h1>\n"}, f.config.TreeFiles(f.config.Commit(tip).Tree))
		require.Equal(t, "site", f.config.Pages["test-user/docs"])
	})

	t.Run("relative dir is resolved against the project", func(t *testing.T) {
		f := newCLIFixture(t)
		t.Chdir(t.TempDir())

		out, err := f.run(t, "publish", "--skip-build", "--dir", "dist")
		require.NoError(t, err)
		require.Contains(t, out, "Published test-user/demo-site from the gh-pages branch.")

		tip := f.config.Ref("test-user", "demo-site", "gh-pages")
		require.NotEmpty(t, tip)
		require.Equal(t, testhelpers.DefaultSite, f.config.TreeFiles(f.config.Commit(tip).Tree))

		out, err = f.run(t, "history", "--latest", "test-user/demo-site")
		require.NoError(t, err)
		require.Contains(t, out, tip[:7])
	})

	t.Run("missing dir fails before the repository is created", func(t *testing.T) {
		f := newCLIFixture(t)

		_, err := f.run(t, "publish", "--skip-build", "--dir", "public")
		testhelpers.RequirePublishError(t, err, pubsiteerrors.KindBuild, filepath.Join(f.root, "public"))
		require.Empty(t, f.config.Calls)
	})

	t.Run("build failure stops before any GitHub call", func(t *testing.T) {
		f := newCLIFixture(t)

		_, err := f.run(t, "publish", "--build-command", "false")
		testhelpers.RequirePublishError(t, err, pubsiteerrors.KindBuild)
		require.Empty(t, f.config.Calls)

		out, err := f.run(t, "history")
		require.NoError(t, err)
		require.Contains(t, out, "failed")
	})

	t.Run("pages failure keeps the pushed branch", func(t *testing.T) {
		f := newCLIFixture(t)
		f.config.Fail(testhelpers.OpEnablePages, http.StatusInternalServerError, "pages unavailable")

		out, err := f.run(t, "publish", "--skip-build")
		testhelpers.RequirePublishError(t, err, pubsiteerrors.KindPagesEnable, "pages unavailable")
		require.Contains(t, out, "enable Pages for it in the repository settings")
		require.NotEmpty(t, f.config.Ref("test-user", "demo-site", "gh-pages"))

		out, err = f.run(t, "history")
		require.NoError(t, err)
		require.Contains(t, out, "pages-unconfirmed")
	})

	t.Run("invalid repository name", func(t *testing.T) {
		f := newCLIFixture(t)

		_, err := f.run(t, "publish", "--skip-build", "--repo", "not a name")
		require.ErrorIs(t, err, pubsiteerrors.ErrInvalidRequest)
		require.Empty(t, f.config.Calls)
	})

	t.Run("no history", func(t *testing.T) {
		f := newCLIFixture(t)

		_, err := f.run(t, "publish", "--skip-build", "--no-history")
		require.NoError(t, err)
		require.NoFileExists(t, filepath.Join(f.root, "history.db"))
	})
}

func TestHistoryCommandEmpty(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run(t, "history")
	require.NoError(t, err)
	require.Contains(t, out, "No publishes recorded yet.")

	out, err = f.run(t, "history", "--latest", "test-user/demo-site")
	require.NoError(t, err)
	require.Contains(t, out, "test-user/demo-site has not been published yet.")
}

func TestInitCommand(t *testing.T) {
	t.Setenv("PUBSITE_NON_INTERACTIVE", "1")
	root := t.TempDir()
	f := &cliFixture{root: root}

	out, err := f.run(t, "init", "--repo", "my-site", "--dir", "build", "--build-command", "make site")
	require.NoError(t, err)
	require.Contains(t, out, "Wrote .pubsite.yaml")

	data, err := os.ReadFile(filepath.Join(root, ".pubsite.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(data), "repository: my-site")
	require.Contains(t, string(data), "directory: build")
	require.Contains(t, string(data), "buildCommand: make site")

	_, err = f.run(t, "init")
	require.ErrorContains(t, err, "already exists")

	out, err = f.run(t, "init", "--force", "--branch", "site")
	require.NoError(t, err)
	require.Contains(t, out, "Rewrote .pubsite.yaml")

	data, err = os.ReadFile(filepath.Join(root, ".pubsite.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(data), "repository: my-site")
	require.Contains(t, string(data), "branch: site")
}

func TestVersionCommand(t *testing.T) {
	f := &cliFixture{root: t.TempDir()}

	out, err := f.run(t, "version")
	require.NoError(t, err)
	require.Equal(t, "pubsite 1.2.3 (commit abc1234, built 2026-01-01)\n", out)
}

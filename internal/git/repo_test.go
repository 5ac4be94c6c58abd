package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pubsite.dev/pubsite/testhelpers"
)

func samePath(t *testing.T, expected, actual string) {
	t.Helper()
	e, err := filepath.EvalSymlinks(expected)
	require.NoError(t, err)
	a, err := filepath.EvalSymlinks(actual)
	require.NoError(t, err)
	require.Equal(t, e, a)
}

func TestGetRepoRoot(t *testing.T) {
	repo := testhelpers.NewTestGitRepo(t)
	_, err := repo.CommitFile("site/src/index.md", "# hi\n", "initial")
	require.NoError(t, err)

	root, err := GetRepoRoot(filepath.Join(repo.Dir, "site", "src"))
	require.NoError(t, err)
	samePath(t, repo.Dir, root)

	_, err = GetRepoRoot(t.TempDir())
	require.ErrorIs(t, err, ErrNotRepository)
}

func TestDescribeSource(t *testing.T) {
	t.Run("clean checkout", func(t *testing.T) {
		repo := testhelpers.NewTestGitRepo(t)
		sha, err := repo.CommitFile("index.md", "# hi\n", "initial")
		require.NoError(t, err)

		src, err := DescribeSource(repo.Dir)
		require.NoError(t, err)
		require.Equal(t, sha, src.Revision)
		require.Equal(t, sha[:7], src.ShortRevision())
		require.False(t, src.Dirty)
	})

	t.Run("untracked build output is not a change", func(t *testing.T) {
		repo := testhelpers.NewTestGitRepo(t)
		_, err := repo.CommitFile("index.md", "# hi\n", "initial")
		require.NoError(t, err)
		testhelpers.WriteFiles(t, repo.Dir, map[string]string{"dist/index.html": "<h1>hi</h1>\n"})

		src, err := DescribeSource(repo.Dir)
		require.NoError(t, err)
		require.False(t, src.Dirty)
	})

	t.Run("modified tracked file", func(t *testing.T) {
		repo := testhelpers.NewTestGitRepo(t)
		_, err := repo.CommitFile("index.md", "# hi\n", "initial")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(repo.Dir, "index.md"), []byte("# changed\n"), 0600))

		src, err := DescribeSource(repo.Dir)
		require.NoError(t, err)
		require.True(t, src.Dirty)
	})

	t.Run("unborn HEAD", func(t *testing.T) {
		repo := testhelpers.NewTestGitRepo(t)

		src, err := DescribeSource(repo.Dir)
		require.NoError(t, err)
		require.Empty(t, src.Revision)
		require.Empty(t, src.ShortRevision())
	})

	t.Run("not a repository", func(t *testing.T) {
		_, err := DescribeSource(t.TempDir())
		require.ErrorIs(t, err, ErrNotRepository)
	})
}

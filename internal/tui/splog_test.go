package tui

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplog(t *testing.T) {
	t.Run("console prefixes", func(t *testing.T) {
		var buf bytes.Buffer
		s := NewSplogWriter(&buf, false)

		s.Info("Publishing %s", "demo-site")
		s.Success("Published")
		s.Warn("careful")
		s.Error("broken")
		s.Tip("try --yes")
		s.Debug("hidden")

		require.Equal(t, "Publishing demo-site\n✓ Published\n⚠️  careful\n❌ broken\n💡 try --yes\n", buf.String())
	})

	t.Run("debug output when enabled", func(t *testing.T) {
		var buf bytes.Buffer
		s := NewSplogWriter(&buf, true)
		s.Debug("uploaded %d/%d files", 2, 3)
		require.Equal(t, "uploaded 2/3 files\n", buf.String())
	})

	t.Run("quiet suppresses the console", func(t *testing.T) {
		var buf bytes.Buffer
		s := NewSplogWriter(&buf, false)
		s.SetQuiet(true)
		require.True(t, s.IsQuiet())
		s.Info("not shown")
		s.Newline()
		require.Empty(t, buf.String())
	})

	t.Run("file receives records while console is quiet", func(t *testing.T) {
		var buf bytes.Buffer
		path := filepath.Join(t.TempDir(), "logs", "pubsite.log")
		s, err := NewSplogWithConfigWriter(&buf, path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		s.SetQuiet(true)
		s.Info("Publishing demo-site")
		s.Logger().Debug("blob uploaded", "path", "index.html")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Contains(t, string(data), "Publishing demo-site")
		require.Contains(t, string(data), "path=index.html")
		require.Empty(t, buf.String())
	})
}

func TestGetLogFilePath(t *testing.T) {
	t.Setenv("PUBSITE_LOG_FILE", "/tmp/custom.log")
	require.Equal(t, "/tmp/custom.log", GetLogFilePath())
}

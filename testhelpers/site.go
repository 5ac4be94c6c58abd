package testhelpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// DefaultSite is a small built site used across publish tests
var DefaultSite = map[string]string{
	"index.html":             "<!doctype html><h1>demo</h1>\n",
	"assets/app.js":          "console.log('demo')\n",
	"assets/style.css":       "h1 { color: teal; }\n",
	"blog/post-1/index.html": "<p>first post</p>\n",
}

// WriteSite writes files into a fresh temporary directory and returns its path
func WriteSite(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	WriteFiles(t, dir, files)
	return dir
}

// WriteFiles writes files, keyed by slash-separated relative path, under dir
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
}

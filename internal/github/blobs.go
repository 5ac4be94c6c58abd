package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/go-github/v62/github"
	"golang.org/x/sync/errgroup"

	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
)

// DefaultUploadConcurrency is the number of blob uploads in flight at once
const DefaultUploadConcurrency = 4

// RemoteBlob is an uploaded file: its publish-relative path and content sha
type RemoteBlob struct {
	Path string // forward-slash separated, relative to the publish directory
	SHA  string
	Size int64
}

// UploadOptions tunes UploadBlobs
type UploadOptions struct {
	Concurrency int
	// OnUploaded is called after each successful upload; it may be called concurrently
	OnUploaded func(done, total int, blob RemoteBlob)
}

// CollectFiles returns every regular file under dir as a sorted list of
// forward-slash relative paths. Directories are traversed, not returned, and
// symlinks are skipped.
func CollectFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("publish directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("publish directory %s is not a directory", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk publish directory %s: %w", dir, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// BlobSHA returns the git object id of a blob with the given content
func BlobSHA(content []byte) string {
	return plumbing.ComputeHash(plumbing.BlobObject, content).String()
}

// UploadBlobs uploads every file under dir as a blob of owner/name. Any single
// failure fails the whole upload, since a partial tree must never be committed.
// The result is sorted by path.
func UploadBlobs(ctx context.Context, client *github.Client, owner, name, dir string, opts UploadOptions) ([]RemoteBlob, error) {
	paths, err := CollectFiles(dir)
	if err != nil {
		return nil, pubsiteerrors.NewPublishError(pubsiteerrors.KindBlobCreation, "", err)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultUploadConcurrency
	}

	blobs := make([]RemoteBlob, len(paths))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, rel := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			blob, err := uploadBlob(gctx, client, owner, name, dir, rel)
			if err != nil {
				return err
			}
			blobs[i] = *blob
			if opts.OnUploaded != nil {
				opts.OnUploaded(int(done.Add(1)), len(paths), *blob)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return blobs, nil
}

func uploadBlob(ctx context.Context, client *github.Client, owner, name, dir, rel string) (*RemoteBlob, error) {
	content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return nil, blobFailure(rel, "", err)
	}

	created, _, err := client.Git.CreateBlob(ctx, owner, name, &github.Blob{
		Content:  github.String(base64.StdEncoding.EncodeToString(content)),
		Encoding: github.String("base64"),
	})
	switch Classify(err) {
	case OutcomeOK:
	case OutcomeAlreadyExists, OutcomeNotFound, OutcomeConflict, OutcomeFailed:
		return nil, blobFailure(rel, UpstreamMessage(err), err)
	}

	expected := BlobSHA(content)
	if created.GetSHA() != expected {
		return nil, blobFailure(rel, fmt.Sprintf("server returned sha %s, expected %s", created.GetSHA(), expected), nil)
	}

	return &RemoteBlob{Path: rel, SHA: expected, Size: int64(len(content))}, nil
}

func blobFailure(path, upstream string, err error) error {
	pubErr := pubsiteerrors.NewPublishError(pubsiteerrors.KindBlobCreation, upstream, err)
	pubErr.Detail = path
	return pubErr
}

package publish

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pubsite.dev/pubsite/internal/build"
	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
	"pubsite.dev/pubsite/internal/history"
	"pubsite.dev/pubsite/internal/jobqueue"
	"pubsite.dev/pubsite/internal/tui"
	"pubsite.dev/pubsite/testhelpers"
)

type fakeBuilder struct {
	mu   sync.Mutex
	runs int
	err  error
}

func (b *fakeBuilder) Run(_ context.Context) (*build.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runs++
	if b.err != nil {
		return &build.Result{ExitCode: 1}, b.err
	}
	return &build.Result{}, nil
}

type recordingReporter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingReporter) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingReporter) StepStarted(i int, _ string) { r.add("started " + Steps[i].String()) }
func (r *recordingReporter) StepCompleted(i int)         { r.add("completed " + Steps[i].String()) }
func (r *recordingReporter) StepFailed(i int, _ error)   { r.add("failed " + Steps[i].String()) }
func (r *recordingReporter) StepProgress(int, int, int)  {}

type publishFixture struct {
	config    *testhelpers.MockGitHubServerConfig
	builder   *fakeBuilder
	reporter  *recordingReporter
	store     *history.Store
	publisher *Publisher
	site      string
}

func newPublishFixture(t *testing.T) *publishFixture {
	t.Helper()

	config := testhelpers.NewMockGitHubServerConfig()
	queue := jobqueue.New(nil)
	t.Cleanup(func() { _ = queue.Shutdown(context.Background()) })

	f := &publishFixture{
		config:   config,
		builder:  &fakeBuilder{},
		reporter: &recordingReporter{},
		store:    history.OpenTestStore(t),
		site:     testhelpers.WriteSite(t, testhelpers.DefaultSite),
	}
	f.publisher = NewPublisher(Options{
		Client:   testhelpers.NewMockGitHubClient(t, config),
		Queue:    queue,
		Builder:  f.builder,
		Reporter: f.reporter,
		Recorder: f.store,
		Splog:    tui.NewSplogWriter(&testWriter{t: t}, true),
	})
	return f
}

func (f *publishFixture) request() Request {
	return Request{RepositoryName: "demo-site", PublishDirectory: f.site, SourceDir: f.site}
}

type testWriter struct{ t *testing.T }

func (w *testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

var remoteOps = []string{
	testhelpers.OpCreateRepo,
	testhelpers.OpGetUser,
	testhelpers.OpGetRef,
	testhelpers.OpCreateTree,
	testhelpers.OpCreateCommit,
	testhelpers.OpUpdateRef,
	testhelpers.OpCreateRef,
	testhelpers.OpEnablePages,
	testhelpers.OpGetPages,
}

func TestPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("existing repository with pages already enabled", func(t *testing.T) {
		f := newPublishFixture(t)
		f.config.AddRepo("test-user", "demo-site")
		f.config.Pages["test-user/demo-site"] = "gh-pages"

		result, err := f.publisher.Publish(ctx, f.request())
		require.NoError(t, err)
		require.Equal(t, "Published test-user/demo-site from the gh-pages branch.", result.Message)
		require.Equal(t, "test-user/demo-site", result.RepositoryFullName)
		require.Equal(t, "https://test-user.github.io/demo-site", result.PagesURL)
		require.True(t, result.Pages.AlreadyEnabled)
		require.False(t, result.RepositoryCreated)
		require.Equal(t, len(testhelpers.DefaultSite), result.Files)
		require.Empty(t, result.ParentSHA)

		require.Equal(t, 1, f.builder.runs)
		testhelpers.RequireCalls(t, f.config, []string{
			testhelpers.OpCreateRepo,
			testhelpers.OpGetUser,
			testhelpers.OpGetRef,
			testhelpers.OpCreateTree,
			testhelpers.OpCreateCommit,
			testhelpers.OpUpdateRef,
			testhelpers.OpCreateRef,
			testhelpers.OpEnablePages,
			testhelpers.OpGetPages,
		}, remoteOps...)

		require.Equal(t, result.CommitSHA, f.config.Ref("test-user", "demo-site", "gh-pages"))
		commit := f.config.Commit(result.CommitSHA)
		require.Empty(t, commit.Parents)
		require.Equal(t, testhelpers.DefaultSite, f.config.TreeFiles(commit.Tree))
		require.Equal(t, "Publish static site", commit.Message)

		require.Equal(t, []string{
			"started Building", "completed Building",
			"started ResolvingRepository", "completed ResolvingRepository",
			"started UploadingBlobs", "completed UploadingBlobs",
			"started AssemblingCommit", "completed AssemblingCommit",
			"started UpdatingRef", "completed UpdatingRef",
			"started EnablingPages", "completed EnablingPages",
		}, f.reporter.events)
	})

	t.Run("tree creation failure aborts before the branch moves", func(t *testing.T) {
		f := newPublishFixture(t)
		f.config.Fail(testhelpers.OpCreateTree, http.StatusInternalServerError, "tree failure")

		result, err := f.publisher.Publish(ctx, f.request())
		require.Nil(t, result)
		testhelpers.RequirePublishError(t, err, pubsiteerrors.KindTreeCreation,
			"Failed to create Git tree for publication", "tree failure")

		require.Equal(t, 0, f.config.CallCount(testhelpers.OpCreateCommit))
		require.Equal(t, 0, f.config.CallCount(testhelpers.OpUpdateRef))
		require.Equal(t, 0, f.config.CallCount(testhelpers.OpCreateRef))
		require.Equal(t, 0, f.config.CallCount(testhelpers.OpEnablePages))
		require.Contains(t, f.reporter.events, "failed AssemblingCommit")
		require.NotContains(t, f.reporter.events, "started UpdatingRef")
	})

	t.Run("new repository is created and served", func(t *testing.T) {
		f := newPublishFixture(t)

		result, err := f.publisher.Publish(ctx, f.request())
		require.NoError(t, err)
		require.True(t, result.RepositoryCreated)
		require.False(t, result.Pages.AlreadyEnabled)
		require.Equal(t, "gh-pages", f.config.Pages["test-user/demo-site"])
		require.Equal(t, 0, f.config.CallCount(testhelpers.OpGetUser))
	})

	t.Run("second publish builds on the first", func(t *testing.T) {
		f := newPublishFixture(t)

		first, err := f.publisher.Publish(ctx, f.request())
		require.NoError(t, err)

		testhelpers.WriteFiles(t, f.site, map[string]string{"index.html": "<h1>v2</h1>\n"})
		second, err := f.publisher.Publish(ctx, f.request())
		require.NoError(t, err)

		require.Equal(t, first.CommitSHA, second.ParentSHA)
		require.Equal(t, []string{first.CommitSHA}, f.config.Commit(second.CommitSHA).Parents)
		require.Equal(t, "<h1>v2</h1>\n", f.config.TreeFiles(f.config.Commit(second.CommitSHA).Tree)["index.html"])
		require.Equal(t, 1, f.config.CallCount(testhelpers.OpCreateRef))
		require.Equal(t, 2, f.config.CallCount(testhelpers.OpUpdateRef))
	})

	t.Run("build failure makes no remote calls", func(t *testing.T) {
		f := newPublishFixture(t)
		f.builder.err = pubsiteerrors.NewPublishError(pubsiteerrors.KindBuild, "vite: command not found", nil)

		_, err := f.publisher.Publish(ctx, f.request())
		testhelpers.RequirePublishError(t, err, pubsiteerrors.KindBuild, "Failed to build site", "vite: command not found")
		testhelpers.RequireCalls(t, f.config, []string{})
	})

	t.Run("missing publish directory fails the build step", func(t *testing.T) {
		f := newPublishFixture(t)
		req := f.request()
		req.PublishDirectory = filepath.Join(t.TempDir(), "dist")

		_, err := f.publisher.Publish(ctx, req)
		pubErr := testhelpers.RequirePublishError(t, err, pubsiteerrors.KindBuild, "Failed to build site")
		require.Equal(t, "no publish directory at "+req.PublishDirectory, pubErr.Detail)
		require.Equal(t, 1, f.builder.runs)
		require.Equal(t, []string{"started Building", "failed Building"}, f.reporter.events)
		testhelpers.RequireCalls(t, f.config, []string{})
	})

	t.Run("publish directory that is a file fails the build step", func(t *testing.T) {
		f := newPublishFixture(t)
		req := f.request()
		req.PublishDirectory = filepath.Join(f.site, "index.html")

		_, err := f.publisher.Publish(ctx, req)
		testhelpers.RequirePublishError(t, err, pubsiteerrors.KindBuild, "is not a directory")
		testhelpers.RequireCalls(t, f.config, []string{})
	})

	t.Run("final state is exposed on the result", func(t *testing.T) {
		f := newPublishFixture(t)

		result, err := f.publisher.Publish(ctx, f.request())
		require.NoError(t, err)
		require.Equal(t, StateDone, result.State)
	})

	t.Run("pages url reported by the server is used", func(t *testing.T) {
		f := newPublishFixture(t)
		f.config.PagesBaseURL = "https://pages.ghe.example.com"

		result, err := f.publisher.Publish(ctx, f.request())
		require.NoError(t, err)
		require.Equal(t, "https://pages.ghe.example.com/pages/test-user/demo-site", result.PagesURL)

		records, err := f.store.List(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, result.PagesURL, records[0].PagesURL)
	})

	t.Run("pages failure still returns the result", func(t *testing.T) {
		f := newPublishFixture(t)
		f.config.Fail(testhelpers.OpEnablePages, http.StatusForbidden, "Resource not accessible by integration")

		result, err := f.publisher.Publish(ctx, f.request())
		testhelpers.RequirePublishError(t, err, pubsiteerrors.KindPagesEnable, "Failed to enable GitHub Pages")
		require.NotNil(t, result)
		require.Equal(t, StateFailed, result.State)
		require.Equal(t, "Published test-user/demo-site from the gh-pages branch.", result.Message)
		require.Equal(t, result.CommitSHA, f.config.Ref("test-user", "demo-site", "gh-pages"))

		records, err := f.store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, history.StatusPagesUnconfirmed, records[0].Status)
	})

	t.Run("custom branch", func(t *testing.T) {
		f := newPublishFixture(t)
		req := f.request()
		req.Branch = "site"

		result, err := f.publisher.Publish(ctx, req)
		require.NoError(t, err)
		require.Equal(t, "Published test-user/demo-site from the site branch.", result.Message)
		require.Equal(t, "site", f.config.Pages["test-user/demo-site"])
	})

	t.Run("invalid request is never queued", func(t *testing.T) {
		f := newPublishFixture(t)

		_, err := f.publisher.Publish(ctx, Request{RepositoryName: "demo site", PublishDirectory: f.site})
		require.ErrorIs(t, err, pubsiteerrors.ErrInvalidRequest)
		require.Equal(t, 0, f.builder.runs)
		require.Empty(t, f.reporter.events)
	})

	t.Run("history records successes and failures", func(t *testing.T) {
		f := newPublishFixture(t)

		result, err := f.publisher.Publish(ctx, f.request())
		require.NoError(t, err)

		f.config.Fail(testhelpers.OpCreateBlob, http.StatusInternalServerError, "blob failure")
		_, err = f.publisher.Publish(ctx, f.request())
		require.Error(t, err)

		records, err := f.store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, records, 2)
		require.Equal(t, history.StatusFailed, records[0].Status)
		require.Contains(t, records[0].Error, "blob failure")
		require.Equal(t, history.StatusPublished, records[1].Status)
		require.Equal(t, result.CommitSHA, records[1].CommitSHA)
		require.Equal(t, "test-user/demo-site", records[1].Repository)
		require.Equal(t, f.site, records[1].Directory)
	})

	t.Run("concurrent publishes never interleave", func(t *testing.T) {
		f := newPublishFixture(t)

		var wg sync.WaitGroup
		errs := make([]error, 3)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = f.publisher.Publish(ctx, f.request())
			}()
		}
		wg.Wait()
		for _, err := range errs {
			require.NoError(t, err)
		}

		// each run reads the tip before it creates a commit, so the three
		// commits form a single chain
		sha := f.config.Ref("test-user", "demo-site", "gh-pages")
		depth := 0
		for sha != "" {
			depth++
			parents := f.config.Commit(sha).Parents
			require.LessOrEqual(t, len(parents), 1)
			if len(parents) == 0 {
				break
			}
			sha = parents[0]
		}
		require.Equal(t, 3, depth)
	})
}

func TestPublishAfterQueueShutdown(t *testing.T) {
	queue := jobqueue.New(nil)
	require.NoError(t, queue.Shutdown(context.Background()))

	publisher := NewPublisher(Options{
		Client: testhelpers.NewMockGitHubClient(t, nil),
		Queue:  queue,
		Splog:  tui.NewSplogWriter(&testWriter{t: t}, false),
	})

	_, err := publisher.Publish(context.Background(), Request{RepositoryName: "demo-site", PublishDirectory: t.TempDir()})
	require.True(t, errors.Is(err, pubsiteerrors.ErrQueueClosed))
}

func TestSourceRevision(t *testing.T) {
	repo := testhelpers.NewTestGitRepo(t)
	sha, err := repo.CommitFile("src/index.md", "# hello\n", "initial")
	require.NoError(t, err)

	require.Equal(t, sha[:7], sourceRevision(repo.Dir))
	require.Empty(t, sourceRevision(t.TempDir()))

	testhelpers.WriteFiles(t, repo.Dir, map[string]string{"src/index.md": "# changed\n"})
	require.Equal(t, sha[:7]+", modified", sourceRevision(repo.Dir))

	require.Equal(t, "Deploy (source abc1234)", commitMessage("Deploy", "abc1234"))
	require.Equal(t, "Publish static site", commitMessage("", ""))
}

func TestSourceRevisionIsReadBeforeQueueing(t *testing.T) {
	ctx := context.Background()
	f := newPublishFixture(t)
	repo := testhelpers.NewTestGitRepo(t)
	first, err := repo.CommitFile("src/index.md", "# hello\n", "initial")
	require.NoError(t, err)

	// hold the worker so the publish stays queued
	started := make(chan struct{})
	release := make(chan struct{})
	blocker, err := jobqueue.Enqueue(ctx, f.publisher.opts.Queue, "blocker", func(context.Context) (struct{}, error) {
		close(started)
		<-release
		return struct{}{}, nil
	})
	require.NoError(t, err)
	<-started

	req := f.request()
	req.SourceDir = repo.Dir
	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := f.publisher.Publish(ctx, req)
		done <- outcome{result, err}
	}()
	require.Eventually(t, func() bool { return f.publisher.opts.Queue.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	_, err = repo.CommitFile("src/index.md", "# later\n", "second")
	require.NoError(t, err)
	close(release)
	_, err = blocker.Wait(ctx)
	require.NoError(t, err)

	out := <-done
	require.NoError(t, out.err)
	require.Equal(t, "Publish static site (source "+first[:7]+")", f.config.Commit(out.result.CommitSHA).Message)
}

func TestExplicitSourceRevisionIsKept(t *testing.T) {
	f := newPublishFixture(t)
	req := f.request()
	req.CommitMessage = "Deploy"
	req.SourceRevision = "v1.4.0"

	result, err := f.publisher.Publish(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "Deploy (source v1.4.0)", f.config.Commit(result.CommitSHA).Message)
}

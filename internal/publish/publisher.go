// Package publish sequences a full publish run: build the site, resolve the
// destination repository, upload the output as blobs, commit a tree of them,
// move the publish branch, and enable GitHub Pages.
//
// Runs go through a jobqueue.Queue so that at most one publish talks to
// GitHub at a time.
package publish

import (
	"context"
	"fmt"
	"os"
	"time"

	gogithub "github.com/google/go-github/v62/github"

	"pubsite.dev/pubsite/internal/build"
	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
	"pubsite.dev/pubsite/internal/github"
	"pubsite.dev/pubsite/internal/history"
	"pubsite.dev/pubsite/internal/jobqueue"
	"pubsite.dev/pubsite/internal/tui"
)

// Builder produces the site in the publish directory
type Builder interface {
	Run(ctx context.Context) (*build.Result, error)
}

// Recorder stores the outcome of each run
type Recorder interface {
	Record(ctx context.Context, rec history.Record) (history.Record, error)
}

// Options configures a Publisher
type Options struct {
	Client   *gogithub.Client
	Queue    *jobqueue.Queue
	Builder  Builder          // nil skips the build
	Reporter ProgressReporter // optional
	Recorder Recorder         // optional
	Splog    *tui.Splog

	// Concurrency bounds parallel blob uploads
	Concurrency int
}

// Publisher runs publish requests one at a time
type Publisher struct {
	opts Options
}

// NewPublisher creates a Publisher. Client and Queue are required.
func NewPublisher(opts Options) *Publisher {
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	if opts.Splog == nil {
		opts.Splog = tui.NewSplog()
	}
	return &Publisher{opts: opts}
}

// Publish validates req, queues the run, and waits for it to finish.
//
// On success the Result carries the confirmation message and Pages URL. When
// only enabling Pages fails, the branch has already been updated, so the
// Result is returned together with a PagesEnable error.
func (p *Publisher) Publish(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	// reading the worktree can be slow, so it happens outside the queue
	if req.SourceRevision == "" {
		req.SourceRevision = sourceRevision(req.SourceDir)
	}

	job, err := jobqueue.Enqueue(ctx, p.opts.Queue, "publish "+req.RepositoryName, func(ctx context.Context) (*Result, error) {
		return p.run(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	p.opts.Splog.Debug("Queued publish of %s as job %s", req.RepositoryName, job.ID)
	return job.Wait(ctx)
}

// run is one publish. A failing step ends the run; nothing already created
// remotely is rolled back, since blobs are content addressed and repository
// resolution reuses an existing repository on retry.
func (p *Publisher) run(ctx context.Context, req Request) (*Result, error) {
	r := &runner{
		Publisher: p,
		req:       req,
		started:   time.Now(),
		repo:      github.RepoRef{Name: req.RepositoryName},
	}
	result, err := r.execute(ctx)
	p.record(ctx, r, result, err)
	return result, err
}

type runner struct {
	*Publisher
	req     Request
	state   State
	started time.Time

	repo    github.RepoRef
	created bool
	blobs   []github.RemoteBlob
	commit  *github.RemoteCommit
}

// step runs fn as state s, reporting progress around it
func (r *runner) step(s State, fn func() error) error {
	r.state = s
	r.opts.Splog.Debug("publish %s: %s", r.req.RepositoryName, s)
	r.opts.Reporter.StepStarted(int(s), s.Description())
	if err := fn(); err != nil {
		r.opts.Reporter.StepFailed(int(s), err)
		return err
	}
	r.opts.Reporter.StepCompleted(int(s))
	return nil
}

func (r *runner) fail(err error) (*Result, error) {
	r.opts.Splog.Debug("publish %s failed during %s: %v", r.req.RepositoryName, r.state, err)
	return nil, err
}

func (r *runner) execute(ctx context.Context) (*Result, error) {
	client := r.opts.Client

	err := r.step(StateBuilding, func() error {
		if r.opts.Builder == nil {
			r.opts.Splog.Debug("No build command configured, publishing %s as is", r.req.PublishDirectory)
		} else {
			res, err := r.opts.Builder.Run(ctx)
			if err != nil {
				return err
			}
			r.opts.Splog.Debug("Build finished in %s", res.Duration.Round(time.Millisecond))
		}
		// nothing remote is created for a site that is not there
		return checkPublishDirectory(r.req.PublishDirectory)
	})
	if err != nil {
		return r.fail(err)
	}

	err = r.step(StateResolvingRepository, func() error {
		resolved, err := github.ResolveRepository(ctx, client, r.req.RepositoryName, github.RepositoryOptions{
			Description: r.req.Description,
			Private:     r.req.Private,
		})
		if err != nil {
			return err
		}
		r.repo = resolved.RepoRef
		r.created = resolved.Outcome == github.RepositoryCreated
		if !r.created {
			r.opts.Splog.Debug("Repository %s already exists, reusing it", r.repo.FullName())
		}
		return nil
	})
	if err != nil {
		return r.fail(err)
	}

	err = r.step(StateUploadingBlobs, func() error {
		blobs, err := github.UploadBlobs(ctx, client, r.repo.Owner, r.repo.Name, r.req.PublishDirectory, github.UploadOptions{
			Concurrency: r.opts.Concurrency,
			OnUploaded: func(done, total int, _ github.RemoteBlob) {
				r.opts.Reporter.StepProgress(int(StateUploadingBlobs), done, total)
			},
		})
		if err != nil {
			return err
		}
		r.blobs = blobs
		return nil
	})
	if err != nil {
		return r.fail(err)
	}

	err = r.step(StateAssemblingCommit, func() error {
		commit, err := github.AssembleCommit(ctx, client, r.repo.Owner, r.repo.Name, r.blobs, r.req.Branch, github.CommitOptions{
			Message: commitMessage(r.req.CommitMessage, r.req.SourceRevision),
			Clean:   r.req.Clean,
		})
		if err != nil {
			return err
		}
		r.commit = commit
		return nil
	})
	if err != nil {
		return r.fail(err)
	}

	err = r.step(StateUpdatingRef, func() error {
		outcome, err := github.UpdateBranchRef(ctx, client, r.repo.Owner, r.repo.Name, r.req.Branch, r.commit.SHA)
		if err != nil {
			return err
		}
		if outcome == github.RefCreated {
			r.opts.Splog.Debug("Created branch %s", r.req.Branch)
		}
		return nil
	})
	if err != nil {
		return r.fail(err)
	}

	result := r.result()

	err = r.step(StateEnablingPages, func() error {
		pages, err := github.EnablePages(ctx, client, r.repo.Owner, r.repo.Name, r.req.Branch, r.opts.Splog.Logger())
		if err != nil {
			return err
		}
		result.Pages = pages
		result.PagesURL = pages.URL
		return nil
	})
	result.Duration = time.Since(r.started)
	if err != nil {
		// the branch already moved; the caller still gets the published result
		result.State = StateFailed
		return result, err
	}

	result.State = StateDone
	return result, nil
}

func (r *runner) result() *Result {
	res := &Result{
		Message:            successMessage(r.repo, r.req.Branch),
		RepositoryFullName: r.repo.FullName(),
		PagesURL:           github.PagesURL(r.repo.Owner, r.repo.Name),
		Branch:             r.req.Branch,
		CommitSHA:          r.commit.SHA,
		Files:              len(r.blobs),
		RepositoryCreated:  r.created,
	}
	if len(r.commit.ParentSHAs) > 0 {
		res.ParentSHA = r.commit.ParentSHAs[0]
	}
	return res
}

// record hands the outcome to the Recorder. Recording problems never fail the publish.
func (p *Publisher) record(ctx context.Context, r *runner, result *Result, err error) {
	if p.opts.Recorder == nil {
		return
	}

	rec := history.Record{
		Repository:  r.repo.FullName(),
		Directory:   r.req.PublishDirectory,
		Branch:      r.req.Branch,
		PublishedAt: r.started,
		Status:      history.StatusPublished,
	}
	if r.repo.Owner == "" {
		rec.Repository = r.req.RepositoryName
	}
	if result != nil {
		rec.CommitSHA = result.CommitSHA
		rec.PagesURL = result.PagesURL
	}
	if err != nil {
		rec.Error = err.Error()
		rec.Status = history.StatusFailed
		if result != nil && pubsiteerrors.KindOf(err) == pubsiteerrors.KindPagesEnable {
			rec.Status = history.StatusPagesUnconfirmed
		}
	}

	// a cancelled run is still worth recording
	if _, recErr := p.opts.Recorder.Record(context.WithoutCancel(ctx), rec); recErr != nil {
		p.opts.Splog.Warn("Could not record publish history: %v", recErr)
	}
}

// checkPublishDirectory fails with a BuildFailure when dir is missing or not a directory
func checkPublishDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		err = fmt.Errorf("%s is not a directory", dir)
	}
	if err != nil {
		pubErr := pubsiteerrors.NewPublishError(pubsiteerrors.KindBuild, "", err)
		pubErr.Detail = "no publish directory at " + dir
		return pubErr
	}
	return nil
}

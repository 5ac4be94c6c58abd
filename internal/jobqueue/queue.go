// Package jobqueue provides a FIFO queue drained by a single worker goroutine.
//
// At most one task runs at any instant per Queue. Pubsite builds exactly one
// Queue per process and routes every publish through it, so two publish runs
// never interleave their calls against the same remote branch.
package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	pubsiteerrors "pubsite.dev/pubsite/internal/errors"
)

// entry is a type-erased pending job
type entry struct {
	id   string
	name string
	run  func()
}

// Queue serializes tasks in enqueue order
type Queue struct {
	mu       sync.Mutex
	pending  []*entry
	draining bool
	closed   bool

	wake   chan struct{}
	exited chan struct{}
	logger *slog.Logger
}

// New creates a queue and starts its worker. Call Shutdown to stop it.
func New(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		wake:   make(chan struct{}, 1),
		exited: make(chan struct{}),
		logger: logger,
	}
	go q.work()
	return q
}

// Job is the handle returned by Enqueue. It settles exactly once.
type Job[T any] struct {
	ID   string
	Name string

	done  chan struct{}
	value T
	err   error
}

// Done is closed once the job's task has settled
func (j *Job[T]) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the task settles and returns its outcome.
// If ctx ends first, Wait returns ctx.Err(); the job itself keeps its place in the queue.
func (j *Job[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-j.done:
		return j.value, j.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Enqueue appends task to q. The task receives ctx when its turn comes.
func Enqueue[T any](ctx context.Context, q *Queue, name string, task func(ctx context.Context) (T, error)) (*Job[T], error) {
	job := &Job[T]{
		ID:   uuid.NewString(),
		Name: name,
		done: make(chan struct{}),
	}

	e := &entry{
		id:   job.ID,
		name: name,
		run: func() {
			defer close(job.done)
			defer func() {
				if r := recover(); r != nil {
					job.err = fmt.Errorf("job %q panicked: %v", name, r)
				}
			}()
			job.value, job.err = task(ctx)
		},
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, pubsiteerrors.ErrQueueClosed
	}
	q.pending = append(q.pending, e)
	depth := len(q.pending)
	q.mu.Unlock()

	q.logger.Debug("job enqueued", "job", job.ID, "name", name, "depth", depth)
	q.signal()
	return job, nil
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// next pops the head job. It returns nil when the queue is empty, clearing the draining flag.
func (q *Queue) next() (*entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		q.draining = false
		return nil, q.closed
	}
	e := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.draining = true
	return e, false
}

func (q *Queue) work() {
	defer close(q.exited)
	for range q.wake {
		for {
			e, stop := q.next()
			if e == nil {
				if stop {
					return
				}
				break
			}
			q.logger.Debug("job started", "job", e.id, "name", e.name)
			e.run()
			q.logger.Debug("job settled", "job", e.id, "name", e.name)
		}
	}
}

// Len returns the number of jobs waiting to start
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Busy reports whether the worker is currently draining
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draining
}

// Shutdown stops accepting jobs, lets already queued jobs finish, and waits for
// the worker to exit or ctx to end. It is safe to call more than once.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()

	select {
	case <-q.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

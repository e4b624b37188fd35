// Package queue runs import and export jobs on a fixed pool of in-process
// workers.
//
// Tasks are fire-and-forget: a failed or panicking run is logged and never
// retried. Enqueue never blocks; when the buffer is full the task is
// rejected with ErrQueueFull and the caller decides what to tell the user.
// Stop stops accepting tasks and waits for the buffered ones to finish.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrQueueFull is returned when the task buffer has no free slot.
	ErrQueueFull = errors.New("queue is full")
	// ErrStopped is returned after Stop has been called.
	ErrStopped = errors.New("queue is stopped")
)

// DefaultWorkers is used when a non-positive worker count is configured.
const DefaultWorkers = 2

// DefaultBuffer is used when a non-positive buffer size is configured.
const DefaultBuffer = 256

// Runner executes pipeline runs.
type Runner interface {
	RunImportJob(ctx context.Context, id uuid.UUID, dryRun, raiseErrors bool) error
	RunExportJob(ctx context.Context, id uuid.UUID) error
}

// Kind is the pipeline a task runs.
type Kind string

const (
	KindImport Kind = "import"
	KindExport Kind = "export"
)

type task struct {
	kind        Kind
	id          uuid.UUID
	dryRun      bool
	raiseErrors bool
}

// Queue is a bounded task buffer drained by a worker pool.
type Queue struct {
	workers int
	tasks   chan task

	mu        sync.Mutex
	accepting bool
	group     *errgroup.Group

	active    atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// New creates a queue. Tasks may be enqueued before Start.
func New(workers, buffer int) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Queue{
		workers:   workers,
		tasks:     make(chan task, buffer),
		accepting: true,
	}
}

// EnqueueImport schedules an import run.
func (q *Queue) EnqueueImport(id uuid.UUID, dryRun, raiseErrors bool) error {
	return q.enqueue(task{kind: KindImport, id: id, dryRun: dryRun, raiseErrors: raiseErrors})
}

// EnqueueExport schedules an export run.
func (q *Queue) EnqueueExport(id uuid.UUID) error {
	return q.enqueue(task{kind: KindExport, id: id})
}

func (q *Queue) enqueue(t task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.accepting {
		return ErrStopped
	}
	select {
	case q.tasks <- t:
		slog.Debug("task enqueued", "kind", t.kind, "job", t.id, "dry_run", t.dryRun)
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the workers. Runs are detached from ctx cancellation: once
// started, a run proceeds to completion or a terminal error.
func (q *Queue) Start(ctx context.Context, runner Runner) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.group != nil {
		return
	}

	runCtx := context.WithoutCancel(ctx)
	g := new(errgroup.Group)
	for i := 0; i < q.workers; i++ {
		worker := i
		g.Go(func() error {
			for t := range q.tasks {
				q.run(runCtx, runner, worker, t)
			}
			return nil
		})
	}
	q.group = g

	slog.Info("job queue started", "workers", q.workers, "buffer", cap(q.tasks))
}

// run executes one task, converting a panic into a logged failure.
func (q *Queue) run(ctx context.Context, runner Runner, worker int, t task) {
	q.active.Add(1)
	defer q.active.Add(-1)

	log := slog.With("worker", worker, "kind", t.kind, "job", t.id)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				log.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
			}
		}()
		switch t.kind {
		case KindImport:
			return runner.RunImportJob(ctx, t.id, t.dryRun, t.raiseErrors)
		case KindExport:
			return runner.RunExportJob(ctx, t.id)
		default:
			return fmt.Errorf("unknown task kind %q", t.kind)
		}
	}()

	if err != nil {
		q.failed.Add(1)
		log.Error("task failed", "error", err)
		return
	}
	q.completed.Add(1)
}

// Stop stops accepting tasks and waits until the buffered tasks have run or
// ctx is done.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.accepting {
		q.accepting = false
		close(q.tasks)
	}
	g := q.group
	q.mu.Unlock()

	if g == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("job queue drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats is a snapshot of queue activity.
type Stats struct {
	Workers   int   `json:"workers"`
	Pending   int   `json:"pending"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Stats returns the current queue state for monitoring.
func (q *Queue) Stats() Stats {
	return Stats{
		Workers:   q.workers,
		Pending:   len(q.tasks),
		Active:    q.active.Load(),
		Completed: q.completed.Load(),
		Failed:    q.failed.Load(),
	}
}

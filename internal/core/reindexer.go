package core

// reindexer.go runs full-sheet index rebuilds on a fixed pool of workers.
//
// Structural edits submit a job after releasing the write lock and return
// without waiting. Between the edit and the end of its rebuild the sheet's
// index is stale: Sheet.IndexStale reports it and WaitIdle waits it out.
//
// Jobs are deduplicated while queued. A job resubmitted after a worker has
// picked it up is queued again, so the last rebuild to start always observes
// the last structural edit and the index converges.

import (
	"context"
	"log/slog"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/gridedit/internal/logging"
)

// DefaultReindexWorkers is the pool size used when none is configured.
const DefaultReindexWorkers = 2

// DefaultReindexPollInterval is how often WaitIdle re-checks the queue.
const DefaultReindexPollInterval = 10 * time.Millisecond

// ReindexJob names one sheet of one document session.
type ReindexJob struct {
	Session string
	SheetID string
}

// RebuildFunc performs a job. It must tolerate jobs whose sheet or session no
// longer exists.
type RebuildFunc func(ctx context.Context, job ReindexJob)

// Reindexer is a bounded pool of rebuild workers fed by an unbounded,
// deduplicated queue.
type Reindexer struct {
	rebuild      RebuildFunc
	workers      int
	pollInterval time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	queue   []ReindexJob
	pending mapset.Set[ReindexJob]
	running int

	notify chan struct{}
}

// NewReindexer returns a pool of workers calling rebuild. Call Run to start it.
func NewReindexer(workers int, pollInterval time.Duration, rebuild RebuildFunc) *Reindexer {
	if workers <= 0 {
		workers = DefaultReindexWorkers
	}
	if pollInterval <= 0 {
		pollInterval = DefaultReindexPollInterval
	}
	return &Reindexer{
		rebuild:      rebuild,
		workers:      workers,
		pollInterval: pollInterval,
		logger:       logging.Component("reindexer"),
		pending:      mapset.NewThreadUnsafeSet[ReindexJob](),
		notify:       make(chan struct{}, 1),
	}
}

// Submit queues jobs and returns immediately.
func (r *Reindexer) Submit(jobs ...ReindexJob) {
	r.mu.Lock()
	for _, job := range jobs {
		if r.pending.Contains(job) {
			continue
		}
		r.pending.Add(job)
		r.queue = append(r.queue, job)
	}
	depth := len(r.queue)
	r.mu.Unlock()

	reindexQueueDepth.Set(float64(depth))
	r.signal()
}

func (r *Reindexer) signal() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// next pops a job and marks it running.
func (r *Reindexer) next() (ReindexJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.queue) == 0 {
		return ReindexJob{}, false
	}
	job := r.queue[0]
	r.queue = r.queue[1:]
	r.pending.Remove(job)
	r.running++
	reindexQueueDepth.Set(float64(len(r.queue)))

	// wake another idle worker for the rest of the queue
	if len(r.queue) > 0 {
		r.signal()
	}
	return job, true
}

func (r *Reindexer) finish() {
	r.mu.Lock()
	r.running--
	r.mu.Unlock()
}

// Run starts the workers and blocks until ctx is cancelled. Jobs still queued
// at that point are dropped.
func (r *Reindexer) Run(ctx context.Context) error {
	r.logger.Info("reindexer started", "workers", r.workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			r.work(gctx)
			return nil
		})
	}
	err := g.Wait()

	r.logger.Info("reindexer stopped")
	return err
}

func (r *Reindexer) work(ctx context.Context) {
	for {
		job, ok := r.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-r.notify:
				continue
			}
		}

		r.rebuild(ctx, job)
		r.finish()

		if ctx.Err() != nil {
			return
		}
	}
}

// Pending returns the number of jobs queued or running.
func (r *Reindexer) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue) + r.running
}

// WaitIdle blocks until no job is queued or running, or ctx is done. It only
// returns nil while Run is active or nothing was ever submitted.
func (r *Reindexer) WaitIdle(ctx context.Context) error {
	if r.Pending() == 0 {
		return nil
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.Pending() == 0 {
				return nil
			}
		}
	}
}

// Package queue runs pipeline jobs on a bounded in-process worker pool.
// At most one job per call id is queued or running at any time, so a
// duplicate upload trigger cannot interleave writes with a run already in
// flight.
package queue

import (
	"context"
	"sync"
	"time"

	"finecho-go/internal/logger"
	"finecho-go/internal/metrics"
)

// Job is one unit of work keyed by call id.
type Job struct {
	CallID string
	Work   func(context.Context)
}

// Queue is a bounded job queue with a fixed worker pool and a per-call-id
// in-flight guard.
type Queue struct {
	jobs        chan Job
	workerCount int
	jobTimeout  time.Duration

	mu       sync.Mutex
	started  bool
	inflight map[string]bool

	wg  sync.WaitGroup
	log *logger.Logger
}

// New creates a queue with the given capacity, worker count, and per-job
// timeout. The timeout bounds a whole pipeline run.
func New(capacity, workerCount int, jobTimeout time.Duration) *Queue {
	return &Queue{
		jobs:        make(chan Job, capacity),
		workerCount: workerCount,
		jobTimeout:  jobTimeout,
		inflight:    map[string]bool{},
		log:         logger.New(),
	}
}

// Start launches the worker pool. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Enqueue queues a job unless the queue is full, not started, or a job for
// the same call id is already in flight. Returns false when rejected.
func (q *Queue) Enqueue(j Job) bool {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		q.log.WithField("call_id", j.CallID).Warn("enqueue before queue start")
		return false
	}
	if q.inflight[j.CallID] {
		q.mu.Unlock()
		metrics.DuplicateRuns.Inc()
		q.log.WithField("call_id", j.CallID).Warn("run already in flight, suppressing duplicate")
		return false
	}
	// The send stays under the lock (it never blocks) so Stop cannot close
	// the channel between the started check and the send.
	select {
	case q.jobs <- j:
		q.inflight[j.CallID] = true
		q.mu.Unlock()
		metrics.QueueDepth.Inc()
		return true
	default:
		q.mu.Unlock()
		q.log.WithField("call_id", j.CallID).Warn("job queue full, dropping job")
		return false
	}
}

// InFlight reports whether a job for the call id is queued or running.
func (q *Queue) InFlight(callID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inflight[callID]
}

// Stop stops accepting jobs and waits for workers to drain, or until the
// context is done.
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		q.log.Warn("queue stop timed out before workers drained")
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q.jobs:
			if !ok {
				return
			}
			metrics.QueueDepth.Dec()
			q.runJob(ctx, j)
		}
	}
}

func (q *Queue) runJob(ctx context.Context, j Job) {
	defer q.release(j.CallID)
	jobCtx := ctx
	if q.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, q.jobTimeout)
		defer cancel()
	}
	j.Work(jobCtx)
}

func (q *Queue) release(callID string) {
	q.mu.Lock()
	delete(q.inflight, callID)
	q.mu.Unlock()
}

package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"
)

// ErrQueueFull is returned when the job buffer has no room; callers
// should surface it as backpressure rather than blocking uploads.
var ErrQueueFull = errors.New("enrichment queue is full")

// ErrQueueClosed is returned when enqueueing after shutdown.
var ErrQueueClosed = errors.New("enrichment queue is closed")

// Job is one pending enrichment run.
type Job struct {
	PhotoID string
	OwnerID string
	Image   []byte
}

// Queue feeds enrichment jobs to a fixed pool of workers.
type Queue struct {
	orch    *Orchestrator
	jobs    chan Job
	workers int

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue creates a queue with the given worker count and buffer size.
func NewQueue(orch *Orchestrator, workers, size int) *Queue {
	if workers <= 0 {
		workers = 4
	}
	if size <= 0 {
		size = 256
	}
	return &Queue{
		orch:    orch,
		jobs:    make(chan Job, size),
		workers: workers,
	}
}

// Start launches the workers. They exit when the queue is stopped or the
// context is cancelled.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case job, ok := <-q.jobs:
					if !ok {
						return
					}
					if _, err := q.orch.Enrich(ctx, job.PhotoID, job.OwnerID, job.Image); err != nil {
						log.Printf("pipeline: enrichment failed for photo %s: %v", job.PhotoID, err)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

// Enqueue submits a job without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}

package run

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the worker pool size used when none is configured.
const DefaultWorkers = 10

// WorkerPool bounds the number of tasks running at once.
type WorkerPool struct {
	sem  *semaphore.Weighted
	size int
}

// NewWorkerPool creates a pool running at most size tasks concurrently.
// A size below one uses DefaultWorkers.
func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = DefaultWorkers
	}
	return &WorkerPool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Size returns the maximum number of concurrent tasks.
func (p *WorkerPool) Size() int {
	return p.size
}

// Submit waits for a free worker and runs fn on it. It returns ctx's
// error if ctx is done before a worker frees up, in which case fn never
// runs.
func (p *WorkerPool) Submit(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	go func() {
		defer p.sem.Release(1)
		fn()
	}()
	return nil
}

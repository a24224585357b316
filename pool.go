package datapipe

import (
	"fmt"

	"github.com/panjf2000/ants/v2"
)

// workerPool lazily allocates a bounded ants pool for an operator that runs
// transforms concurrently, and releases it once the operator drains, fails
// or resets. A released pool is re-allocated on the next submit, so a reset
// or reloaded operator keeps working without holding idle goroutines.
type workerPool struct {
	size int
	pool *ants.Pool
}

// submit schedules task on the pool, blocking until a worker is free.
func (w *workerPool) submit(task func()) error {
	if w.pool == nil {
		pool, err := ants.NewPool(w.size)
		if err != nil {
			return fmt.Errorf("%w: cannot allocate a pool of %d workers: %v", ErrPipeline, w.size, err)
		}
		w.pool = pool
	}
	if err := w.pool.Submit(task); err != nil {
		return fmt.Errorf("%w: cannot submit to the worker pool: %v", ErrPipeline, err)
	}
	return nil
}

// release frees the pool's goroutines. Safe to call on an idle wrapper.
func (w *workerPool) release() {
	if w.pool != nil {
		w.pool.Release()
		w.pool = nil
	}
}

package aggregate

import (
	"context"
	"sync"
)

// WorkerPool limits concurrent upstream requests across both sources.
type WorkerPool struct {
	sem chan struct{}
}

// NewWorkerPool creates a new worker pool with the given size.
func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = 4
	}
	return &WorkerPool{
		sem: make(chan struct{}, size),
	}
}

// Release returns a worker slot to the pool.
func (p *WorkerPool) Release() {
	<-p.sem
}

// RunContext executes fn with pool semaphore held, respecting context cancellation.
// Returns ctx.Err() if context is cancelled while waiting to acquire.
func (p *WorkerPool) RunContext(ctx context.Context, fn func()) error {
	select {
	case p.sem <- struct{}{}:
		defer p.Release()
		fn()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go runs fn on a new goroutine once a slot frees up. fn receives the
// context error instead of running when ctx is cancelled first.
func (p *WorkerPool) Go(ctx context.Context, wg *sync.WaitGroup, fn func(err error)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.RunContext(ctx, func() { fn(nil) }); err != nil {
			fn(err)
		}
	}()
}

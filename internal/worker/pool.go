package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Pool runs indexed tasks on a fixed number of workers
type Pool struct {
	workers int
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Workers returns the concurrency limit
func (p *Pool) Workers() int {
	return p.workers
}

// Run calls task for every index in [0, n). Workers pull the next index from
// a shared cursor until it is exhausted or ctx is done, so at most
// p.workers tasks run at once. Run returns once every started task returns.
// Tasks own slot i of whatever they write to.
func (p *Pool) Run(ctx context.Context, n int, task func(ctx context.Context, i int)) {
	if n <= 0 {
		return
	}

	workers := p.workers
	if workers > n {
		workers = n
	}

	var cursor atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				i := int(cursor.Add(1) - 1)
				if i >= n {
					return
				}
				task(ctx, i)
			}
		}()
	}
	wg.Wait()
}

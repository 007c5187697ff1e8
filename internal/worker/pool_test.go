package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewPool(t *testing.T) {
	p1 := NewPool(5)
	if p1.Workers() != 5 {
		t.Errorf("expected 5 workers, got %d", p1.Workers())
	}

	p2 := NewPool(0)
	if p2.Workers() != 1 {
		t.Errorf("expected default 1 worker for 0 input, got %d", p2.Workers())
	}

	p3 := NewPool(-1)
	if p3.Workers() != 1 {
		t.Errorf("expected default 1 worker for negative input, got %d", p3.Workers())
	}
}

func TestPool_RunsEveryIndexOnce(t *testing.T) {
	const n = 100
	var counts [n]int32

	NewPool(7).Run(context.Background(), n, func(_ context.Context, i int) {
		atomic.AddInt32(&counts[i], 1)
	})

	for i, c := range counts {
		if c != 1 {
			t.Errorf("index %d ran %d times", i, c)
		}
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	var active, peak int32
	var mu sync.Mutex

	NewPool(3).Run(context.Background(), 20, func(_ context.Context, _ int) {
		cur := atomic.AddInt32(&active, 1)
		mu.Lock()
		if cur > peak {
			peak = cur
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	})

	if peak > 3 {
		t.Errorf("expected at most 3 concurrent tasks, saw %d", peak)
	}
	if peak < 2 {
		t.Errorf("expected tasks to overlap, peak was %d", peak)
	}
}

func TestPool_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran int32

	NewPool(1).Run(ctx, 50, func(_ context.Context, i int) {
		if atomic.AddInt32(&ran, 1) == 3 {
			cancel()
		}
	})

	if got := atomic.LoadInt32(&ran); got != 3 {
		t.Errorf("expected 3 tasks before cancellation, got %d", got)
	}
}

func TestPool_EmptyRun(t *testing.T) {
	called := false
	NewPool(4).Run(context.Background(), 0, func(context.Context, int) { called = true })
	if called {
		t.Error("task must not run for n=0")
	}
}

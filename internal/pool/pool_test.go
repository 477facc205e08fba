package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Workers: 0}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for 0 workers")
	}
	if _, err := New(Config{Workers: 65}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for too many workers")
	}
	p, err := New(Config{Workers: 1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cap(p.jobs) == 0 {
		t.Fatalf("expected defaulted queue depth")
	}
}

func TestPool_RunsJobsAndDrainsOnStop(t *testing.T) {
	p, err := New(Config{Workers: 2, QueueDepth: 16}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Start(context.Background())

	var ran int32
	for i := 0; i < 10; i++ {
		ok := p.Enqueue(Job{Name: "inc", Run: func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}})
		if !ok {
			t.Fatalf("enqueue %d rejected", i)
		}
	}

	p.Stop()
	if got := atomic.LoadInt32(&ran); got != 10 {
		t.Fatalf("expected all 10 jobs drained before Stop returned, got %d", got)
	}
}

func TestPool_RetriesUntilSuccess(t *testing.T) {
	p, err := New(Config{Workers: 1, MaxRetries: 2, RetryBase: time.Millisecond}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Start(context.Background())

	var calls int32
	p.Enqueue(Job{Name: "flaky", Run: func(context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}})

	p.Stop()
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestPool_EnqueueFullQueueDrops(t *testing.T) {
	p, err := New(Config{Workers: 1, QueueDepth: 1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Not started: the queue can only hold one job.
	if !p.Enqueue(Job{Name: "a", Run: func(context.Context) error { return nil }}) {
		t.Fatalf("first enqueue should succeed")
	}
	if p.Enqueue(Job{Name: "b", Run: func(context.Context) error { return nil }}) {
		t.Fatalf("second enqueue should be dropped")
	}
}

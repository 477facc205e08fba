// Package pool provides a small bounded worker pool for fire-and-forget work
// queued off the request path, such as persisting an observed chat migration
// after the response has already been written.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Job is a unit of background work. Returning an error triggers an inline
// retry with backoff.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Config holds worker pool configuration.
type Config struct {
	Workers    int
	QueueDepth int
	MaxRetries int
	RetryBase  time.Duration
}

// Pool executes queued jobs on a fixed set of workers. Enqueue never blocks
// the caller; a full queue drops the job, which is acceptable for the
// best-effort work this pool carries.
type Pool struct {
	cfg      Config
	jobs     chan Job
	log      zerolog.Logger
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a Pool with the given config.
func New(cfg Config, log zerolog.Logger) (*Pool, error) {
	if cfg.Workers < 1 || cfg.Workers > 64 {
		return nil, fmt.Errorf("POOL_WORKERS must be 1-64, got %d", cfg.Workers)
	}
	if cfg.QueueDepth < 1 {
		cfg.QueueDepth = 256
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	return &Pool{
		cfg:  cfg,
		jobs: make(chan Job, cfg.QueueDepth),
		log:  log,
	}, nil
}

// Start launches the worker goroutines. ctx controls worker lifetime.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Enqueue attempts a non-blocking send. Returns false if the buffer is full.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.jobs <- job:
		return true
	default:
		p.log.Warn().Str("job", job.Name).Msg("background job dropped: queue full")
		return false
	}
}

// Stop closes the job channel and waits for all workers to drain.
// Safe to call only once.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.log.With().Int("worker_id", id).Logger()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.runWithRetry(ctx, job, log)
		}
	}
}

// runWithRetry executes the job inline with linear backoff between attempts.
func (p *Pool) runWithRetry(ctx context.Context, job Job, log zerolog.Logger) {
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * p.cfg.RetryBase):
			}
		}
		if err := job.Run(ctx); err != nil {
			if attempt < p.cfg.MaxRetries {
				continue
			}
			log.Error().Err(err).Str("job", job.Name).
				Int("max_retries", p.cfg.MaxRetries).Msg("background job failed")
			return
		}
		return
	}
}

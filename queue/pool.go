package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Handler processes one job. Returning nil acks the job. Returning a
// RetryError nacks it for redelivery after the requested delay. Any other
// error is terminal: the job is logged and acked so it never loops.
type Handler func(ctx context.Context, job *Job) error

// PoolConfig holds worker pool configuration.
type PoolConfig struct {
	// Name is the job name this pool consumes.
	Name string

	// Concurrency is the number of jobs processed simultaneously.
	Concurrency int

	// PollInterval is how often the pool checks for due jobs.
	PollInterval time.Duration

	// BatchSize is the maximum number of jobs claimed per poll cycle.
	BatchSize int
}

// Pool is a bounded-concurrency consumer for one job name.
type Pool struct {
	queue   Queue
	handler Handler
	config  PoolConfig
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a worker pool draining jobs with cfg.Name from q.
func NewPool(q Queue, handler Handler, cfg PoolConfig, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = cfg.Concurrency
	}
	return &Pool{
		queue:   q,
		handler: handler,
		config:  cfg,
		logger:  logger,
	}
}

// Start begins the poll loop.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.pollLoop(ctx)
	}()
}

// Stop cancels the poll loop and waits for in-flight jobs to complete.
func (p *Pool) Stop(_ context.Context) {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// pollLoop periodically claims due jobs and dispatches them to workers.
func (p *Pool) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, p.config.Concurrency)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch, err := p.queue.Dequeue(ctx, p.config.Name, p.config.BatchSize)
			if err != nil {
				p.logger.ErrorContext(ctx, "dequeue failed",
					"job_name", p.config.Name, "error", err)
				continue
			}

			for _, job := range batch {
				select {
				case <-ctx.Done():
					return
				case sem <- struct{}{}:
				}

				p.wg.Add(1)
				go func(j *Job) {
					defer p.wg.Done()
					defer func() { <-sem }()
					p.process(ctx, j)
				}(job)
			}
		}
	}
}

// process runs the handler and settles the job with the queue.
func (p *Pool) process(ctx context.Context, job *Job) {
	err := p.handler(ctx, job)
	if err == nil {
		if ackErr := p.queue.Ack(ctx, job); ackErr != nil {
			p.logger.ErrorContext(ctx, "ack failed",
				"job_id", job.ID, "job_name", job.Name, "error", ackErr)
		}
		return
	}

	var retry *RetryError
	if errors.As(err, &retry) {
		p.logger.DebugContext(ctx, "job redelivery scheduled",
			"job_id", job.ID, "job_name", job.Name,
			"delay", retry.Delay, "error", retry.Err)
		if nackErr := p.queue.Nack(ctx, job, retry.Delay); nackErr != nil {
			p.logger.ErrorContext(ctx, "nack failed",
				"job_id", job.ID, "job_name", job.Name, "error", nackErr)
		}
		return
	}

	// Terminal failure: surfaced for operators, never retried by the pool.
	p.logger.ErrorContext(ctx, "job failed permanently",
		"job_id", job.ID, "job_name", job.Name, "error", err)
	if ackErr := p.queue.Ack(ctx, job); ackErr != nil {
		p.logger.ErrorContext(ctx, "ack failed",
			"job_id", job.ID, "job_name", job.Name, "error", ackErr)
	}
}

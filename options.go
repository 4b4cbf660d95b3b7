package hookline

import (
	"log/slog"
	"time"

	"github.com/hookline/hookline/observability"
	"github.com/hookline/hookline/queue"
	"github.com/hookline/hookline/store"
)

// Hookline is the root webhook relay engine.
type Hookline struct {
	config    Config
	store     store.Store
	queue     queue.Queue
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	logger    *slog.Logger
	services  services
	started   bool
}

// Option configures a Hookline instance.
type Option func(*Hookline) error

// New creates a new Hookline with the given options. A store and a queue
// are required; everything else has defaults.
func New(opts ...Option) (*Hookline, error) {
	hl := &Hookline{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(hl); err != nil {
			return nil, err
		}
	}
	if hl.store == nil {
		return nil, ErrNoStore
	}
	if hl.queue == nil {
		return nil, ErrNoQueue
	}
	hl.wireServices()
	return hl, nil
}

// WithStore sets the persistence backend for the Hookline instance.
func WithStore(s store.Store) Option {
	return func(hl *Hookline) error {
		hl.store = s
		return nil
	}
}

// WithQueue sets the durable job queue backing the relay pipeline.
func WithQueue(q queue.Queue) Option {
	return func(hl *Hookline) error {
		hl.queue = q
		return nil
	}
}

// WithLogger sets the structured logger for the Hookline instance.
func WithLogger(logger *slog.Logger) Option {
	return func(hl *Hookline) error {
		hl.logger = logger
		return nil
	}
}

// WithMetrics sets the metric instruments recorded by the pipeline.
func WithMetrics(m *observability.Metrics) Option {
	return func(hl *Hookline) error {
		hl.metrics = m
		return nil
	}
}

// WithTracer sets the tracer used on the delivery path.
func WithTracer(t *observability.Tracer) Option {
	return func(hl *Hookline) error {
		hl.tracer = t
		return nil
	}
}

// WithRouterConcurrency sets the number of routing worker goroutines.
func WithRouterConcurrency(n int) Option {
	return func(hl *Hookline) error {
		hl.config.RouterConcurrency = n
		return nil
	}
}

// WithDeliveryConcurrency sets the number of delivery worker goroutines.
func WithDeliveryConcurrency(n int) Option {
	return func(hl *Hookline) error {
		hl.config.DeliveryConcurrency = n
		return nil
	}
}

// WithPollInterval sets how often the worker pools check for due jobs.
func WithPollInterval(d time.Duration) Option {
	return func(hl *Hookline) error {
		hl.config.PollInterval = d
		return nil
	}
}

// WithBatchSize sets the maximum number of jobs dequeued per poll cycle.
func WithBatchSize(n int) Option {
	return func(hl *Hookline) error {
		hl.config.BatchSize = n
		return nil
	}
}

// WithDefaultMaxRetries sets the retry budget applied to subscriptions
// created without one.
func WithDefaultMaxRetries(n int) Option {
	return func(hl *Hookline) error {
		hl.config.DefaultMaxRetries = n
		return nil
	}
}

// WithDefaultTimeout sets the per-delivery HTTP timeout applied to
// subscriptions created without one.
func WithDefaultTimeout(d time.Duration) Option {
	return func(hl *Hookline) error {
		hl.config.DefaultTimeout = d
		return nil
	}
}

// WithShutdownTimeout sets the maximum time to wait for in-flight jobs on
// shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(hl *Hookline) error {
		hl.config.ShutdownTimeout = d
		return nil
	}
}

// WithCacheTTL sets the TTL for the catalog's in-memory definition cache.
func WithCacheTTL(d time.Duration) Option {
	return func(hl *Hookline) error {
		hl.config.CacheTTL = d
		return nil
	}
}

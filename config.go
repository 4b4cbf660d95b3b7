package hookline

import "time"

// Config holds the configuration for a Hookline instance.
type Config struct {
	// RouterConcurrency is the number of routing worker goroutines.
	RouterConcurrency int

	// DeliveryConcurrency is the number of delivery worker goroutines.
	// Deliveries block on external network I/O, so this is higher than
	// the router pool.
	DeliveryConcurrency int

	// PollInterval is how often the worker pools check for due jobs.
	PollInterval time.Duration

	// BatchSize is the maximum number of jobs dequeued per poll cycle.
	BatchSize int

	// DefaultMaxRetries is applied to subscriptions created without an
	// explicit retry budget. Valid range is 1..10.
	DefaultMaxRetries int

	// DefaultTimeout is applied to subscriptions created without an explicit
	// per-delivery HTTP timeout. Valid range is 1s..30s.
	DefaultTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for in-flight jobs on stop.
	ShutdownTimeout time.Duration

	// CacheTTL is the TTL for the catalog's in-memory definition cache.
	// Set to 0 to disable caching.
	CacheTTL time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RouterConcurrency:   5,
		DeliveryConcurrency: 10,
		PollInterval:        250 * time.Millisecond,
		BatchSize:           50,
		DefaultMaxRetries:   3,
		DefaultTimeout:      10 * time.Second,
		ShutdownTimeout:     30 * time.Second,
		CacheTTL:            30 * time.Second,
	}
}

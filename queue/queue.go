// Package queue defines the durable job queue contract consumed by the
// ingestion gate, router, and delivery worker, plus the bounded-concurrency
// worker pool that drains it.
//
// The queue guarantees at-least-once execution: a claimed job that is never
// acked becomes visible again after its claim deadline. Duplicate execution
// is tolerated by the consumers (delivery log writes are append-style per
// attempt, and ingestion is idempotency-keyed).
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrJobNotFound is returned when acking or nacking a job the queue no
// longer holds a claim for.
var ErrJobNotFound = errors.New("hookline: job not found")

// Job is a named unit of work with an opaque payload and an earliest
// execution time.
type Job struct {
	// ID is the unique job identity.
	ID string `json:"id"`

	// Name routes the job to a handler (e.g. "event.route").
	Name string `json:"name"`

	// Payload is the handler-specific JSON document.
	Payload json.RawMessage `json:"payload"`

	// RunAt is the earliest time the job may execute.
	RunAt time.Time `json:"run_at"`

	// EnqueuedAt is when the job was submitted.
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue is the durable job queue contract.
type Queue interface {
	// Enqueue submits a single job.
	Enqueue(ctx context.Context, job *Job) error

	// EnqueueBatch submits multiple jobs as one atomic batch, so a crash
	// mid-fan-out never leaves a partial set.
	EnqueueBatch(ctx context.Context, jobs []*Job) error

	// Dequeue claims up to limit due jobs with the given name. Claimed jobs
	// are invisible to other consumers until acked, nacked, or their claim
	// deadline passes.
	Dequeue(ctx context.Context, name string, limit int) ([]*Job, error)

	// Ack marks a claimed job as done and removes it.
	Ack(ctx context.Context, job *Job) error

	// Nack releases a claimed job for redelivery after the given delay.
	Nack(ctx context.Context, job *Job, delay time.Duration) error
}

// RetryError wraps a handler error to request redelivery of the same job
// after a delay. Any other handler error is terminal for the job.
type RetryError struct {
	Delay time.Duration
	Err   error
}

func (e *RetryError) Error() string {
	return "queue: retry after " + e.Delay.String() + ": " + e.Err.Error()
}

func (e *RetryError) Unwrap() error { return e.Err }

// Retry wraps err so the worker pool redelivers the job after delay.
func Retry(err error, delay time.Duration) error {
	return &RetryError{Delay: delay, Err: err}
}

// Package memory provides an in-process Queue implementation for unit
// testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hookline/hookline/queue"
)

// DefaultClaimTTL is how long a claimed job stays invisible before it becomes
// eligible for redelivery.
const DefaultClaimTTL = 30 * time.Second

// compile-time interface check.
var _ queue.Queue = (*Queue)(nil)

// Queue is an in-memory implementation of queue.Queue for testing.
type Queue struct {
	mu sync.Mutex

	jobs    map[string]*queue.Job // keyed by job ID
	claimed map[string]time.Time  // job ID → claim deadline

	claimTTL time.Duration
}

// New creates a new in-memory queue.
func New() *Queue {
	return &Queue{
		jobs:     make(map[string]*queue.Job),
		claimed:  make(map[string]time.Time),
		claimTTL: DefaultClaimTTL,
	}
}

// Enqueue submits a single job.
func (q *Queue) Enqueue(_ context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cp := *job
	q.jobs[job.ID] = &cp
	return nil
}

// EnqueueBatch submits multiple jobs atomically.
func (q *Queue) EnqueueBatch(_ context.Context, jobs []*queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range jobs {
		cp := *job
		q.jobs[job.ID] = &cp
	}
	return nil
}

// Dequeue claims up to limit due jobs with the given name. Expired claims are
// released first, which is what makes redelivery at-least-once.
func (q *Queue) Dequeue(_ context.Context, name string, limit int) ([]*queue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()

	for jobID, deadline := range q.claimed {
		if deadline.Before(now) {
			delete(q.claimed, jobID)
		}
	}

	candidates := make([]*queue.Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		if job.Name != name {
			continue
		}
		if job.RunAt.After(now) {
			continue
		}
		if _, ok := q.claimed[job.ID]; ok {
			continue
		}
		candidates = append(candidates, job)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].RunAt.Before(candidates[j].RunAt)
	})

	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}

	result := make([]*queue.Job, 0, len(candidates))
	for _, job := range candidates {
		q.claimed[job.ID] = now.Add(q.claimTTL)
		cp := *job
		result = append(result, &cp)
	}

	return result, nil
}

// Ack removes a claimed job.
func (q *Queue) Ack(_ context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.jobs[job.ID]; !ok {
		return queue.ErrJobNotFound
	}
	delete(q.jobs, job.ID)
	delete(q.claimed, job.ID)
	return nil
}

// Nack releases a claimed job for redelivery after the given delay.
func (q *Queue) Nack(_ context.Context, job *queue.Job, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	stored, ok := q.jobs[job.ID]
	if !ok {
		return queue.ErrJobNotFound
	}
	stored.RunAt = time.Now().Add(delay)
	delete(q.claimed, job.ID)
	return nil
}

// Len returns the number of jobs currently held, claimed or not.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Package router matches admitted events against active subscriptions and
// fans out delivery jobs.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/observability"
	"github.com/hookline/hookline/queue"
	"github.com/hookline/hookline/subscription"
)

// storeRetryDelay is how long a routing job waits before redelivery when a
// store read fails transiently.
const storeRetryDelay = 5 * time.Second

// Store is the subset of persistence the router needs.
type Store interface {
	event.Store
	subscription.Store
}

// Router consumes routing jobs and enqueues one delivery job per matching
// active subscription.
type Router struct {
	store   Store
	queue   queue.Queue
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a router.
func New(store Store, q queue.Queue, metrics *observability.Metrics, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		store:   store,
		queue:   q,
		metrics: metrics,
		logger:  logger,
	}
}

// Handler returns the queue handler for routing jobs.
func (r *Router) Handler() queue.Handler {
	return func(ctx context.Context, job *queue.Job) error {
		var payload queue.RoutePayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("router: unmarshal payload: %w", err)
		}

		queued, err := r.Route(ctx, payload)
		if err != nil {
			return err
		}

		r.logger.DebugContext(ctx, "event routed",
			"event_id", payload.EventID,
			"event_type", payload.EventType,
			"deliveries_queued", queued,
		)
		return nil
	}
}

// Route loads the event, resolves matching subscriptions, and enqueues the
// attempt-1 delivery jobs as one batch. Zero matches is a successful no-op.
// A missing event is fatal: it means the queue and store disagree, which
// retrying cannot fix.
func (r *Router) Route(ctx context.Context, payload queue.RoutePayload) (int, error) {
	evtID, err := id.ParseEventID(payload.EventID)
	if err != nil {
		return 0, fmt.Errorf("router: %w", err)
	}

	evt, err := r.store.GetEvent(ctx, evtID)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			return 0, fmt.Errorf("router: event %s referenced by routing job does not exist: %w",
				payload.EventID, err)
		}
		return 0, queue.Retry(fmt.Errorf("router: load event: %w", err), storeRetryDelay)
	}

	subs, err := r.store.ResolveActive(ctx, evt.Type)
	if err != nil {
		return 0, queue.Retry(fmt.Errorf("router: resolve subscriptions: %w", err), storeRetryDelay)
	}

	if len(subs) == 0 {
		r.logger.DebugContext(ctx, "no matching subscriptions",
			"event_id", evt.ID, "event_type", evt.Type)
		return 0, nil
	}

	jobs := make([]*queue.Job, 0, len(subs))
	for _, sub := range subs {
		job, err := queue.NewDeliverJob(evt.ID, sub.ID, 1, 0)
		if err != nil {
			return 0, fmt.Errorf("router: build delivery job: %w", err)
		}
		jobs = append(jobs, job)
	}

	// One atomic batch so a crash mid-fan-out never leaves a partial set.
	if err := r.queue.EnqueueBatch(ctx, jobs); err != nil {
		return 0, queue.Retry(fmt.Errorf("router: enqueue deliveries: %w", err), storeRetryDelay)
	}

	if r.metrics != nil {
		r.metrics.PendingDeliveries.Add(float64(len(jobs)))
	}

	return len(jobs), nil
}

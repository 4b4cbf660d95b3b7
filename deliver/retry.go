package deliver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/queue"
	"github.com/hookline/hookline/subscription"
)

// ErrRetriesExhausted is returned when a manual retry is requested for a
// delivery whose attempt count already equals the subscription's retry
// budget.
var ErrRetriesExhausted = errors.New("hookline: retries exhausted")

// Retrier enqueues operator-initiated retries. A manual retry is an ordinary
// delivery job with the next attempt number; the worker state machine handles
// it identically to an autonomous retry.
type Retrier struct {
	store  Store
	queue  queue.Queue
	logger *slog.Logger
}

// NewRetrier creates a retrier.
func NewRetrier(store Store, q queue.Queue, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{store: store, queue: q, logger: logger}
}

// Retry enqueues a fresh attempt for the (event, subscription) pair behind
// the given delivery log row. The retry is gated on the pair's latest
// attempt, not the row the operator happened to click: the subscription must
// be active and the latest attempt must be below the retry budget. Returns
// the attempt number that was enqueued.
func (r *Retrier) Retry(ctx context.Context, logID string) (int, error) {
	dlogID, err := id.ParseDeliveryLogID(logID)
	if err != nil {
		return 0, fmt.Errorf("deliver: %w", err)
	}

	l, err := r.store.GetLog(ctx, dlogID)
	if err != nil {
		return 0, fmt.Errorf("deliver: load log: %w", err)
	}

	sub, err := r.store.GetSubscription(ctx, l.SubscriptionID)
	if err != nil {
		return 0, fmt.Errorf("deliver: load subscription: %w", err)
	}
	if !sub.IsActive {
		return 0, fmt.Errorf("deliver: subscription %s: %w", sub.ID, subscription.ErrInactive)
	}

	latest, err := r.store.LatestAttempt(ctx, l.EventID, l.SubscriptionID)
	if err != nil {
		return 0, fmt.Errorf("deliver: latest attempt: %w", err)
	}
	if latest.Attempt >= sub.RetryBudget {
		return 0, fmt.Errorf("deliver: attempt %d of %d used: %w",
			latest.Attempt, sub.RetryBudget, ErrRetriesExhausted)
	}

	next := latest.Attempt + 1
	job, err := queue.NewDeliverJob(l.EventID, l.SubscriptionID, next, 0)
	if err != nil {
		return 0, fmt.Errorf("deliver: build retry job: %w", err)
	}
	if err := r.queue.Enqueue(ctx, job); err != nil {
		return 0, fmt.Errorf("deliver: enqueue retry: %w", err)
	}

	r.logger.DebugContext(ctx, "manual retry enqueued",
		"delivery_log_id", l.ID,
		"event_id", l.EventID,
		"subscription_id", l.SubscriptionID,
		"attempt", next,
	)
	return next, nil
}

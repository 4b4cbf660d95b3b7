// Package deliver executes signed webhook delivery attempts and schedules
// retries with bounded exponential backoff.
package deliver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	"github.com/hookline/hookline/observability"
	"github.com/hookline/hookline/queue"
	"github.com/hookline/hookline/ratelimit"
	"github.com/hookline/hookline/subscription"
)

// storeRetryDelay is how long a delivery job waits before redelivery when a
// store operation fails transiently.
const storeRetryDelay = 5 * time.Second

// Store is the subset of persistence the delivery worker needs.
type Store interface {
	event.Store
	subscription.Store
	deliverylog.Store
}

// Worker consumes delivery jobs. One job is one attempt: load the event and
// subscription, record a pending log row, POST the signed payload, persist
// the outcome, and if the attempt failed with budget remaining, enqueue the
// next attempt. The log row is always persisted before the follow-up job is
// enqueued, so attempt N+1 can never exist without attempt N's outcome on
// record.
type Worker struct {
	store   Store
	queue   queue.Queue
	sender  *Sender
	limiter *ratelimit.Limiter
	metrics *observability.Metrics
	tracer  *observability.Tracer
	logger  *slog.Logger
}

// Config carries the worker's optional collaborators.
type Config struct {
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// NewWorker creates a delivery worker.
func NewWorker(store Store, q queue.Queue, cfg Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:   store,
		queue:   q,
		sender:  NewSender(),
		limiter: ratelimit.New(),
		metrics: cfg.Metrics,
		tracer:  cfg.Tracer,
		logger:  logger,
	}
}

// Handler returns the queue handler for delivery jobs.
func (w *Worker) Handler() queue.Handler {
	return func(ctx context.Context, job *queue.Job) error {
		var payload queue.DeliverPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("deliver: unmarshal payload: %w", err)
		}
		return w.Deliver(ctx, payload)
	}
}

// Deliver runs one delivery attempt end to end. Missing or inactive
// referents are fatal: the job is stale and retrying cannot revive it.
// Transient store failures before the log row exists surface as queue
// retries so the attempt is not lost.
func (w *Worker) Deliver(ctx context.Context, payload queue.DeliverPayload) error {
	evtID, err := id.ParseEventID(payload.EventID)
	if err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	subID, err := id.ParseSubscriptionID(payload.SubscriptionID)
	if err != nil {
		return fmt.Errorf("deliver: %w", err)
	}

	evt, sub, err := w.load(ctx, evtID, subID)
	if err != nil {
		return err
	}

	if !sub.IsActive {
		w.logger.DebugContext(ctx, "skipping delivery to inactive subscription",
			"event_id", evtID, "subscription_id", subID, "attempt", payload.Attempt)
		return fmt.Errorf("deliver: subscription %s: %w", subID, subscription.ErrInactive)
	}

	l := &deliverylog.Log{
		Entity:         entity.New(),
		ID:             id.NewDeliveryLogID(),
		EventID:        evtID,
		SubscriptionID: subID,
		Attempt:        payload.Attempt,
		Status:         deliverylog.StatusPending,
	}
	if err := w.store.CreateLog(ctx, l); err != nil {
		return queue.Retry(fmt.Errorf("deliver: create log: %w", err), storeRetryDelay)
	}

	if err := w.limiter.Wait(ctx, subID.String(), sub.RateLimit); err != nil {
		return queue.Retry(fmt.Errorf("deliver: rate limit wait: %w", err), storeRetryDelay)
	}

	res := w.send(ctx, sub, evt, l)

	if res.Delivered() {
		return w.finishDelivered(ctx, l, res)
	}
	return w.finishFailed(ctx, l, sub, payload, res)
}

// load fetches the event and subscription concurrently; both are read-only
// on the delivery path.
func (w *Worker) load(ctx context.Context, evtID, subID id.ID) (*event.Event, *subscription.Subscription, error) {
	var (
		evt *event.Event
		sub *subscription.Subscription
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		evt, err = w.store.GetEvent(gctx, evtID)
		if err != nil {
			if errors.Is(err, event.ErrNotFound) {
				return fmt.Errorf("deliver: event %s referenced by delivery job does not exist: %w", evtID, err)
			}
			return queue.Retry(fmt.Errorf("deliver: load event: %w", err), storeRetryDelay)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sub, err = w.store.GetSubscription(gctx, subID)
		if err != nil {
			if errors.Is(err, subscription.ErrNotFound) {
				return fmt.Errorf("deliver: subscription %s referenced by delivery job does not exist: %w", subID, err)
			}
			return queue.Retry(fmt.Errorf("deliver: load subscription: %w", err), storeRetryDelay)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return evt, sub, nil
}

func (w *Worker) send(ctx context.Context, sub *subscription.Subscription, evt *event.Event, l *deliverylog.Log) Result {
	if w.tracer != nil {
		sctx, sp := w.tracer.StartDeliverySpan(ctx, l.ID.String(), evt.PublicID, sub.ID.String(), l.Attempt)
		res := w.sender.Send(sctx, sub, evt, l.ID.String(), l.Attempt)
		w.tracer.EndDeliverySpan(sp, res.StatusCode, int(res.Latency.Milliseconds()), res.Err)
		return res
	}
	return w.sender.Send(ctx, sub, evt, l.ID.String(), l.Attempt)
}

func (w *Worker) finishDelivered(ctx context.Context, l *deliverylog.Log, res Result) error {
	now := time.Now().UTC()
	l.Status = deliverylog.StatusSuccess
	l.ResponseStatus = res.StatusCode
	l.ResponseBody = deliverylog.Truncate(res.Body, deliverylog.MaxResponseBody)
	l.DeliveredAt = &now
	l.HMACVerified = res.Signed
	l.UpdatedAt = now

	if err := w.store.UpdateLog(ctx, l); err != nil {
		return fmt.Errorf("deliver: persist success: %w", err)
	}

	if w.metrics != nil {
		w.metrics.RecordDelivery(string(deliverylog.StatusSuccess), res.Latency.Seconds())
		w.metrics.PendingDeliveries.Add(-1)
	}

	w.logger.DebugContext(ctx, "delivery succeeded",
		"delivery_log_id", l.ID,
		"event_id", l.EventID,
		"subscription_id", l.SubscriptionID,
		"attempt", l.Attempt,
		"response_status", res.StatusCode,
		"latency_ms", res.Latency.Milliseconds(),
	)
	return nil
}

func (w *Worker) finishFailed(ctx context.Context, l *deliverylog.Log, sub *subscription.Subscription, payload queue.DeliverPayload, res Result) error {
	l.ResponseStatus = res.StatusCode
	l.ResponseBody = deliverylog.Truncate(res.Body, deliverylog.MaxResponseBody)
	l.Error = deliverylog.Truncate(res.Err, deliverylog.MaxErrorLen)
	if l.Error == "" && res.StatusCode >= 500 {
		l.Error = deliverylog.Truncate(fmt.Sprintf("endpoint returned %d", res.StatusCode), deliverylog.MaxErrorLen)
	}
	l.HMACVerified = res.Signed
	l.UpdatedAt = time.Now().UTC()

	retrying := payload.Attempt < sub.RetryBudget
	var delay time.Duration
	if retrying {
		delay = RetryDelay(payload.Attempt)
		next := time.Now().UTC().Add(delay)
		l.Status = deliverylog.StatusRetrying
		l.NextRetryAt = &next
	} else {
		l.Status = deliverylog.StatusFailed
	}

	// The outcome row must be durable before the next attempt can exist.
	if err := w.store.UpdateLog(ctx, l); err != nil {
		return fmt.Errorf("deliver: persist failure: %w", err)
	}

	if w.metrics != nil {
		w.metrics.RecordDelivery(string(l.Status), res.Latency.Seconds())
		if !retrying {
			w.metrics.PendingDeliveries.Add(-1)
		}
	}

	w.logger.DebugContext(ctx, "delivery failed",
		"delivery_log_id", l.ID,
		"event_id", l.EventID,
		"subscription_id", l.SubscriptionID,
		"attempt", l.Attempt,
		"response_status", res.StatusCode,
		"error", l.Error,
		"retrying", retrying,
	)

	if !retrying {
		return nil
	}

	job, err := queue.NewDeliverJob(l.EventID, l.SubscriptionID, payload.Attempt+1, delay)
	if err != nil {
		return fmt.Errorf("deliver: build retry job: %w", err)
	}
	if err := w.queue.Enqueue(ctx, job); err != nil {
		// The outcome row says retrying but no job exists. The attempt chain
		// halts here; an operator retry can resume it.
		w.logger.ErrorContext(ctx, "retry not enqueued; delivery chain halted",
			"delivery_log_id", l.ID,
			"event_id", l.EventID,
			"subscription_id", l.SubscriptionID,
			"next_attempt", payload.Attempt+1,
			"error", err,
		)
		return fmt.Errorf("deliver: enqueue retry: %w", err)
	}

	if w.metrics != nil {
		w.metrics.RetriesScheduled.Inc()
	}
	return nil
}

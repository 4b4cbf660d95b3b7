package hookline

import (
	"context"

	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/deliver"
	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/ingest"
	"github.com/hookline/hookline/queue"
	"github.com/hookline/hookline/router"
	"github.com/hookline/hookline/store"
	"github.com/hookline/hookline/subscription"
)

// services holds the wired internal components.
type services struct {
	catalog         *catalog.Catalog
	validator       *catalog.Validator
	subscriptionSvc *subscription.Service
	gate            *ingest.Gate
	retrier         *deliver.Retrier
	routerPool      *queue.Pool
	deliveryPool    *queue.Pool
}

// wireServices initializes the internal services after options have been
// applied.
func (hl *Hookline) wireServices() {
	hl.services.catalog = catalog.New(hl.store, catalog.Config{
		CacheTTL: hl.config.CacheTTL,
	}, hl.logger)

	hl.services.validator = catalog.NewValidator()

	hl.services.subscriptionSvc = subscription.NewService(hl.store, subscription.Defaults{
		MaxRetries: hl.config.DefaultMaxRetries,
		Timeout:    hl.config.DefaultTimeout,
	}, hl.logger)

	hl.services.gate = ingest.NewGate(hl.store, hl.queue, ingest.Config{
		Catalog:   hl.services.catalog,
		Validator: hl.services.validator,
		Metrics:   hl.metrics,
	}, hl.logger)

	rtr := router.New(hl.store, hl.queue, hl.metrics, hl.logger)
	hl.services.routerPool = queue.NewPool(hl.queue, rtr.Handler(), queue.PoolConfig{
		Name:         queue.JobRouteEvent,
		Concurrency:  hl.config.RouterConcurrency,
		PollInterval: hl.config.PollInterval,
		BatchSize:    hl.config.BatchSize,
	}, hl.logger)

	worker := deliver.NewWorker(hl.store, hl.queue, deliver.Config{
		Metrics: hl.metrics,
		Tracer:  hl.tracer,
	}, hl.logger)
	hl.services.deliveryPool = queue.NewPool(hl.queue, worker.Handler(), queue.PoolConfig{
		Name:         queue.JobDeliver,
		Concurrency:  hl.config.DeliveryConcurrency,
		PollInterval: hl.config.PollInterval,
		BatchSize:    hl.config.BatchSize,
	}, hl.logger)

	hl.services.retrier = deliver.NewRetrier(hl.store, hl.queue, hl.logger)
}

// Start launches the routing and delivery worker pools.
func (hl *Hookline) Start(ctx context.Context) {
	if hl.started {
		return
	}
	hl.started = true
	hl.services.routerPool.Start(ctx)
	hl.services.deliveryPool.Start(ctx)
	hl.logger.DebugContext(ctx, "hookline started",
		"router_concurrency", hl.config.RouterConcurrency,
		"delivery_concurrency", hl.config.DeliveryConcurrency,
	)
}

// Stop shuts down the worker pools, waiting up to ShutdownTimeout for
// in-flight jobs.
func (hl *Hookline) Stop(ctx context.Context) {
	if !hl.started {
		return
	}
	hl.started = false

	ctx, cancel := context.WithTimeout(ctx, hl.config.ShutdownTimeout)
	defer cancel()

	hl.services.routerPool.Stop(ctx)
	hl.services.deliveryPool.Stop(ctx)
	hl.logger.DebugContext(ctx, "hookline stopped")
}

// Ingest validates and records an event, then queues it for routing. Safe to
// call repeatedly with the same idempotency key.
func (hl *Hookline) Ingest(ctx context.Context, in ingest.Input) (*ingest.Result, error) {
	return hl.services.gate.Ingest(ctx, in)
}

// RetryDelivery enqueues an operator-initiated retry for the (event,
// subscription) pair behind the given delivery log. Returns the attempt
// number that was enqueued.
func (hl *Hookline) RetryDelivery(ctx context.Context, logID string) (int, error) {
	return hl.services.retrier.Retry(ctx, logID)
}

// Subscriptions returns the subscription management service.
func (hl *Hookline) Subscriptions() *subscription.Service {
	return hl.services.subscriptionSvc
}

// Catalog returns the event type and source module catalog.
func (hl *Hookline) Catalog() *catalog.Catalog {
	return hl.services.catalog
}

// Store returns the underlying store.
func (hl *Hookline) Store() store.Store {
	return hl.store
}

// GetEvent returns an event by internal ID.
func (hl *Hookline) GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error) {
	return hl.store.GetEvent(ctx, evtID)
}

// ListEvents returns ingested events, newest first.
func (hl *Hookline) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	return hl.store.ListEvents(ctx, opts)
}

// DeliveryLogs returns the attempt history for an event.
func (hl *Hookline) DeliveryLogs(ctx context.Context, evtID id.ID, opts deliverylog.ListOpts) ([]*deliverylog.Log, error) {
	return hl.store.ListByEvent(ctx, evtID, opts)
}

// GetDeliveryLog returns one delivery attempt row.
func (hl *Hookline) GetDeliveryLog(ctx context.Context, logID id.ID) (*deliverylog.Log, error) {
	return hl.store.GetLog(ctx, logID)
}

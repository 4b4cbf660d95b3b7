package hookline

import (
	"errors"

	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/deliver"
	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/ingest"
	"github.com/hookline/hookline/queue"
	"github.com/hookline/hookline/subscription"
)

// Sentinel errors returned by Hookline operations. Most originate in the
// subpackage that owns the concern and are re-exported here so callers can
// match them without reaching into internals.
var (
	// ErrNoStore is returned when a Hookline is created without a store.
	ErrNoStore = errors.New("hookline: store is required")

	// ErrNoQueue is returned when a Hookline is created without a job queue.
	ErrNoQueue = errors.New("hookline: queue is required")

	// ErrInvalidInput is returned when an ingestion request is malformed.
	// Invalid input is rejected, never retried.
	ErrInvalidInput = ingest.ErrInvalidInput

	// ErrDuplicateIdempotencyKey is returned by stores when an event with the
	// same idempotency key already exists. The ingestion gate converts it into
	// an idempotent success.
	ErrDuplicateIdempotencyKey = event.ErrDuplicateIdempotencyKey

	// ErrEventNotFound is returned when an event cannot be found.
	ErrEventNotFound = event.ErrNotFound

	// ErrSubscriptionNotFound is returned when a subscription cannot be found.
	ErrSubscriptionNotFound = subscription.ErrNotFound

	// ErrDeliveryLogNotFound is returned when a delivery log cannot be found.
	ErrDeliveryLogNotFound = deliverylog.ErrNotFound

	// ErrInactiveSubscription is returned when a delivery or manual retry
	// targets a subscription that has been deactivated.
	ErrInactiveSubscription = subscription.ErrInactive

	// ErrRetriesExhausted is returned when a manual retry is requested for a
	// delivery whose attempt count already equals the subscription's retry
	// budget.
	ErrRetriesExhausted = deliver.ErrRetriesExhausted

	// ErrEventTypeNotFound is returned when an event type is not registered
	// in the catalog.
	ErrEventTypeNotFound = catalog.ErrEventTypeNotFound

	// ErrSourceModuleNotFound is returned when a source module is not
	// registered in the catalog.
	ErrSourceModuleNotFound = catalog.ErrSourceModuleNotFound

	// ErrPayloadValidationFailed is returned when an event payload fails
	// JSON Schema validation.
	ErrPayloadValidationFailed = catalog.ErrPayloadValidationFailed

	// ErrJobNotFound is returned when a queue job cannot be found.
	ErrJobNotFound = queue.ErrJobNotFound

	// ErrStoreClosed is returned when a store operation is attempted after
	// the store is closed.
	ErrStoreClosed = errors.New("hookline: store is closed")
)

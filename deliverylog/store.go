package deliverylog

import (
	"context"
	"errors"

	"github.com/hookline/hookline/id"
)

// ErrNotFound is returned when a delivery log cannot be found.
var ErrNotFound = errors.New("hookline: delivery log not found")

// Store defines the persistence contract for delivery logs.
type Store interface {
	// CreateLog persists a new delivery attempt row.
	CreateLog(ctx context.Context, l *Log) error

	// UpdateLog modifies an existing attempt row (status, outcome fields).
	UpdateLog(ctx context.Context, l *Log) error

	// GetLog returns an attempt row by ID.
	GetLog(ctx context.Context, logID id.ID) (*Log, error)

	// ListByEvent returns all attempt rows for an event.
	ListByEvent(ctx context.Context, evtID id.ID, opts ListOpts) ([]*Log, error)

	// ListBySubscription returns attempt history for a subscription.
	ListBySubscription(ctx context.Context, subID id.ID, opts ListOpts) ([]*Log, error)

	// LatestAttempt returns the highest-numbered attempt row for an
	// (event, subscription) pair, or ErrDeliveryLogNotFound.
	LatestAttempt(ctx context.Context, evtID, subID id.ID) (*Log, error)

	// CountByStatus returns the number of attempt rows with the given status.
	CountByStatus(ctx context.Context, status Status) (int64, error)
}

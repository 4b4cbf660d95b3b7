package event

import (
	"context"
	"errors"

	"github.com/hookline/hookline/id"
)

// Sentinel errors returned by event stores.
var (
	// ErrNotFound is returned when an event cannot be found.
	ErrNotFound = errors.New("hookline: event not found")

	// ErrDuplicateIdempotencyKey is returned when an event with the same
	// idempotency key already exists. The ingestion gate converts it into an
	// idempotent success.
	ErrDuplicateIdempotencyKey = errors.New("hookline: duplicate idempotency key")
)

// Store defines the persistence contract for events.
type Store interface {
	// CreateEvent persists an event. Must be durable before returning.
	// Returns ErrDuplicateIdempotencyKey if an event with the same
	// idempotency key already exists.
	CreateEvent(ctx context.Context, evt *Event) error

	// GetEvent returns an event by internal ID.
	GetEvent(ctx context.Context, evtID id.ID) (*Event, error)

	// FindEventByIdempotencyKey returns the event recorded for a key, or
	// ErrEventNotFound if none exists.
	FindEventByIdempotencyKey(ctx context.Context, key string) (*Event, error)

	// ListEvents returns events, optionally filtered by type or time range.
	ListEvents(ctx context.Context, opts ListOpts) ([]*Event, error)
}

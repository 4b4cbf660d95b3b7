package subscription

import (
	"context"
	"errors"

	"github.com/hookline/hookline/id"
)

// Sentinel errors returned by subscription stores and consumers.
var (
	// ErrNotFound is returned when a subscription cannot be found.
	ErrNotFound = errors.New("hookline: subscription not found")

	// ErrInactive is returned when a delivery or manual retry targets a
	// subscription that has been deactivated. Fatal: retrying cannot fix it.
	ErrInactive = errors.New("hookline: subscription is inactive")
)

// Store defines the persistence contract for subscriptions.
type Store interface {
	// CreateSubscription persists a new subscription.
	CreateSubscription(ctx context.Context, sub *Subscription) error

	// GetSubscription returns a subscription by ID.
	GetSubscription(ctx context.Context, subID id.ID) (*Subscription, error)

	// UpdateSubscription modifies an existing subscription.
	UpdateSubscription(ctx context.Context, sub *Subscription) error

	// DeleteSubscription removes a subscription.
	DeleteSubscription(ctx context.Context, subID id.ID) error

	// ListSubscriptions returns subscriptions, optionally filtered.
	ListSubscriptions(ctx context.Context, opts ListOpts) ([]*Subscription, error)

	// ResolveActive finds all active subscriptions whose event type set
	// contains the given type. This is the router's fan-out query.
	ResolveActive(ctx context.Context, eventType string) ([]*Subscription, error)

	// SetActive activates or deactivates a subscription without deleting it.
	SetActive(ctx context.Context, subID id.ID, active bool) error
}

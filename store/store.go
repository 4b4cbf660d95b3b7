// Package store defines the composite Store interface for all Hookline
// persistence.
//
// Each subsystem defines its own store interface and the aggregate Store
// composes them, so backends implement one surface while services depend
// only on the slice they use.
package store

import (
	"context"

	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/subscription"
)

// Store is the aggregate persistence interface.
type Store interface {
	catalog.Store
	event.Store
	subscription.Store
	deliverylog.Store

	// Migrate creates any schema or indexes the backend needs, including the
	// unique index on event idempotency keys.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}

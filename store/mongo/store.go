// Package mongo implements store.Store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hookline/hookline/store"
)

// Collection name constants.
const (
	colEventTypes    = "hookline_event_types"
	colSourceModules = "hookline_source_modules"
	colEvents        = "hookline_events"
	colSubscriptions = "hookline_subscriptions"
	colDeliveryLogs  = "hookline_delivery_logs"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	db *mongod.Database
}

// New creates a new MongoDB store over the given database.
func New(db *mongod.Database) *Store {
	return &Store{db: db}
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *mongod.Database { return s.db }

// Migrate creates indexes for all hookline collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}

		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("hookline/mongo: migrate %s indexes: %w", col, err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Client().Disconnect(context.Background())
}

// migrationIndexes returns the index definitions for all hookline
// collections. The unique index on idempotency_key is what makes ingestion
// deduplication safe under concurrent writers.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colEventTypes: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colSourceModules: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colEvents: {
			{
				Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "event_types", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		colDeliveryLogs: {
			{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "subscription_id", Value: 1}, {Key: "delivery_attempt", Value: -1}}},
			{Keys: bson.D{{Key: "subscription_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}
}

// isNoDocuments reports whether err indicates an empty result.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

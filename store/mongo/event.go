package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
)

// CreateEvent persists an event. The unique index on idempotency_key turns
// concurrent duplicate ingestion into ErrDuplicateIdempotencyKey.
func (s *Store) CreateEvent(ctx context.Context, evt *event.Event) error {
	m := toEventModel(evt)

	_, err := s.db.Collection(colEvents).InsertOne(ctx, m)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return event.ErrDuplicateIdempotencyKey
		}

		return fmt.Errorf("hookline/mongo: create event: %w", err)
	}

	return nil
}

// GetEvent returns an event by internal ID.
func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error) {
	var m eventModel

	err := s.db.Collection(colEvents).FindOne(ctx, bson.M{"_id": evtID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, event.ErrNotFound
		}

		return nil, fmt.Errorf("hookline/mongo: get event: %w", err)
	}

	return fromEventModel(&m)
}

// FindEventByIdempotencyKey returns the event recorded for a key.
func (s *Store) FindEventByIdempotencyKey(ctx context.Context, key string) (*event.Event, error) {
	var m eventModel

	err := s.db.Collection(colEvents).FindOne(ctx, bson.M{"idempotency_key": key}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, event.ErrNotFound
		}

		return nil, fmt.Errorf("hookline/mongo: find event by idempotency key: %w", err)
	}

	return fromEventModel(&m)
}

// ListEvents returns events, optionally filtered by type or time range.
func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	filter := bson.M{}
	if opts.Type != "" {
		filter["event_type"] = opts.Type
	}

	if opts.From != nil || opts.To != nil {
		dateFilter := bson.M{}
		if opts.From != nil {
			dateFilter["$gte"] = *opts.From
		}

		if opts.To != nil {
			dateFilter["$lte"] = *opts.To
		}

		filter["created_at"] = dateFilter
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cur, err := s.db.Collection(colEvents).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: list events: %w", err)
	}

	var models []eventModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hookline/mongo: list events: %w", err)
	}

	result := make([]*event.Event, 0, len(models))
	for i := range models {
		evt, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, evt)
	}

	return result, nil
}

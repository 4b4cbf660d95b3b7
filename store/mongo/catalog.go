package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hookline/hookline/catalog"
)

// RegisterEventType creates or updates an event type, keyed by name.
func (s *Store) RegisterEventType(ctx context.Context, et *catalog.EventType) error {
	m := toEventTypeModel(et)

	_, err := s.db.Collection(colEventTypes).UpdateOne(ctx,
		bson.M{"name": m.Name},
		bson.M{"$set": m},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("hookline/mongo: register event type: %w", err)
	}

	return nil
}

// GetEventType returns an event type by name.
func (s *Store) GetEventType(ctx context.Context, name string) (*catalog.EventType, error) {
	var m eventTypeModel

	err := s.db.Collection(colEventTypes).FindOne(ctx, bson.M{"name": name}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, catalog.ErrEventTypeNotFound
		}

		return nil, fmt.Errorf("hookline/mongo: get event type: %w", err)
	}

	return fromEventTypeModel(&m), nil
}

// ListEventTypes returns registered event types.
func (s *Store) ListEventTypes(ctx context.Context, opts catalog.ListOpts) ([]*catalog.EventType, error) {
	filter := bson.M{}
	if !opts.IncludeDeprecated {
		filter["is_deprecated"] = false
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cur, err := s.db.Collection(colEventTypes).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: list event types: %w", err)
	}

	var models []eventTypeModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hookline/mongo: list event types: %w", err)
	}

	result := make([]*catalog.EventType, 0, len(models))
	for i := range models {
		result = append(result, fromEventTypeModel(&models[i]))
	}

	return result, nil
}

// DeprecateEventType marks an event type as no longer accepting events.
func (s *Store) DeprecateEventType(ctx context.Context, name string) error {
	now := time.Now().UTC()

	res, err := s.db.Collection(colEventTypes).UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$set": bson.M{
			"is_deprecated": true,
			"deprecated_at": now,
			"updated_at":    now,
		}},
	)
	if err != nil {
		return fmt.Errorf("hookline/mongo: deprecate event type: %w", err)
	}

	if res.MatchedCount == 0 {
		return catalog.ErrEventTypeNotFound
	}

	return nil
}

// RegisterSourceModule creates or updates a source module, keyed by name.
func (s *Store) RegisterSourceModule(ctx context.Context, sm *catalog.SourceModule) error {
	m := toSourceModuleModel(sm)

	_, err := s.db.Collection(colSourceModules).UpdateOne(ctx,
		bson.M{"name": m.Name},
		bson.M{"$set": m},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("hookline/mongo: register source module: %w", err)
	}

	return nil
}

// GetSourceModule returns a source module by name.
func (s *Store) GetSourceModule(ctx context.Context, name string) (*catalog.SourceModule, error) {
	var m sourceModuleModel

	err := s.db.Collection(colSourceModules).FindOne(ctx, bson.M{"name": name}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, catalog.ErrSourceModuleNotFound
		}

		return nil, fmt.Errorf("hookline/mongo: get source module: %w", err)
	}

	return fromSourceModuleModel(&m), nil
}

// ListSourceModules returns registered source modules.
func (s *Store) ListSourceModules(ctx context.Context, opts catalog.ListOpts) ([]*catalog.SourceModule, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cur, err := s.db.Collection(colSourceModules).Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: list source modules: %w", err)
	}

	var models []sourceModuleModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hookline/mongo: list source modules: %w", err)
	}

	result := make([]*catalog.SourceModule, 0, len(models))
	for i := range models {
		result = append(result, fromSourceModuleModel(&models[i]))
	}

	return result, nil
}

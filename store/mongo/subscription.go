package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/subscription"
)

// CreateSubscription persists a new subscription.
func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)

	_, err := s.db.Collection(colSubscriptions).InsertOne(ctx, m)
	if err != nil {
		return fmt.Errorf("hookline/mongo: create subscription: %w", err)
	}

	return nil
}

// GetSubscription returns a subscription by ID.
func (s *Store) GetSubscription(ctx context.Context, subID id.ID) (*subscription.Subscription, error) {
	var m subscriptionModel

	err := s.db.Collection(colSubscriptions).FindOne(ctx, bson.M{"_id": subID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, subscription.ErrNotFound
		}

		return nil, fmt.Errorf("hookline/mongo: get subscription: %w", err)
	}

	return fromSubscriptionModel(&m)
}

// UpdateSubscription modifies an existing subscription.
func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)

	res, err := s.db.Collection(colSubscriptions).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("hookline/mongo: update subscription: %w", err)
	}

	if res.MatchedCount == 0 {
		return subscription.ErrNotFound
	}

	return nil
}

// DeleteSubscription removes a subscription.
func (s *Store) DeleteSubscription(ctx context.Context, subID id.ID) error {
	res, err := s.db.Collection(colSubscriptions).DeleteOne(ctx, bson.M{"_id": subID.String()})
	if err != nil {
		return fmt.Errorf("hookline/mongo: delete subscription: %w", err)
	}

	if res.DeletedCount == 0 {
		return subscription.ErrNotFound
	}

	return nil
}

// ListSubscriptions returns subscriptions, optionally filtered by active
// state.
func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	filter := bson.M{}
	if opts.IsActive != nil {
		filter["is_active"] = *opts.IsActive
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	return s.findSubscriptions(ctx, filter, findOpts)
}

// ResolveActive finds all active subscriptions whose event type set contains
// the given type.
func (s *Store) ResolveActive(ctx context.Context, eventType string) ([]*subscription.Subscription, error) {
	filter := bson.M{
		"is_active":   true,
		"event_types": eventType,
	}

	return s.findSubscriptions(ctx, filter, options.Find())
}

// SetActive activates or deactivates a subscription.
func (s *Store) SetActive(ctx context.Context, subID id.ID, active bool) error {
	res, err := s.db.Collection(colSubscriptions).UpdateOne(ctx,
		bson.M{"_id": subID.String()},
		bson.M{"$set": bson.M{
			"is_active":  active,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("hookline/mongo: set subscription active: %w", err)
	}

	if res.MatchedCount == 0 {
		return subscription.ErrNotFound
	}

	return nil
}

func (s *Store) findSubscriptions(ctx context.Context, filter bson.M, findOpts *options.FindOptionsBuilder) ([]*subscription.Subscription, error) {
	cur, err := s.db.Collection(colSubscriptions).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: find subscriptions: %w", err)
	}

	var models []subscriptionModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hookline/mongo: find subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, 0, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, sub)
	}

	return result, nil
}

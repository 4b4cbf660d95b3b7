package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/id"
)

// CreateLog persists a new delivery attempt row.
func (s *Store) CreateLog(ctx context.Context, l *deliverylog.Log) error {
	m := toDeliveryLogModel(l)

	_, err := s.db.Collection(colDeliveryLogs).InsertOne(ctx, m)
	if err != nil {
		return fmt.Errorf("hookline/mongo: create delivery log: %w", err)
	}

	return nil
}

// UpdateLog replaces an existing attempt row.
func (s *Store) UpdateLog(ctx context.Context, l *deliverylog.Log) error {
	m := toDeliveryLogModel(l)

	res, err := s.db.Collection(colDeliveryLogs).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("hookline/mongo: update delivery log: %w", err)
	}

	if res.MatchedCount == 0 {
		return deliverylog.ErrNotFound
	}

	return nil
}

// GetLog returns an attempt row by ID.
func (s *Store) GetLog(ctx context.Context, logID id.ID) (*deliverylog.Log, error) {
	var m deliveryLogModel

	err := s.db.Collection(colDeliveryLogs).FindOne(ctx, bson.M{"_id": logID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, deliverylog.ErrNotFound
		}

		return nil, fmt.Errorf("hookline/mongo: get delivery log: %w", err)
	}

	return fromDeliveryLogModel(&m)
}

// ListByEvent returns all attempt rows for an event, oldest first.
func (s *Store) ListByEvent(ctx context.Context, evtID id.ID, opts deliverylog.ListOpts) ([]*deliverylog.Log, error) {
	filter := bson.M{"event_id": evtID.String()}
	sort := bson.D{{Key: "created_at", Value: 1}}

	return s.findLogs(ctx, filter, sort, opts)
}

// ListBySubscription returns attempt history for a subscription, newest
// first.
func (s *Store) ListBySubscription(ctx context.Context, subID id.ID, opts deliverylog.ListOpts) ([]*deliverylog.Log, error) {
	filter := bson.M{"subscription_id": subID.String()}
	sort := bson.D{{Key: "created_at", Value: -1}}

	return s.findLogs(ctx, filter, sort, opts)
}

// LatestAttempt returns the highest-numbered attempt row for an
// (event, subscription) pair.
func (s *Store) LatestAttempt(ctx context.Context, evtID, subID id.ID) (*deliverylog.Log, error) {
	var m deliveryLogModel

	err := s.db.Collection(colDeliveryLogs).FindOne(ctx,
		bson.M{
			"event_id":        evtID.String(),
			"subscription_id": subID.String(),
		},
		options.FindOne().SetSort(bson.D{{Key: "delivery_attempt", Value: -1}}),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, deliverylog.ErrNotFound
		}

		return nil, fmt.Errorf("hookline/mongo: latest attempt: %w", err)
	}

	return fromDeliveryLogModel(&m)
}

// CountByStatus returns the number of attempt rows with the given status.
func (s *Store) CountByStatus(ctx context.Context, status deliverylog.Status) (int64, error) {
	n, err := s.db.Collection(colDeliveryLogs).CountDocuments(ctx, bson.M{"status": string(status)})
	if err != nil {
		return 0, fmt.Errorf("hookline/mongo: count delivery logs: %w", err)
	}

	return n, nil
}

func (s *Store) findLogs(ctx context.Context, filter bson.M, sort bson.D, opts deliverylog.ListOpts) ([]*deliverylog.Log, error) {
	if opts.Status != nil {
		filter["status"] = string(*opts.Status)
	}

	findOpts := options.Find().SetSort(sort)
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cur, err := s.db.Collection(colDeliveryLogs).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: list delivery logs: %w", err)
	}

	var models []deliveryLogModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hookline/mongo: list delivery logs: %w", err)
	}

	result := make([]*deliverylog.Log, 0, len(models))
	for i := range models {
		l, err := fromDeliveryLogModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, l)
	}

	return result, nil
}

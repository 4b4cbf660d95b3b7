package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
)

// deliveryLogModel is the JSON representation stored in Redis.
type deliveryLogModel struct {
	ID             string     `json:"id"`
	EventID        string     `json:"event_id"`
	SubscriptionID string     `json:"subscription_id"`
	Attempt        int        `json:"delivery_attempt"`
	Status         string     `json:"status"`
	ResponseStatus int        `json:"response_status,omitempty"`
	ResponseBody   string     `json:"response_body,omitempty"`
	Error          string     `json:"error,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	HMACVerified   bool       `json:"hmac_verified"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toDeliveryLogModel(l *deliverylog.Log) *deliveryLogModel {
	return &deliveryLogModel{
		ID:             l.ID.String(),
		EventID:        l.EventID.String(),
		SubscriptionID: l.SubscriptionID.String(),
		Attempt:        l.Attempt,
		Status:         string(l.Status),
		ResponseStatus: l.ResponseStatus,
		ResponseBody:   l.ResponseBody,
		Error:          l.Error,
		DeliveredAt:    l.DeliveredAt,
		NextRetryAt:    l.NextRetryAt,
		HMACVerified:   l.HMACVerified,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func fromDeliveryLogModel(m *deliveryLogModel) (*deliverylog.Log, error) {
	logID, err := id.ParseDeliveryLogID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery log ID %q: %w", m.ID, err)
	}

	evtID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.EventID, err)
	}

	subID, err := id.ParseSubscriptionID(m.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.SubscriptionID, err)
	}

	return &deliverylog.Log{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             logID,
		EventID:        evtID,
		SubscriptionID: subID,
		Attempt:        m.Attempt,
		Status:         deliverylog.Status(m.Status),
		ResponseStatus: m.ResponseStatus,
		ResponseBody:   m.ResponseBody,
		Error:          m.Error,
		DeliveredAt:    m.DeliveredAt,
		NextRetryAt:    m.NextRetryAt,
		HMACVerified:   m.HMACVerified,
	}, nil
}

// CreateLog persists a new delivery attempt row and its index entries.
func (s *Store) CreateLog(ctx context.Context, l *deliverylog.Log) error {
	m := toDeliveryLogModel(l)

	if err := s.setEntity(ctx, entityKey(prefixDeliveryLog, m.ID), m); err != nil {
		return fmt.Errorf("hookline/redis: create delivery log: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zDeliveryLogEvent+m.EventID, goredis.Z{
		Score:  scoreFromTime(m.CreatedAt),
		Member: m.ID,
	})
	pipe.ZAdd(ctx, zDeliveryLogSub+m.SubscriptionID, goredis.Z{
		Score:  scoreFromTime(m.CreatedAt),
		Member: m.ID,
	})
	pipe.ZAdd(ctx, pairKey(m.EventID, m.SubscriptionID), goredis.Z{
		Score:  float64(m.Attempt),
		Member: m.ID,
	})
	pipe.SAdd(ctx, statusSetKey(m.Status), m.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hookline/redis: create delivery log indexes: %w", err)
	}

	return nil
}

// UpdateLog replaces an existing attempt row, moving it between status sets
// when the status changed.
func (s *Store) UpdateLog(ctx context.Context, l *deliverylog.Log) error {
	var prev deliveryLogModel
	if err := s.getEntity(ctx, entityKey(prefixDeliveryLog, l.ID.String()), &prev); err != nil {
		if isRedisNil(err) {
			return deliverylog.ErrNotFound
		}

		return fmt.Errorf("hookline/redis: update delivery log: %w", err)
	}

	m := toDeliveryLogModel(l)
	if err := s.setEntity(ctx, entityKey(prefixDeliveryLog, m.ID), m); err != nil {
		return fmt.Errorf("hookline/redis: update delivery log: %w", err)
	}

	if prev.Status != m.Status {
		pipe := s.rdb.Pipeline()
		pipe.SRem(ctx, statusSetKey(prev.Status), m.ID)
		pipe.SAdd(ctx, statusSetKey(m.Status), m.ID)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("hookline/redis: update delivery log status sets: %w", err)
		}
	}

	return nil
}

// GetLog returns an attempt row by ID.
func (s *Store) GetLog(ctx context.Context, logID id.ID) (*deliverylog.Log, error) {
	var m deliveryLogModel

	if err := s.getEntity(ctx, entityKey(prefixDeliveryLog, logID.String()), &m); err != nil {
		if isRedisNil(err) {
			return nil, deliverylog.ErrNotFound
		}

		return nil, fmt.Errorf("hookline/redis: get delivery log: %w", err)
	}

	return fromDeliveryLogModel(&m)
}

// ListByEvent returns all attempt rows for an event, oldest first.
func (s *Store) ListByEvent(ctx context.Context, evtID id.ID, opts deliverylog.ListOpts) ([]*deliverylog.Log, error) {
	ids, err := s.rdb.ZRange(ctx, zDeliveryLogEvent+evtID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: list delivery logs by event: %w", err)
	}

	return s.loadLogs(ctx, ids, opts)
}

// ListBySubscription returns attempt history for a subscription, newest
// first.
func (s *Store) ListBySubscription(ctx context.Context, subID id.ID, opts deliverylog.ListOpts) ([]*deliverylog.Log, error) {
	ids, err := s.rdb.ZRevRange(ctx, zDeliveryLogSub+subID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: list delivery logs by subscription: %w", err)
	}

	return s.loadLogs(ctx, ids, opts)
}

// LatestAttempt returns the highest-numbered attempt row for an
// (event, subscription) pair. The pair sorted set is scored by attempt
// number, so the last member is the latest.
func (s *Store) LatestAttempt(ctx context.Context, evtID, subID id.ID) (*deliverylog.Log, error) {
	ids, err := s.rdb.ZRevRange(ctx, pairKey(evtID.String(), subID.String()), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: latest attempt: %w", err)
	}
	if len(ids) == 0 {
		return nil, deliverylog.ErrNotFound
	}

	logID, err := id.ParseDeliveryLogID(ids[0])
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: parse delivery log ID %q: %w", ids[0], err)
	}

	return s.GetLog(ctx, logID)
}

// CountByStatus returns the number of attempt rows with the given status.
func (s *Store) CountByStatus(ctx context.Context, status deliverylog.Status) (int64, error) {
	n, err := s.rdb.SCard(ctx, statusSetKey(string(status))).Result()
	if err != nil {
		return 0, fmt.Errorf("hookline/redis: count delivery logs: %w", err)
	}

	return n, nil
}

func (s *Store) loadLogs(ctx context.Context, ids []string, opts deliverylog.ListOpts) ([]*deliverylog.Log, error) {
	result := make([]*deliverylog.Log, 0, len(ids))
	for _, rawID := range ids {
		logID, err := id.ParseDeliveryLogID(rawID)
		if err != nil {
			return nil, fmt.Errorf("hookline/redis: parse delivery log ID %q: %w", rawID, err)
		}

		l, err := s.GetLog(ctx, logID)
		if err != nil {
			if errors.Is(err, deliverylog.ErrNotFound) {
				continue
			}
			return nil, err
		}

		if opts.Status != nil && l.Status != *opts.Status {
			continue
		}

		result = append(result, l)
	}

	if opts.Offset >= len(result) {
		return nil, nil
	}
	result = result[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}

	return result, nil
}

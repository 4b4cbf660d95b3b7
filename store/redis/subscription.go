package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	"github.com/hookline/hookline/subscription"
)

// subscriptionModel is the JSON representation stored in Redis. Unlike the
// domain type it serializes the secret; these keys are internal storage,
// never API responses.
type subscriptionModel struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	WebhookURL  string        `json:"webhook_url"`
	EventTypes  []string      `json:"event_types"`
	Secret      string        `json:"secret"`
	IsActive    bool          `json:"is_active"`
	RetryBudget int           `json:"max_retries"`
	Timeout     time.Duration `json:"timeout"`
	RateLimit   int           `json:"rate_limit"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func toSubscriptionModel(sub *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:          sub.ID.String(),
		Name:        sub.Name,
		Description: sub.Description,
		WebhookURL:  sub.WebhookURL,
		EventTypes:  sub.EventTypes,
		Secret:      sub.Secret,
		IsActive:    sub.IsActive,
		RetryBudget: sub.RetryBudget,
		Timeout:     sub.Timeout,
		RateLimit:   sub.RateLimit,
		CreatedAt:   sub.CreatedAt,
		UpdatedAt:   sub.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.ID, err)
	}

	return &subscription.Subscription{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          subID,
		Name:        m.Name,
		Description: m.Description,
		WebhookURL:  m.WebhookURL,
		EventTypes:  m.EventTypes,
		Secret:      m.Secret,
		IsActive:    m.IsActive,
		RetryBudget: m.RetryBudget,
		Timeout:     m.Timeout,
		RateLimit:   m.RateLimit,
	}, nil
}

// CreateSubscription persists a new subscription.
func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)

	if err := s.setEntity(ctx, entityKey(prefixSubscription, m.ID), m); err != nil {
		return fmt.Errorf("hookline/redis: create subscription: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zSubscriptionAll, goredis.Z{
		Score:  scoreFromTime(m.CreatedAt),
		Member: m.ID,
	})
	if m.IsActive {
		pipe.SAdd(ctx, sSubscriptionActive, m.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hookline/redis: create subscription indexes: %w", err)
	}

	return nil
}

// GetSubscription returns a subscription by ID.
func (s *Store) GetSubscription(ctx context.Context, subID id.ID) (*subscription.Subscription, error) {
	var m subscriptionModel

	if err := s.getEntity(ctx, entityKey(prefixSubscription, subID.String()), &m); err != nil {
		if isRedisNil(err) {
			return nil, subscription.ErrNotFound
		}

		return nil, fmt.Errorf("hookline/redis: get subscription: %w", err)
	}

	return fromSubscriptionModel(&m)
}

// UpdateSubscription modifies an existing subscription.
func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	key := entityKey(prefixSubscription, sub.ID.String())

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("hookline/redis: update subscription: %w", err)
	}
	if exists == 0 {
		return subscription.ErrNotFound
	}

	m := toSubscriptionModel(sub)
	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("hookline/redis: update subscription: %w", err)
	}

	if m.IsActive {
		err = s.rdb.SAdd(ctx, sSubscriptionActive, m.ID).Err()
	} else {
		err = s.rdb.SRem(ctx, sSubscriptionActive, m.ID).Err()
	}
	if err != nil {
		return fmt.Errorf("hookline/redis: update subscription active set: %w", err)
	}

	return nil
}

// DeleteSubscription removes a subscription and its index entries.
func (s *Store) DeleteSubscription(ctx context.Context, subID id.ID) error {
	key := entityKey(prefixSubscription, subID.String())

	deleted, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("hookline/redis: delete subscription: %w", err)
	}
	if deleted == 0 {
		return subscription.ErrNotFound
	}

	pipe := s.rdb.Pipeline()
	pipe.ZRem(ctx, zSubscriptionAll, subID.String())
	pipe.SRem(ctx, sSubscriptionActive, subID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hookline/redis: delete subscription indexes: %w", err)
	}

	return nil
}

// ListSubscriptions returns subscriptions newest first, optionally filtered
// by active state.
func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	ids, err := s.rdb.ZRevRange(ctx, zSubscriptionAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: list subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, 0, len(ids))
	for _, rawID := range ids {
		subID, err := id.ParseSubscriptionID(rawID)
		if err != nil {
			return nil, fmt.Errorf("hookline/redis: parse subscription ID %q: %w", rawID, err)
		}

		sub, err := s.GetSubscription(ctx, subID)
		if err != nil {
			if errors.Is(err, subscription.ErrNotFound) {
				continue
			}
			return nil, err
		}

		if opts.IsActive != nil && sub.IsActive != *opts.IsActive {
			continue
		}

		result = append(result, sub)
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

// ResolveActive finds all active subscriptions whose event type set contains
// the given type. Active IDs come from a set; type matching is done on the
// loaded entity.
func (s *Store) ResolveActive(ctx context.Context, eventType string) ([]*subscription.Subscription, error) {
	ids, err := s.rdb.SMembers(ctx, sSubscriptionActive).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: resolve active subscriptions: %w", err)
	}

	var matched []*subscription.Subscription
	for _, rawID := range ids {
		subID, err := id.ParseSubscriptionID(rawID)
		if err != nil {
			return nil, fmt.Errorf("hookline/redis: parse subscription ID %q: %w", rawID, err)
		}

		sub, err := s.GetSubscription(ctx, subID)
		if err != nil {
			if errors.Is(err, subscription.ErrNotFound) {
				continue
			}
			return nil, err
		}

		if sub.IsActive && sub.Wants(eventType) {
			matched = append(matched, sub)
		}
	}

	return matched, nil
}

// SetActive activates or deactivates a subscription.
func (s *Store) SetActive(ctx context.Context, subID id.ID, active bool) error {
	sub, err := s.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}

	sub.IsActive = active
	sub.UpdatedAt = time.Now().UTC()

	return s.UpdateSubscription(ctx, sub)
}

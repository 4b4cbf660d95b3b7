package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
)

// eventModel is the JSON representation stored in Redis.
type eventModel struct {
	ID             string          `json:"id"`
	PublicID       string          `json:"public_id"`
	Type           string          `json:"event_type"`
	SourceModule   string          `json:"source_module"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toEventModel(evt *event.Event) *eventModel {
	return &eventModel{
		ID:             evt.ID.String(),
		PublicID:       evt.PublicID,
		Type:           evt.Type,
		SourceModule:   evt.SourceModule,
		Payload:        evt.Payload,
		IdempotencyKey: evt.IdempotencyKey,
		CreatedAt:      evt.CreatedAt,
		UpdatedAt:      evt.UpdatedAt,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	evtID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.ID, err)
	}

	return &event.Event{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             evtID,
		PublicID:       m.PublicID,
		Type:           m.Type,
		SourceModule:   m.SourceModule,
		Payload:        m.Payload,
		IdempotencyKey: m.IdempotencyKey,
	}, nil
}

// CreateEvent persists an event. SET NX on the idempotency key makes
// duplicate detection safe under concurrent writers.
func (s *Store) CreateEvent(ctx context.Context, evt *event.Event) error {
	m := toEventModel(evt)

	ok, err := s.rdb.SetNX(ctx, uniqueEventIdem+m.IdempotencyKey, m.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("hookline/redis: create event idem check: %w", err)
	}
	if !ok {
		return event.ErrDuplicateIdempotencyKey
	}

	if err := s.setEntity(ctx, entityKey(prefixEvent, m.ID), m); err != nil {
		return fmt.Errorf("hookline/redis: create event: %w", err)
	}

	err = s.rdb.ZAdd(ctx, zEventAll, goredis.Z{
		Score:  scoreFromTime(m.CreatedAt),
		Member: m.ID,
	}).Err()
	if err != nil {
		return fmt.Errorf("hookline/redis: create event index: %w", err)
	}

	return nil
}

// GetEvent returns an event by internal ID.
func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error) {
	var m eventModel

	if err := s.getEntity(ctx, entityKey(prefixEvent, evtID.String()), &m); err != nil {
		if isRedisNil(err) {
			return nil, event.ErrNotFound
		}

		return nil, fmt.Errorf("hookline/redis: get event: %w", err)
	}

	return fromEventModel(&m)
}

// FindEventByIdempotencyKey returns the event recorded for a key.
func (s *Store) FindEventByIdempotencyKey(ctx context.Context, key string) (*event.Event, error) {
	evtID, err := s.rdb.Get(ctx, uniqueEventIdem+key).Result()
	if err != nil {
		if isRedisNil(err) {
			return nil, event.ErrNotFound
		}

		return nil, fmt.Errorf("hookline/redis: find event by idempotency key: %w", err)
	}

	parsed, err := id.ParseEventID(evtID)
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: parse event ID %q: %w", evtID, err)
	}

	return s.GetEvent(ctx, parsed)
}

// ListEvents returns events newest first, optionally filtered by type or
// time range. Time-range filtering uses the sorted set scores; type
// filtering loads and inspects each candidate.
func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	minScore, maxScore := "-inf", "+inf"
	if opts.From != nil {
		minScore = fmt.Sprintf("%f", scoreFromTime(*opts.From))
	}
	if opts.To != nil {
		maxScore = fmt.Sprintf("%f", scoreFromTime(*opts.To))
	}

	ids, err := s.rdb.ZRevRangeByScore(ctx, zEventAll, &goredis.ZRangeBy{
		Min: minScore,
		Max: maxScore,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: list events: %w", err)
	}

	result := make([]*event.Event, 0, len(ids))
	for _, evtID := range ids {
		var m eventModel
		if err := s.getEntity(ctx, entityKey(prefixEvent, evtID), &m); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, fmt.Errorf("hookline/redis: list events: %w", err)
		}

		if opts.Type != "" && m.Type != opts.Type {
			continue
		}

		evt, err := fromEventModel(&m)
		if err != nil {
			return nil, err
		}

		result = append(result, evt)
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

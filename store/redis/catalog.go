package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/internal/entity"
)

// eventTypeModel is the JSON representation stored in Redis.
type eventTypeModel struct {
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Schema       json.RawMessage `json:"schema,omitempty"`
	IsDeprecated bool            `json:"is_deprecated"`
	DeprecatedAt *time.Time      `json:"deprecated_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toEventTypeModel(et *catalog.EventType) *eventTypeModel {
	return &eventTypeModel{
		Name:         et.Definition.Name,
		Description:  et.Definition.Description,
		Schema:       et.Definition.Schema,
		IsDeprecated: et.IsDeprecated,
		DeprecatedAt: et.DeprecatedAt,
		CreatedAt:    et.CreatedAt,
		UpdatedAt:    et.UpdatedAt,
	}
}

func fromEventTypeModel(m *eventTypeModel) *catalog.EventType {
	return &catalog.EventType{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Definition: catalog.EventTypeDefinition{
			Name:        m.Name,
			Description: m.Description,
			Schema:      m.Schema,
		},
		IsDeprecated: m.IsDeprecated,
		DeprecatedAt: m.DeprecatedAt,
	}
}

// sourceModuleModel is the JSON representation stored in Redis.
type sourceModuleModel struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toSourceModuleModel(sm *catalog.SourceModule) *sourceModuleModel {
	return &sourceModuleModel{
		Name:        sm.Name,
		Description: sm.Description,
		CreatedAt:   sm.CreatedAt,
		UpdatedAt:   sm.UpdatedAt,
	}
}

func fromSourceModuleModel(m *sourceModuleModel) *catalog.SourceModule {
	return &catalog.SourceModule{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Name:        m.Name,
		Description: m.Description,
	}
}

// RegisterEventType creates or updates an event type, keyed by name.
func (s *Store) RegisterEventType(ctx context.Context, et *catalog.EventType) error {
	m := toEventTypeModel(et)

	if err := s.setEntity(ctx, entityKey(prefixEventType, m.Name), m); err != nil {
		return fmt.Errorf("hookline/redis: register event type: %w", err)
	}

	// Score 0 keeps the index in lexical order by name.
	err := s.rdb.ZAdd(ctx, zEventTypeAll, goredis.Z{Score: 0, Member: m.Name}).Err()
	if err != nil {
		return fmt.Errorf("hookline/redis: register event type index: %w", err)
	}

	return nil
}

// GetEventType returns an event type by name.
func (s *Store) GetEventType(ctx context.Context, name string) (*catalog.EventType, error) {
	var m eventTypeModel

	if err := s.getEntity(ctx, entityKey(prefixEventType, name), &m); err != nil {
		if isRedisNil(err) {
			return nil, catalog.ErrEventTypeNotFound
		}

		return nil, fmt.Errorf("hookline/redis: get event type: %w", err)
	}

	return fromEventTypeModel(&m), nil
}

// ListEventTypes returns registered event types.
func (s *Store) ListEventTypes(ctx context.Context, opts catalog.ListOpts) ([]*catalog.EventType, error) {
	names, err := s.rdb.ZRange(ctx, zEventTypeAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: list event types: %w", err)
	}

	result := make([]*catalog.EventType, 0, len(names))
	for _, name := range names {
		et, err := s.GetEventType(ctx, name)
		if err != nil {
			if errors.Is(err, catalog.ErrEventTypeNotFound) {
				continue
			}
			return nil, err
		}

		if et.IsDeprecated && !opts.IncludeDeprecated {
			continue
		}

		result = append(result, et)
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

// DeprecateEventType marks an event type as no longer accepting events.
func (s *Store) DeprecateEventType(ctx context.Context, name string) error {
	et, err := s.GetEventType(ctx, name)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	et.IsDeprecated = true
	et.DeprecatedAt = &now
	et.UpdatedAt = now

	if err := s.setEntity(ctx, entityKey(prefixEventType, name), toEventTypeModel(et)); err != nil {
		return fmt.Errorf("hookline/redis: deprecate event type: %w", err)
	}

	return nil
}

// RegisterSourceModule creates or updates a source module, keyed by name.
func (s *Store) RegisterSourceModule(ctx context.Context, sm *catalog.SourceModule) error {
	m := toSourceModuleModel(sm)

	if err := s.setEntity(ctx, entityKey(prefixSourceModule, m.Name), m); err != nil {
		return fmt.Errorf("hookline/redis: register source module: %w", err)
	}

	err := s.rdb.ZAdd(ctx, zSourceModuleAll, goredis.Z{Score: 0, Member: m.Name}).Err()
	if err != nil {
		return fmt.Errorf("hookline/redis: register source module index: %w", err)
	}

	return nil
}

// GetSourceModule returns a source module by name.
func (s *Store) GetSourceModule(ctx context.Context, name string) (*catalog.SourceModule, error) {
	var m sourceModuleModel

	if err := s.getEntity(ctx, entityKey(prefixSourceModule, name), &m); err != nil {
		if isRedisNil(err) {
			return nil, catalog.ErrSourceModuleNotFound
		}

		return nil, fmt.Errorf("hookline/redis: get source module: %w", err)
	}

	return fromSourceModuleModel(&m), nil
}

// ListSourceModules returns registered source modules.
func (s *Store) ListSourceModules(ctx context.Context, opts catalog.ListOpts) ([]*catalog.SourceModule, error) {
	names, err := s.rdb.ZRange(ctx, zSourceModuleAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: list source modules: %w", err)
	}

	names = applyPagination(names, opts.Offset, opts.Limit)

	result := make([]*catalog.SourceModule, 0, len(names))
	for _, name := range names {
		sm, err := s.GetSourceModule(ctx, name)
		if err != nil {
			if errors.Is(err, catalog.ErrSourceModuleNotFound) {
				continue
			}
			return nil, err
		}

		result = append(result, sm)
	}

	return result, nil
}

// Package memory provides an in-memory Store implementation for unit
// testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	hookline "github.com/hookline/hookline"
	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/store"
	"github.com/hookline/hookline/subscription"
)

// compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store for testing.
type Store struct {
	mu sync.RWMutex

	eventTypes      map[string]*catalog.EventType    // keyed by name
	sourceModules   map[string]*catalog.SourceModule // keyed by name
	events          map[string]*event.Event          // keyed by ID string
	eventsByIdemKey map[string]*event.Event          // keyed by idempotency key
	subscriptions   map[string]*subscription.Subscription
	logs            map[string]*deliverylog.Log

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		eventTypes:      make(map[string]*catalog.EventType),
		sourceModules:   make(map[string]*catalog.SourceModule),
		events:          make(map[string]*event.Event),
		eventsByIdemKey: make(map[string]*event.Event),
		subscriptions:   make(map[string]*subscription.Subscription),
		logs:            make(map[string]*deliverylog.Log),
	}
}

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports whether the store is still open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return hookline.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// RegisterEventType creates or updates an event type (upsert by name).
func (s *Store) RegisterEventType(_ context.Context, et *catalog.EventType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.eventTypes[et.Definition.Name]; ok {
		existing.Definition = et.Definition
		existing.UpdatedAt = time.Now().UTC()
		return nil
	}

	s.eventTypes[et.Definition.Name] = et
	return nil
}

// GetEventType returns an event type by name.
func (s *Store) GetEventType(_ context.Context, name string) (*catalog.EventType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	et, ok := s.eventTypes[name]
	if !ok {
		return nil, catalog.ErrEventTypeNotFound
	}
	return et, nil
}

// ListEventTypes returns registered event types sorted by name.
func (s *Store) ListEventTypes(_ context.Context, opts catalog.ListOpts) ([]*catalog.EventType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*catalog.EventType, 0, len(s.eventTypes))
	for _, et := range s.eventTypes {
		if !opts.IncludeDeprecated && et.IsDeprecated {
			continue
		}
		result = append(result, et)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Definition.Name < result[j].Definition.Name
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// DeprecateEventType marks an event type as no longer accepting events.
func (s *Store) DeprecateEventType(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	et, ok := s.eventTypes[name]
	if !ok {
		return catalog.ErrEventTypeNotFound
	}

	now := time.Now().UTC()
	et.IsDeprecated = true
	et.DeprecatedAt = &now
	et.UpdatedAt = now
	return nil
}

// RegisterSourceModule creates or updates a source module (upsert by name).
func (s *Store) RegisterSourceModule(_ context.Context, sm *catalog.SourceModule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sourceModules[sm.Name]; ok {
		existing.Description = sm.Description
		existing.UpdatedAt = time.Now().UTC()
		return nil
	}

	s.sourceModules[sm.Name] = sm
	return nil
}

// GetSourceModule returns a source module by name.
func (s *Store) GetSourceModule(_ context.Context, name string) (*catalog.SourceModule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sm, ok := s.sourceModules[name]
	if !ok {
		return nil, catalog.ErrSourceModuleNotFound
	}
	return sm, nil
}

// ListSourceModules returns registered source modules sorted by name.
func (s *Store) ListSourceModules(_ context.Context, opts catalog.ListOpts) ([]*catalog.SourceModule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*catalog.SourceModule, 0, len(s.sourceModules))
	for _, sm := range s.sourceModules {
		result = append(result, sm)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// CreateEvent persists an event. Returns ErrDuplicateIdempotencyKey on
// conflict, mirroring a unique index violation.
func (s *Store) CreateEvent(_ context.Context, evt *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if evt.IdempotencyKey != "" {
		if _, ok := s.eventsByIdemKey[evt.IdempotencyKey]; ok {
			return event.ErrDuplicateIdempotencyKey
		}
		s.eventsByIdemKey[evt.IdempotencyKey] = evt
	}

	s.events[evt.ID.String()] = evt
	return nil
}

// GetEvent returns an event by internal ID.
func (s *Store) GetEvent(_ context.Context, evtID id.ID) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evt, ok := s.events[evtID.String()]
	if !ok {
		return nil, event.ErrNotFound
	}
	return evt, nil
}

// FindEventByIdempotencyKey returns the event recorded for a key.
func (s *Store) FindEventByIdempotencyKey(_ context.Context, key string) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evt, ok := s.eventsByIdemKey[key]
	if !ok {
		return nil, event.ErrNotFound
	}
	return evt, nil
}

// ListEvents returns events, newest first.
func (s *Store) ListEvents(_ context.Context, opts event.ListOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*event.Event, 0, len(s.events))
	for _, evt := range s.events {
		if !matchEventOpts(evt, opts) {
			continue
		}
		result = append(result, evt)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// CreateSubscription persists a new subscription.
func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions[sub.ID.String()] = sub
	return nil
}

// GetSubscription returns a subscription by ID.
func (s *Store) GetSubscription(_ context.Context, subID id.ID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[subID.String()]
	if !ok {
		return nil, subscription.ErrNotFound
	}
	return sub, nil
}

// UpdateSubscription modifies an existing subscription.
func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[sub.ID.String()]; !ok {
		return subscription.ErrNotFound
	}
	sub.UpdatedAt = time.Now().UTC()
	s.subscriptions[sub.ID.String()] = sub
	return nil
}

// DeleteSubscription removes a subscription.
func (s *Store) DeleteSubscription(_ context.Context, subID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[subID.String()]; !ok {
		return subscription.ErrNotFound
	}
	delete(s.subscriptions, subID.String())
	return nil
}

// ListSubscriptions returns subscriptions ordered by creation time.
func (s *Store) ListSubscriptions(_ context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		if opts.IsActive != nil && sub.IsActive != *opts.IsActive {
			continue
		}
		result = append(result, sub)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// ResolveActive finds all active subscriptions wanting the event type.
func (s *Store) ResolveActive(_ context.Context, eventType string) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subscription.Subscription
	for _, sub := range s.subscriptions {
		if sub.IsActive && sub.Wants(eventType) {
			result = append(result, sub)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// SetActive activates or deactivates a subscription.
func (s *Store) SetActive(_ context.Context, subID id.ID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[subID.String()]
	if !ok {
		return subscription.ErrNotFound
	}
	sub.IsActive = active
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

// copyLog returns a shallow copy so callers can mutate without a lock.
func copyLog(l *deliverylog.Log) *deliverylog.Log {
	cp := *l
	return &cp
}

// CreateLog persists a new delivery attempt row.
func (s *Store) CreateLog(_ context.Context, l *deliverylog.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs[l.ID.String()] = copyLog(l)
	return nil
}

// UpdateLog modifies an existing attempt row.
func (s *Store) UpdateLog(_ context.Context, l *deliverylog.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logs[l.ID.String()]; !ok {
		return deliverylog.ErrNotFound
	}
	s.logs[l.ID.String()] = copyLog(l)
	return nil
}

// GetLog returns a copy of an attempt row by ID.
func (s *Store) GetLog(_ context.Context, logID id.ID) (*deliverylog.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.logs[logID.String()]
	if !ok {
		return nil, deliverylog.ErrNotFound
	}
	return copyLog(l), nil
}

// ListByEvent returns attempt rows for an event, newest first.
func (s *Store) ListByEvent(_ context.Context, evtID id.ID, opts deliverylog.ListOpts) ([]*deliverylog.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*deliverylog.Log
	for _, l := range s.logs {
		if l.EventID.String() != evtID.String() {
			continue
		}
		if opts.Status != nil && l.Status != *opts.Status {
			continue
		}
		result = append(result, copyLog(l))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// ListBySubscription returns attempt history for a subscription, newest first.
func (s *Store) ListBySubscription(_ context.Context, subID id.ID, opts deliverylog.ListOpts) ([]*deliverylog.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*deliverylog.Log
	for _, l := range s.logs {
		if l.SubscriptionID.String() != subID.String() {
			continue
		}
		if opts.Status != nil && l.Status != *opts.Status {
			continue
		}
		result = append(result, copyLog(l))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// LatestAttempt returns the highest-numbered attempt row for a pair.
func (s *Store) LatestAttempt(_ context.Context, evtID, subID id.ID) (*deliverylog.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *deliverylog.Log
	for _, l := range s.logs {
		if l.EventID.String() != evtID.String() || l.SubscriptionID.String() != subID.String() {
			continue
		}
		if latest == nil || l.Attempt > latest.Attempt {
			latest = l
		}
	}

	if latest == nil {
		return nil, deliverylog.ErrNotFound
	}
	return copyLog(latest), nil
}

// CountByStatus returns the number of attempt rows with the given status.
func (s *Store) CountByStatus(_ context.Context, status deliverylog.Status) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, l := range s.logs {
		if l.Status == status {
			count++
		}
	}
	return count, nil
}

func matchEventOpts(evt *event.Event, opts event.ListOpts) bool {
	if opts.Type != "" && evt.Type != opts.Type {
		return false
	}
	if opts.From != nil && evt.CreatedAt.Before(*opts.From) {
		return false
	}
	if opts.To != nil && evt.CreatedAt.After(*opts.To) {
		return false
	}
	return true
}

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		return nil
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}

// Package bunstore implements store.Store on a SQL database via the Bun
// ORM. It works with both the Postgres and SQLite dialects; the caller owns
// dialect selection through the *bun.DB it passes in.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/store"
	"github.com/hookline/hookline/subscription"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store implements store.Store using the Bun ORM.
type Store struct {
	db *bun.DB
}

// New creates a new Bun-backed store.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying Bun database for direct access.
func (s *Store) DB() *bun.DB { return s.db }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{
		(*eventTypeModel)(nil),
		(*sourceModuleModel)(nil),
		(*eventModel)(nil),
		(*subscriptionModel)(nil),
		(*deliveryLogModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("hookline/bunstore: migrate: %w", err)
		}
	}

	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_hookline_events_idempotency ON hookline_events (idempotency_key)",
		"CREATE INDEX IF NOT EXISTS idx_hookline_events_type ON hookline_events (event_type)",
		"CREATE INDEX IF NOT EXISTS idx_hookline_subscriptions_active ON hookline_subscriptions (is_active)",
		"CREATE INDEX IF NOT EXISTS idx_hookline_delivery_logs_event ON hookline_delivery_logs (event_id)",
		"CREATE INDEX IF NOT EXISTS idx_hookline_delivery_logs_sub ON hookline_delivery_logs (subscription_id)",
		"CREATE INDEX IF NOT EXISTS idx_hookline_delivery_logs_pair ON hookline_delivery_logs (event_id, subscription_id, delivery_attempt)",
		"CREATE INDEX IF NOT EXISTS idx_hookline_delivery_logs_status ON hookline_delivery_logs (status)",
	}
	for _, ddl := range indexes {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("hookline/bunstore: migrate indexes: %w", err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Catalog Store ====================

func (s *Store) RegisterEventType(ctx context.Context, et *catalog.EventType) error {
	m := toEventTypeModel(et)
	_, err := s.db.NewInsert().
		Model(m).
		On("CONFLICT (name) DO UPDATE").
		Set("description = EXCLUDED.description").
		Set("schema = EXCLUDED.schema").
		Set("is_deprecated = false").
		Set("deprecated_at = NULL").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetEventType(ctx context.Context, name string) (*catalog.EventType, error) {
	m := new(eventTypeModel)
	err := s.db.NewSelect().
		Model(m).
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrEventTypeNotFound
		}
		return nil, err
	}
	return fromEventTypeModel(m), nil
}

func (s *Store) ListEventTypes(ctx context.Context, opts catalog.ListOpts) ([]*catalog.EventType, error) {
	var models []eventTypeModel
	q := s.db.NewSelect().Model(&models)

	if !opts.IncludeDeprecated {
		q = q.Where("is_deprecated = false")
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.Order("name ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*catalog.EventType, len(models))
	for i := range models {
		result[i] = fromEventTypeModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeprecateEventType(ctx context.Context, name string) error {
	now := time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model((*eventTypeModel)(nil)).
		Set("is_deprecated = true").
		Set("deprecated_at = ?", now).
		Set("updated_at = ?", now).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return catalog.ErrEventTypeNotFound
	}
	return nil
}

func (s *Store) RegisterSourceModule(ctx context.Context, sm *catalog.SourceModule) error {
	m := toSourceModuleModel(sm)
	_, err := s.db.NewInsert().
		Model(m).
		On("CONFLICT (name) DO UPDATE").
		Set("description = EXCLUDED.description").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetSourceModule(ctx context.Context, name string) (*catalog.SourceModule, error) {
	m := new(sourceModuleModel)
	err := s.db.NewSelect().
		Model(m).
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrSourceModuleNotFound
		}
		return nil, err
	}
	return fromSourceModuleModel(m), nil
}

func (s *Store) ListSourceModules(ctx context.Context, opts catalog.ListOpts) ([]*catalog.SourceModule, error) {
	var models []sourceModuleModel
	q := s.db.NewSelect().Model(&models)

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.Order("name ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*catalog.SourceModule, len(models))
	for i := range models {
		result[i] = fromSourceModuleModel(&models[i])
	}
	return result, nil
}

// ==================== Event Store ====================

func (s *Store) CreateEvent(ctx context.Context, evt *event.Event) error {
	m := toEventModel(evt)

	// ON CONFLICT DO NOTHING turns a duplicate idempotency key into zero
	// affected rows instead of a driver-specific constraint error.
	res, err := s.db.NewInsert().
		Model(m).
		On("CONFLICT (idempotency_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return event.ErrDuplicateIdempotencyKey
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error) {
	m := new(eventModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", evtID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event.ErrNotFound
		}
		return nil, err
	}
	return fromEventModel(m)
}

func (s *Store) FindEventByIdempotencyKey(ctx context.Context, key string) (*event.Event, error) {
	m := new(eventModel)
	err := s.db.NewSelect().
		Model(m).
		Where("idempotency_key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event.ErrNotFound
		}
		return nil, err
	}
	return fromEventModel(m)
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel
	q := s.db.NewSelect().Model(&models)

	if opts.Type != "" {
		q = q.Where("event_type = ?", opts.Type)
	}
	if opts.From != nil {
		q = q.Where("created_at >= ?", *opts.From)
	}
	if opts.To != nil {
		q = q.Where("created_at <= ?", *opts.To)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.Order("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		evt, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = evt
	}
	return result, nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m, err := toSubscriptionModel(sub)
	if err != nil {
		return err
	}
	_, err = s.db.NewInsert().Model(m).Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subID id.ID) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", subID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, subscription.ErrNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m, err := toSubscriptionModel(sub)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()

	res, err := s.db.NewUpdate().
		Model(m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, subID id.ID) error {
	res, err := s.db.NewDelete().
		Model((*subscriptionModel)(nil)).
		Where("id = ?", subID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.db.NewSelect().Model(&models)

	if opts.IsActive != nil {
		q = q.Where("is_active = ?", *opts.IsActive)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.Order("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

// ResolveActive loads the active rows and matches the event type set in
// memory; the set is a JSON string, so membership cannot be a SQL predicate
// across dialects.
func (s *Store) ResolveActive(ctx context.Context, eventType string) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	if err := s.db.NewSelect().
		Model(&models).
		Where("is_active = true").
		Scan(ctx); err != nil {
		return nil, err
	}

	var result []*subscription.Subscription
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		if sub.Wants(eventType) {
			result = append(result, sub)
		}
	}
	return result, nil
}

func (s *Store) SetActive(ctx context.Context, subID id.ID, active bool) error {
	res, err := s.db.NewUpdate().
		Model((*subscriptionModel)(nil)).
		Set("is_active = ?", active).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", subID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

// ==================== Delivery Log Store ====================

func (s *Store) CreateLog(ctx context.Context, l *deliverylog.Log) error {
	m := toDeliveryLogModel(l)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	return err
}

func (s *Store) UpdateLog(ctx context.Context, l *deliverylog.Log) error {
	m := toDeliveryLogModel(l)
	m.UpdatedAt = time.Now().UTC()

	res, err := s.db.NewUpdate().
		Model(m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return deliverylog.ErrNotFound
	}
	return nil
}

func (s *Store) GetLog(ctx context.Context, logID id.ID) (*deliverylog.Log, error) {
	m := new(deliveryLogModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", logID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, deliverylog.ErrNotFound
		}
		return nil, err
	}
	return fromDeliveryLogModel(m)
}

func (s *Store) ListByEvent(ctx context.Context, evtID id.ID, opts deliverylog.ListOpts) ([]*deliverylog.Log, error) {
	q := s.db.NewSelect().
		Where("event_id = ?", evtID.String()).
		Order("created_at ASC")
	return s.scanLogs(ctx, q, opts)
}

func (s *Store) ListBySubscription(ctx context.Context, subID id.ID, opts deliverylog.ListOpts) ([]*deliverylog.Log, error) {
	q := s.db.NewSelect().
		Where("subscription_id = ?", subID.String()).
		Order("created_at DESC")
	return s.scanLogs(ctx, q, opts)
}

func (s *Store) LatestAttempt(ctx context.Context, evtID, subID id.ID) (*deliverylog.Log, error) {
	m := new(deliveryLogModel)
	err := s.db.NewSelect().
		Model(m).
		Where("event_id = ?", evtID.String()).
		Where("subscription_id = ?", subID.String()).
		Order("delivery_attempt DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, deliverylog.ErrNotFound
		}
		return nil, err
	}
	return fromDeliveryLogModel(m)
}

func (s *Store) CountByStatus(ctx context.Context, status deliverylog.Status) (int64, error) {
	count, err := s.db.NewSelect().
		Model((*deliveryLogModel)(nil)).
		Where("status = ?", string(status)).
		Count(ctx)
	return int64(count), err
}

func (s *Store) scanLogs(ctx context.Context, q *bun.SelectQuery, opts deliverylog.ListOpts) ([]*deliverylog.Log, error) {
	var models []deliveryLogModel
	q = q.Model(&models)

	if opts.Status != nil {
		q = q.Where("status = ?", string(*opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*deliverylog.Log, len(models))
	for i := range models {
		l, err := fromDeliveryLogModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

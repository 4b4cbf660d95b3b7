package bunstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	"github.com/hookline/hookline/subscription"
)

type eventTypeModel struct {
	bun.BaseModel `bun:"table:hookline_event_types"`

	Name         string          `bun:"name,pk"`
	Description  string          `bun:"description"`
	Schema       json.RawMessage `bun:"schema,nullzero"`
	IsDeprecated bool            `bun:"is_deprecated"`
	DeprecatedAt *time.Time      `bun:"deprecated_at,nullzero"`
	CreatedAt    time.Time       `bun:"created_at"`
	UpdatedAt    time.Time       `bun:"updated_at"`
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

type sourceModuleModel struct {
	bun.BaseModel `bun:"table:hookline_source_modules"`

	Name        string    `bun:"name,pk"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at"`
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

type eventModel struct {
	bun.BaseModel `bun:"table:hookline_events"`

	ID             string          `bun:"id,pk"`
	PublicID       string          `bun:"public_id"`
	Type           string          `bun:"event_type"`
	SourceModule   string          `bun:"source_module"`
	Payload        json.RawMessage `bun:"payload"`
	IdempotencyKey string          `bun:"idempotency_key"`
	CreatedAt      time.Time       `bun:"created_at"`
	UpdatedAt      time.Time       `bun:"updated_at"`
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

type subscriptionModel struct {
	bun.BaseModel `bun:"table:hookline_subscriptions"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name"`
	Description string    `bun:"description"`
	WebhookURL  string    `bun:"webhook_url"`
	EventTypes  string    `bun:"event_types"`
	Secret      string    `bun:"secret"`
	IsActive    bool      `bun:"is_active"`
	RetryBudget int       `bun:"max_retries"`
	TimeoutNS   int64     `bun:"timeout_ns"`
	RateLimit   int       `bun:"rate_limit"`
	CreatedAt   time.Time `bun:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at"`
}

// Event type sets are stored as a JSON array string so the same model works
// on both the Postgres and SQLite dialects.
func toSubscriptionModel(sub *subscription.Subscription) (*subscriptionModel, error) {
	types, err := json.Marshal(sub.EventTypes)
	if err != nil {
		return nil, fmt.Errorf("marshal event types: %w", err)
	}

	return &subscriptionModel{
		ID:          sub.ID.String(),
		Name:        sub.Name,
		Description: sub.Description,
		WebhookURL:  sub.WebhookURL,
		EventTypes:  string(types),
		Secret:      sub.Secret,
		IsActive:    sub.IsActive,
		RetryBudget: sub.RetryBudget,
		TimeoutNS:   int64(sub.Timeout),
		RateLimit:   sub.RateLimit,
		CreatedAt:   sub.CreatedAt,
		UpdatedAt:   sub.UpdatedAt,
	}, nil
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.ID, err)
	}

	var types []string
	if m.EventTypes != "" {
		if err := json.Unmarshal([]byte(m.EventTypes), &types); err != nil {
			return nil, fmt.Errorf("unmarshal event types: %w", err)
		}
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
		EventTypes:  types,
		Secret:      m.Secret,
		IsActive:    m.IsActive,
		RetryBudget: m.RetryBudget,
		Timeout:     time.Duration(m.TimeoutNS),
		RateLimit:   m.RateLimit,
	}, nil
}

type deliveryLogModel struct {
	bun.BaseModel `bun:"table:hookline_delivery_logs"`

	ID             string     `bun:"id,pk"`
	EventID        string     `bun:"event_id"`
	SubscriptionID string     `bun:"subscription_id"`
	Attempt        int        `bun:"delivery_attempt"`
	Status         string     `bun:"status"`
	ResponseStatus int        `bun:"response_status"`
	ResponseBody   string     `bun:"response_body"`
	Error          string     `bun:"error"`
	DeliveredAt    *time.Time `bun:"delivered_at,nullzero"`
	NextRetryAt    *time.Time `bun:"next_retry_at,nullzero"`
	HMACVerified   bool       `bun:"hmac_verified"`
	CreatedAt      time.Time  `bun:"created_at"`
	UpdatedAt      time.Time  `bun:"updated_at"`
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

package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	"github.com/hookline/hookline/subscription"
)

// --- Event Type models ---

type eventTypeModel struct {
	Name         string          `bson:"name"`
	Description  string          `bson:"description,omitempty"`
	Schema       json.RawMessage `bson:"schema,omitempty"`
	IsDeprecated bool            `bson:"is_deprecated"`
	DeprecatedAt *time.Time      `bson:"deprecated_at,omitempty"`
	CreatedAt    time.Time       `bson:"created_at"`
	UpdatedAt    time.Time       `bson:"updated_at"`
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

// --- Source Module models ---

type sourceModuleModel struct {
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
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

// --- Event models ---

type eventModel struct {
	ID             string          `bson:"_id"`
	PublicID       string          `bson:"public_id"`
	Type           string          `bson:"event_type"`
	SourceModule   string          `bson:"source_module"`
	Payload        json.RawMessage `bson:"payload"`
	IdempotencyKey string          `bson:"idempotency_key"`
	CreatedAt      time.Time       `bson:"created_at"`
	UpdatedAt      time.Time       `bson:"updated_at"`
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

// --- Subscription models ---

type subscriptionModel struct {
	ID          string        `bson:"_id"`
	Name        string        `bson:"name"`
	Description string        `bson:"description,omitempty"`
	WebhookURL  string        `bson:"webhook_url"`
	EventTypes  []string      `bson:"event_types"`
	Secret      string        `bson:"secret"`
	IsActive    bool          `bson:"is_active"`
	RetryBudget int           `bson:"max_retries"`
	Timeout     time.Duration `bson:"timeout"`
	RateLimit   int           `bson:"rate_limit"`
	CreatedAt   time.Time     `bson:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at"`
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

// --- Delivery Log models ---

type deliveryLogModel struct {
	ID             string     `bson:"_id"`
	EventID        string     `bson:"event_id"`
	SubscriptionID string     `bson:"subscription_id"`
	Attempt        int        `bson:"delivery_attempt"`
	Status         string     `bson:"status"`
	ResponseStatus int        `bson:"response_status,omitempty"`
	ResponseBody   string     `bson:"response_body,omitempty"`
	Error          string     `bson:"error,omitempty"`
	DeliveredAt    *time.Time `bson:"delivered_at,omitempty"`
	NextRetryAt    *time.Time `bson:"next_retry_at,omitempty"`
	HMACVerified   bool       `bson:"hmac_verified"`
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
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

package subscription

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	"github.com/hookline/hookline/signature"
)

// Defaults supplies fallback delivery policy for subscriptions created
// without explicit values.
type Defaults struct {
	MaxRetries int
	Timeout    time.Duration
}

// Service provides subscription management operations.
type Service struct {
	store    Store
	defaults Defaults
	logger   *slog.Logger
}

// NewService creates a new subscription service.
func NewService(store Store, defaults Defaults, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		defaults: defaults,
		logger:   logger,
	}
}

// Create registers a new subscription. The signing secret is generated here,
// returned exactly once on the created subscription, and never re-read.
func (svc *Service) Create(ctx context.Context, in Input) (*Subscription, error) {
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if err := validateURL(in.WebhookURL); err != nil {
		return nil, err
	}
	if len(in.EventTypes) == 0 {
		return nil, &ValidationError{Field: "event_types", Message: "at least one event type required"}
	}

	retries := in.MaxRetries
	if retries == 0 {
		retries = svc.defaults.MaxRetries
	}
	if retries < MinRetries || retries > MaxRetries {
		return nil, &ValidationError{Field: "max_retries", Message: "must be between 1 and 10"}
	}

	timeout := in.Timeout
	if timeout == 0 {
		timeout = svc.defaults.Timeout
	}
	if timeout < MinTimeout || timeout > MaxTimeout {
		return nil, &ValidationError{Field: "timeout", Message: "must be between 1s and 30s"}
	}

	sub := &Subscription{
		Entity:      entity.New(),
		ID:          id.NewSubscriptionID(),
		Name:        in.Name,
		Description: in.Description,
		WebhookURL:  in.WebhookURL,
		EventTypes:  in.EventTypes,
		Secret:      signature.GenerateSecret(),
		IsActive:    true,
		RetryBudget: retries,
		Timeout:     timeout,
		RateLimit:   in.RateLimit,
	}

	if err := svc.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	svc.logger.DebugContext(ctx, "subscription created",
		"subscription_id", sub.ID,
		"event_types", sub.EventTypes,
	)

	return sub, nil
}

// Get returns a subscription by ID.
func (svc *Service) Get(ctx context.Context, subID id.ID) (*Subscription, error) {
	return svc.store.GetSubscription(ctx, subID)
}

// Update modifies an existing subscription. The secret is write-once and
// cannot be changed here.
func (svc *Service) Update(ctx context.Context, subID id.ID, in Input) (*Subscription, error) {
	sub, err := svc.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		sub.Name = in.Name
	}
	if in.Description != "" {
		sub.Description = in.Description
	}
	if in.WebhookURL != "" {
		if err := validateURL(in.WebhookURL); err != nil {
			return nil, err
		}
		sub.WebhookURL = in.WebhookURL
	}
	if len(in.EventTypes) > 0 {
		sub.EventTypes = in.EventTypes
	}
	if in.MaxRetries != 0 {
		if in.MaxRetries < MinRetries || in.MaxRetries > MaxRetries {
			return nil, &ValidationError{Field: "max_retries", Message: "must be between 1 and 10"}
		}
		sub.RetryBudget = in.MaxRetries
	}
	if in.Timeout != 0 {
		if in.Timeout < MinTimeout || in.Timeout > MaxTimeout {
			return nil, &ValidationError{Field: "timeout", Message: "must be between 1s and 30s"}
		}
		sub.Timeout = in.Timeout
	}
	if in.RateLimit >= 0 {
		sub.RateLimit = in.RateLimit
	}

	if err := svc.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// Delete removes a subscription.
func (svc *Service) Delete(ctx context.Context, subID id.ID) error {
	return svc.store.DeleteSubscription(ctx, subID)
}

// List returns subscriptions matching the given options.
func (svc *Service) List(ctx context.Context, opts ListOpts) ([]*Subscription, error) {
	return svc.store.ListSubscriptions(ctx, opts)
}

// SetActive activates or deactivates a subscription.
func (svc *Service) SetActive(ctx context.Context, subID id.ID, active bool) error {
	return svc.store.SetActive(ctx, subID, active)
}

func validateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return &ValidationError{Field: "webhook_url", Message: "invalid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "webhook_url", Message: "scheme must be http or https"}
	}
	return nil
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "subscription validation: " + e.Field + ": " + e.Message
}

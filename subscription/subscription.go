// Package subscription defines delivery targets and their event-type
// interests.
package subscription

import (
	"slices"
	"time"

	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
)

// Limits on per-subscription delivery policy.
const (
	MinRetries = 1
	MaxRetries = 10

	MinTimeout = 1 * time.Second
	MaxTimeout = 30 * time.Second
)

// Subscription is a registered external endpoint plus the event types it
// wants and its signing secret. Subscriptions are read-only from the delivery
// path; only the management service mutates them.
type Subscription struct {
	entity.Entity

	// ID is the unique TypeID for this subscription.
	ID id.ID `json:"id"`

	// Name is a human-readable label.
	Name string `json:"name"`

	// Description is an optional longer description.
	Description string `json:"description,omitempty"`

	// WebhookURL is the http/https delivery URL.
	WebhookURL string `json:"webhook_url"`

	// EventTypes is the non-empty set of event type names this subscription
	// receives.
	EventTypes []string `json:"event_types"`

	// Secret is the HMAC signing secret. Generated once at creation, never
	// serialized, never re-read by callers.
	Secret string `json:"-"`

	// IsActive indicates whether the subscription receives deliveries.
	IsActive bool `json:"is_active"`

	// RetryBudget is the maximum number of delivery attempts per event,
	// between MinRetries and MaxRetries.
	RetryBudget int `json:"max_retries"`

	// Timeout bounds each delivery HTTP request, between MinTimeout and
	// MaxTimeout.
	Timeout time.Duration `json:"timeout"`

	// RateLimit is the maximum deliveries per second. 0 means unlimited.
	RateLimit int `json:"rate_limit"`
}

// Wants reports whether the subscription's event type set contains the given
// type. Matching is exact set membership.
func (s *Subscription) Wants(eventType string) bool {
	return slices.Contains(s.EventTypes, eventType)
}

// ListOpts configures filtering and pagination for subscription listing.
type ListOpts struct {
	Offset   int
	Limit    int
	IsActive *bool
}

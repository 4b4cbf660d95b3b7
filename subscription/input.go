package subscription

import "time"

// Input is the creation/update payload for subscriptions.
type Input struct {
	// Name is a human-readable label.
	Name string `json:"name"`

	// Description is an optional longer description.
	Description string `json:"description,omitempty"`

	// WebhookURL is the http/https delivery URL.
	WebhookURL string `json:"webhook_url"`

	// EventTypes is the set of event type names to receive. Required and
	// non-empty on create.
	EventTypes []string `json:"event_types"`

	// MaxRetries is the per-event delivery attempt budget. Defaulted when 0
	// on create.
	MaxRetries int `json:"max_retries"`

	// Timeout bounds each delivery HTTP request. Defaulted when 0 on create.
	Timeout time.Duration `json:"timeout"`

	// RateLimit is the maximum deliveries per second. 0 means unlimited.
	RateLimit int `json:"rate_limit"`
}

// Package deliverylog defines the durable record of delivery attempts.
package deliverylog

import (
	"time"

	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
)

// Status represents the state of a single delivery attempt.
type Status string

const (
	// StatusPending indicates the attempt is in flight.
	StatusPending Status = "pending"

	// StatusSuccess indicates the subscriber received the request (any
	// response below 500). Terminal; no further attempts follow.
	StatusSuccess Status = "success"

	// StatusFailed indicates the attempt failed and no further attempt is
	// scheduled. Terminal when the attempt count reached the subscription's
	// retry budget.
	StatusFailed Status = "failed"

	// StatusRetrying indicates the attempt failed but another attempt is
	// scheduled.
	StatusRetrying Status = "retrying"
)

// Field caps. Response bodies are truncated to MaxResponseBody characters
// before storage; the column itself tolerates up to 10000. Error messages are
// truncated to MaxErrorLen.
const (
	MaxResponseBody = 5000
	MaxErrorLen     = 2000
)

// Log is one delivery attempt for one (event, subscription) pair. Each retry
// creates a new row with an incremented attempt number; rows are written by
// exactly one worker and never mutated concurrently.
type Log struct {
	entity.Entity

	// ID is the unique TypeID for this attempt.
	ID id.ID `json:"id"`

	// EventID references the event being delivered.
	EventID id.ID `json:"event_id"`

	// SubscriptionID references the target subscription.
	SubscriptionID id.ID `json:"subscription_id"`

	// Attempt is the delivery attempt number, counted from 1.
	Attempt int `json:"delivery_attempt"`

	// Status is the attempt outcome.
	Status Status `json:"status"`

	// ResponseStatus is the HTTP status returned by the subscriber, if any.
	ResponseStatus int `json:"response_status,omitempty"`

	// ResponseBody is the subscriber's response body, truncated to
	// MaxResponseBody characters.
	ResponseBody string `json:"response_body,omitempty"`

	// Error is the failure message from a transport or HTTP error, truncated
	// to MaxErrorLen characters.
	Error string `json:"error,omitempty"`

	// DeliveredAt is set when the attempt succeeded.
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	// NextRetryAt is set when another attempt has been scheduled.
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`

	// HMACVerified records that the payload signature was computed and
	// attached for this attempt.
	HMACVerified bool `json:"hmac_verified"`
}

// Truncate returns s cut to at most n characters.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ListOpts configures filtering and pagination for delivery log listing.
type ListOpts struct {
	Offset int
	Limit  int
	Status *Status
}

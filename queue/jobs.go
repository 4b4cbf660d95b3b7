package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hookline/hookline/id"
)

// Job names understood by the hookline worker pools.
const (
	// JobRouteEvent fans an admitted event out to matching subscriptions.
	JobRouteEvent = "event.route"

	// JobDeliver performs one signed delivery attempt.
	JobDeliver = "delivery.attempt"
)

// RoutePayload is the payload of a JobRouteEvent job.
type RoutePayload struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
}

// DeliverPayload is the payload of a JobDeliver job.
type DeliverPayload struct {
	EventID        string `json:"event_id"`
	SubscriptionID string `json:"subscription_id"`
	Attempt        int    `json:"delivery_attempt"`
}

// NewRouteJob builds the single routing job enqueued after an event is
// durably stored.
func NewRouteJob(eventID id.ID, eventType string) (*Job, error) {
	payload, err := json.Marshal(RoutePayload{
		EventID:   eventID.String(),
		EventType: eventType,
	})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal route payload: %w", err)
	}

	now := time.Now().UTC()
	return &Job{
		ID:         id.NewJobID().String(),
		Name:       JobRouteEvent,
		Payload:    payload,
		RunAt:      now,
		EnqueuedAt: now,
	}, nil
}

// NewDeliverJob builds one delivery job for an (event, subscription) pair.
// The job identity is derived from the pair plus the current nanosecond clock
// so retries never collide with earlier attempts. There is intentionally no
// stronger dedup key: a double-enqueued pair may run concurrently, and the
// per-attempt delivery log rows keep that observable rather than hidden.
func NewDeliverJob(eventID, subscriptionID id.ID, attempt int, delay time.Duration) (*Job, error) {
	payload, err := json.Marshal(DeliverPayload{
		EventID:        eventID.String(),
		SubscriptionID: subscriptionID.String(),
		Attempt:        attempt,
	})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal deliver payload: %w", err)
	}

	now := time.Now().UTC()
	return &Job{
		ID:         fmt.Sprintf("%s:%s:%d", eventID, subscriptionID, now.UnixNano()),
		Name:       JobDeliver,
		Payload:    payload,
		RunAt:      now.Add(delay),
		EnqueuedAt: now,
	}, nil
}

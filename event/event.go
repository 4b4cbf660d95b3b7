// Package event defines the immutable event record and its persistence
// contract.
package event

import (
	"encoding/json"
	"time"

	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
)

// Event is an immutable record of something that happened upstream, eligible
// for relay to subscribers. Events are created exactly once by the ingestion
// gate and never mutated or deleted afterwards.
type Event struct {
	entity.Entity

	// ID is the internal TypeID for this event. Routing and delivery jobs
	// reference it.
	ID id.ID `json:"id"`

	// PublicID is the externally visible event identifier (UUID). It is
	// returned to ingestion callers and sent in delivery headers.
	PublicID string `json:"event_id"`

	// Type is the dot-separated event type name (e.g. "job.created").
	Type string `json:"event_type"`

	// SourceModule names the upstream system that emitted the event.
	SourceModule string `json:"source_module"`

	// Payload is the opaque JSON document relayed to subscribers unmodified.
	Payload json.RawMessage `json:"payload"`

	// IdempotencyKey is the caller-supplied deduplication token. Exactly one
	// event exists per distinct key.
	IdempotencyKey string `json:"idempotency_key"`
}

// ListOpts configures filtering and pagination for event listing.
type ListOpts struct {
	Offset int
	Limit  int
	Type   string
	From   *time.Time
	To     *time.Time
}

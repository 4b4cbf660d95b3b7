// Package catalog maintains the registry of known event types and source
// modules. Ingestion rejects events whose type or source is not registered;
// event types may additionally carry a JSON Schema for payload validation.
package catalog

import (
	"encoding/json"
	"time"

	"github.com/hookline/hookline/internal/entity"
)

// EventTypeDefinition describes a registerable event type.
type EventTypeDefinition struct {
	// Name is the dot-separated event type name (e.g. "job.created").
	Name string `json:"name"`

	// Description is a human-readable description.
	Description string `json:"description,omitempty"`

	// Schema is an optional JSON Schema the event payload must satisfy.
	Schema json.RawMessage `json:"schema,omitempty"`
}

// EventType is a registered event type definition.
type EventType struct {
	entity.Entity

	Definition EventTypeDefinition `json:"definition"`

	// IsDeprecated marks types that no longer accept new events.
	IsDeprecated bool `json:"is_deprecated"`

	// DeprecatedAt is when the type was deprecated.
	DeprecatedAt *time.Time `json:"deprecated_at,omitempty"`
}

// SourceModule is a registered upstream system allowed to emit events.
type SourceModule struct {
	entity.Entity

	// Name is the module identifier (e.g. "JOBS").
	Name string `json:"name"`

	// Description is a human-readable description.
	Description string `json:"description,omitempty"`
}

// ListOpts configures filtering and pagination for catalog listing.
type ListOpts struct {
	Offset            int
	Limit             int
	IncludeDeprecated bool
}

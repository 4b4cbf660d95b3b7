package catalog

import (
	"context"
	"errors"
)

// Sentinel errors returned by catalog stores and the validator.
var (
	// ErrEventTypeNotFound is returned when an event type is not registered.
	ErrEventTypeNotFound = errors.New("hookline: event type not found")

	// ErrSourceModuleNotFound is returned when a source module is not
	// registered.
	ErrSourceModuleNotFound = errors.New("hookline: source module not found")

	// ErrPayloadValidationFailed is returned when an event payload fails
	// JSON Schema validation.
	ErrPayloadValidationFailed = errors.New("hookline: payload validation failed")
)

// Store defines the persistence contract for the catalog.
type Store interface {
	// RegisterEventType creates or updates an event type (upsert by name).
	RegisterEventType(ctx context.Context, et *EventType) error

	// GetEventType returns an event type by name.
	GetEventType(ctx context.Context, name string) (*EventType, error)

	// ListEventTypes returns registered event types.
	ListEventTypes(ctx context.Context, opts ListOpts) ([]*EventType, error)

	// DeprecateEventType marks an event type as no longer accepting events.
	DeprecateEventType(ctx context.Context, name string) error

	// RegisterSourceModule creates or updates a source module (upsert by name).
	RegisterSourceModule(ctx context.Context, sm *SourceModule) error

	// GetSourceModule returns a source module by name.
	GetSourceModule(ctx context.Context, name string) (*SourceModule, error)

	// ListSourceModules returns registered source modules.
	ListSourceModules(ctx context.Context, opts ListOpts) ([]*SourceModule, error)
}

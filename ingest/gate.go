// Package ingest admits events into the relay pipeline: validation,
// idempotent insert, and routing job submission.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hookline/hookline/catalog"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/internal/entity"
	"github.com/hookline/hookline/observability"
	"github.com/hookline/hookline/queue"
)

// ErrInvalidInput is returned when an ingestion request is malformed.
// Invalid input is rejected, never retried.
var ErrInvalidInput = errors.New("hookline: invalid input")

// Input is an ingestion request. All four fields are required.
type Input struct {
	EventType      string          `json:"event_type"`
	SourceModule   string          `json:"source_module"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// Result is the outcome of an ingestion request. Accept does not mean
// deliver: the gate responds once the event is durably stored and the routing
// job is submitted, long before any webhook goes out.
type Result struct {
	// EventID is the public event identifier (UUID).
	EventID string `json:"event_id"`

	// Duplicate is true when the idempotency key had already been seen and
	// the existing event's ID is returned.
	Duplicate bool `json:"duplicate,omitempty"`

	// InternalID is the store-level event identity.
	InternalID id.ID `json:"-"`
}

// Gate validates and idempotently admits incoming events.
type Gate struct {
	store     event.Store
	catalog   *catalog.Catalog
	validator *catalog.Validator
	queue     queue.Queue
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// Config holds gate dependencies beyond the required store and queue.
type Config struct {
	Catalog   *catalog.Catalog
	Validator *catalog.Validator
	Metrics   *observability.Metrics
}

// NewGate creates an ingestion gate.
func NewGate(store event.Store, q queue.Queue, cfg Config, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		store:     store,
		catalog:   cfg.Catalog,
		validator: cfg.Validator,
		queue:     q,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// Ingest validates the input, records the event exactly once per idempotency
// key, and enqueues one routing job for newly admitted events.
func (g *Gate) Ingest(ctx context.Context, in Input) (*Result, error) {
	if err := g.validate(ctx, in); err != nil {
		return nil, err
	}

	// Idempotency lookup: a seen key returns the existing event and
	// suppresses routing entirely.
	existing, err := g.store.FindEventByIdempotencyKey(ctx, in.IdempotencyKey)
	if err == nil {
		if g.metrics != nil {
			g.metrics.EventsDuplicateTotal.Inc()
		}
		return &Result{EventID: existing.PublicID, Duplicate: true, InternalID: existing.ID}, nil
	}
	if !errors.Is(err, event.ErrNotFound) {
		return nil, fmt.Errorf("ingest: idempotency lookup: %w", err)
	}

	evt := &event.Event{
		Entity:         entity.New(),
		ID:             id.NewEventID(),
		PublicID:       uuid.NewString(),
		Type:           in.EventType,
		SourceModule:   in.SourceModule,
		Payload:        in.Payload,
		IdempotencyKey: in.IdempotencyKey,
	}

	if err := g.store.CreateEvent(ctx, evt); err != nil {
		// A concurrent submission with the same key won the insert race.
		// Converge on the stored event instead of failing.
		if errors.Is(err, event.ErrDuplicateIdempotencyKey) {
			stored, findErr := g.store.FindEventByIdempotencyKey(ctx, in.IdempotencyKey)
			if findErr != nil {
				return nil, fmt.Errorf("ingest: converge on duplicate key: %w", findErr)
			}
			if g.metrics != nil {
				g.metrics.EventsDuplicateTotal.Inc()
			}
			return &Result{EventID: stored.PublicID, Duplicate: true, InternalID: stored.ID}, nil
		}
		return nil, fmt.Errorf("ingest: persist event: %w", err)
	}

	if g.metrics != nil {
		g.metrics.EventsIngestedTotal.Inc()
	}

	job, err := queue.NewRouteJob(evt.ID, evt.Type)
	if err != nil {
		g.logger.ErrorContext(ctx, "event stored but routing job not built",
			"event_id", evt.ID, "error", err)
		return &Result{EventID: evt.PublicID, InternalID: evt.ID}, nil
	}

	// Enqueue failure leaves the event durably stored but unrouted. That
	// inconsistency window is surfaced to operators through the log, not to
	// the ingestion caller.
	if err := g.queue.Enqueue(ctx, job); err != nil {
		g.logger.ErrorContext(ctx, "event stored but routing job not enqueued",
			"event_id", evt.ID, "event_type", evt.Type, "error", err)
		return &Result{EventID: evt.PublicID, InternalID: evt.ID}, nil
	}

	g.logger.DebugContext(ctx, "event admitted",
		"event_id", evt.ID,
		"event_type", evt.Type,
		"source_module", evt.SourceModule,
	)

	return &Result{EventID: evt.PublicID, InternalID: evt.ID}, nil
}

// validate enforces required fields and catalog membership.
func (g *Gate) validate(ctx context.Context, in Input) error {
	switch {
	case in.EventType == "":
		return fmt.Errorf("%w: event_type is required", ErrInvalidInput)
	case in.SourceModule == "":
		return fmt.Errorf("%w: source_module is required", ErrInvalidInput)
	case len(in.Payload) == 0:
		return fmt.Errorf("%w: payload is required", ErrInvalidInput)
	case in.IdempotencyKey == "":
		return fmt.Errorf("%w: idempotency_key is required", ErrInvalidInput)
	}

	if !json.Valid(in.Payload) {
		return fmt.Errorf("%w: payload is not valid JSON", ErrInvalidInput)
	}

	if g.catalog != nil {
		et, err := g.catalog.GetEventType(ctx, in.EventType)
		if err != nil {
			if errors.Is(err, catalog.ErrEventTypeNotFound) {
				return fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, in.EventType)
			}
			return fmt.Errorf("ingest: event type lookup: %w", err)
		}
		if et.IsDeprecated {
			return fmt.Errorf("%w: event type %q is deprecated", ErrInvalidInput, in.EventType)
		}

		if _, err := g.catalog.GetSourceModule(ctx, in.SourceModule); err != nil {
			if errors.Is(err, catalog.ErrSourceModuleNotFound) {
				return fmt.Errorf("%w: unknown source module %q", ErrInvalidInput, in.SourceModule)
			}
			return fmt.Errorf("ingest: source module lookup: %w", err)
		}

		if g.validator != nil && len(et.Definition.Schema) > 0 {
			if err := g.validator.Validate(et.Definition.Schema, in.Payload); err != nil {
				return fmt.Errorf("%w: %s", catalog.ErrPayloadValidationFailed, err.Error())
			}
		}
	}

	return nil
}

// Package hookline relays internal system events to external subscribers as
// signed webhooks.
//
// Hookline is a library, not a service. Import it into your application to
// get idempotent event ingestion, subscription matching, HMAC-SHA256 signed
// delivery with bounded exponential-backoff retries, and a durable log of
// every delivery attempt.
//
// Key features:
//   - Idempotent event ingestion keyed by caller-supplied idempotency keys
//   - Catalog of registered event types and source modules, with optional
//     JSON Schema payload validation
//   - Durable job queue contract with memory and Redis backends
//   - Composable store pattern with multiple backends (Mongo, Redis, Memory)
//   - Deterministic HMAC-SHA256 signature on every delivery
//   - Per-subscription retry budget, timeout, and rate limit
//
// Quick start:
//
//	hl, err := hookline.New(
//	    hookline.WithStore(memoryStore),
//	    hookline.WithQueue(memoryQueue),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	hl.Start(ctx)
//	defer hl.Stop(ctx)
//
//	res, err := hl.Ingest(ctx, ingest.Input{
//	    EventType:      "job.created",
//	    SourceModule:   "JOBS",
//	    Payload:        json.RawMessage(`{"id":1}`),
//	    IdempotencyKey: "k1",
//	})
package hookline

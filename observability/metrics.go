// Package observability provides metric instruments and tracing for the
// relay pipeline.
package observability

import (
	gu "github.com/xraph/go-utils/metrics"
)

// Metrics holds metric instruments for Hookline, backed by any go-utils
// MetricFactory.
type Metrics struct {
	EventsIngestedTotal  gu.Counter
	EventsDuplicateTotal gu.Counter
	DeliveriesTotal      gu.Counter
	DeliveryLatency      gu.Histogram
	RetriesScheduled     gu.Counter
	PendingDeliveries    gu.Gauge
}

// NewMetrics creates Hookline metric instruments using the supplied factory.
// Pass metrics.NewMetricsCollector() for standalone usage.
func NewMetrics(factory gu.MetricFactory) *Metrics {
	return &Metrics{
		EventsIngestedTotal:  factory.Counter("hookline_events_ingested_total"),
		EventsDuplicateTotal: factory.Counter("hookline_events_duplicate_total"),
		DeliveriesTotal:      factory.Counter("hookline_deliveries_total"),
		DeliveryLatency:      factory.Histogram("hookline_delivery_latency_seconds"),
		RetriesScheduled:     factory.Counter("hookline_retries_scheduled_total"),
		PendingDeliveries:    factory.Gauge("hookline_pending_deliveries"),
	}
}

// RecordDelivery records a delivery attempt with the given status and latency.
func (m *Metrics) RecordDelivery(status string, latencySeconds float64) {
	m.DeliveriesTotal.WithLabels(map[string]string{"status": status}).Inc()
	m.DeliveryLatency.Observe(latencySeconds)
}

package observability

import (
	gu "github.com/xraph/go-utils/metrics"
)

// Metrics holds metric instruments for the lounge engine, backed by any
// go-utils MetricFactory.
type Metrics struct {
	SubmittedTotal  gu.Counter
	DeliveriesTotal gu.Counter
	DeliveryLatency gu.Histogram
	RetriesTotal    gu.Counter
	QueueDepth      gu.Gauge
	RegistrySize    gu.Gauge
	EvictionsTotal  gu.Counter
}

// NewMetrics creates lounge metric instruments using the supplied factory.
func NewMetrics(factory gu.MetricFactory) *Metrics {
	return &Metrics{
		SubmittedTotal:  factory.Counter("lounge_messages_submitted_total"),
		DeliveriesTotal: factory.Counter("lounge_deliveries_total"),
		DeliveryLatency: factory.Histogram("lounge_delivery_latency_seconds"),
		RetriesTotal:    factory.Counter("lounge_delivery_retries_total"),
		QueueDepth:      factory.Gauge("lounge_queue_depth"),
		RegistrySize:    factory.Gauge("lounge_registry_size"),
		EvictionsTotal:  factory.Counter("lounge_registry_evictions_total"),
	}
}

// RecordDelivery records a delivery attempt with its outcome and latency.
func (m *Metrics) RecordDelivery(status string, latencySeconds float64) {
	m.DeliveriesTotal.WithLabels(map[string]string{"status": status}).Inc()
	m.DeliveryLatency.Observe(latencySeconds)
}

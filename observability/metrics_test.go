package observability

import (
	"testing"

	gu "github.com/xraph/go-utils/metrics"
)

func TestNewMetricsCreatesInstruments(t *testing.T) {
	m := NewMetrics(gu.NewMetricsCollector("test"))

	if m.SubmittedTotal == nil {
		t.Fatal("SubmittedTotal should not be nil")
	}
	if m.DeliveriesTotal == nil {
		t.Fatal("DeliveriesTotal should not be nil")
	}
	if m.DeliveryLatency == nil {
		t.Fatal("DeliveryLatency should not be nil")
	}
	if m.RetriesTotal == nil {
		t.Fatal("RetriesTotal should not be nil")
	}
	if m.QueueDepth == nil {
		t.Fatal("QueueDepth should not be nil")
	}
	if m.RegistrySize == nil {
		t.Fatal("RegistrySize should not be nil")
	}
	if m.EvictionsTotal == nil {
		t.Fatal("EvictionsTotal should not be nil")
	}
}

func TestRecordDelivery(t *testing.T) {
	m := NewMetrics(gu.NewMetricsCollector("test"))

	// Exercises the labeled counter and the latency histogram.
	m.RecordDelivery("delivered", 0.5)
	m.RecordDelivery("delivered", 1.2)
	m.RecordDelivery("failed", 0.3)
}

func TestInstrumentsAcceptUpdates(t *testing.T) {
	m := NewMetrics(gu.NewMetricsCollector("test"))

	m.SubmittedTotal.Inc()
	m.RetriesTotal.Inc()
	m.EvictionsTotal.Add(2)
	m.QueueDepth.Set(4)
	m.RegistrySize.Set(10)
}

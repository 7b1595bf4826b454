package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBookingCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Booking("public", "created", 10*time.Millisecond)
	m.Booking("public", "conflict", 5*time.Millisecond)
	m.Booking("public", "created", time.Millisecond)

	if got := testutil.ToFloat64(m.bookings.WithLabelValues("public", "created")); got != 2 {
		t.Fatalf("expected 2 created bookings, got %v", got)
	}
	if got := testutil.ToFloat64(m.bookings.WithLabelValues("public", "conflict")); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Booking("staff", "created", time.Second)
	m.Transition("confirmed", "ok")
	m.CacheLookup("hit")
	m.OutboxPublished(3)
	m.EventConsumed("t", "applied")
}

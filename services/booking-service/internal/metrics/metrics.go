// Package metrics holds the Prometheus collectors of the booking service. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bookly"

type Metrics struct {
	bookings        *prometheus.CounterVec
	bookingDuration prometheus.Histogram
	transitions     *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	outboxPublished prometheus.Counter
	eventsConsumed  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		bookings: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "booking",
				Name:      "attempts_total",
				Help:      "Booking attempts by entry point and outcome",
			},
			[]string{"source", "outcome"}, // created, conflict, invalid, not_found, error
		),
		bookingDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "booking",
				Name:      "duration_seconds",
				Help:      "Time spent in the booking transaction including retries",
				Buckets:   prometheus.DefBuckets,
			},
		),
		transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "booking",
				Name:      "status_transitions_total",
				Help:      "Appointment status changes by target status and outcome",
			},
			[]string{"to", "outcome"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Catalog cache lookups",
			},
			[]string{"result"}, // hit, miss, error
		),
		outboxPublished: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "outbox",
				Name:      "published_total",
				Help:      "Outbox events relayed to the event sink",
			},
		),
		eventsConsumed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analytics",
				Name:      "events_total",
				Help:      "Appointment events processed by the analytics aggregator",
			},
			[]string{"type", "outcome"}, // applied, duplicate, error
		),
	}
}

func (m *Metrics) Booking(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(source, outcome).Inc()
	m.bookingDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Transition(to, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to, outcome).Inc()
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) OutboxPublished(n int) {
	if m == nil {
		return
	}
	m.outboxPublished.Add(float64(n))
}

func (m *Metrics) EventConsumed(eventType, outcome string) {
	if m == nil {
		return
	}
	m.eventsConsumed.WithLabelValues(eventType, outcome).Inc()
}

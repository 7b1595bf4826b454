// Package analytics folds appointment events into per-day business metrics. Events arrive at
// least once; every repository deduplicates them through the inbox in the same unit of work
// as the counters.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/outbox"
)

// ConsumerName identifies the aggregator in the inbox.
const ConsumerName = "analytics"

// MaxRange bounds Daily queries.
const MaxRange = 366

// Delta is added to the counters of one business day.
type Delta struct {
	Day          string
	Booked       int
	Completed    int
	Cancelled    int
	RevenueCents int64
}

// Change is the effect of one event. CountAppointmentID, when set, is flagged as counted so
// it can no longer be hard-deleted.
type Change struct {
	BusinessID         string
	Deltas             []Delta
	CountAppointmentID string
}

type Day struct {
	Date         string `json:"date"`
	Booked       int    `json:"booked"`
	Completed    int    `json:"completed"`
	Cancelled    int    `json:"cancelled"`
	RevenueCents int64  `json:"-"`
	Revenue      string `json:"revenue"`
}

type Repository interface {
	// Apply reports false when the event was already applied.
	Apply(ctx context.Context, eventID, eventType string, ch Change) (bool, error)
	// Daily returns the days in [from, to] that have activity, ordered by date.
	Daily(ctx context.Context, businessID string, from, to time.Time) ([]Day, error)
}

type Aggregator struct {
	repo    Repository
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewAggregator(repo Repository, m *metrics.Metrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{repo: repo, metrics: m, logger: logger}
}

// Handle applies one delivered event. Malformed payloads are logged and dropped; only
// repository failures are returned so the delivery is retried.
func (a *Aggregator) Handle(ctx context.Context, eventID, eventType string, payload []byte) error {
	p, err := outbox.DecodeAppointmentPayload(payload)
	if err != nil || p.AppointmentID == "" || p.BusinessID == "" {
		a.logger.Error("invalid appointment payload", "event_id", eventID, "event_type", eventType, "err", err)
		a.metrics.EventConsumed(eventType, "invalid")
		return nil
	}

	ch, ok := changeFor(eventType, p)
	if !ok {
		a.metrics.EventConsumed(eventType, "ignored")
		return nil
	}

	applied, err := a.repo.Apply(ctx, eventID, eventType, ch)
	if err != nil {
		a.metrics.EventConsumed(eventType, "error")
		return err
	}
	if !applied {
		a.logger.Info("duplicate event ignored", "event_id", eventID, "event_type", eventType)
		a.metrics.EventConsumed(eventType, "duplicate")
		return nil
	}
	a.metrics.EventConsumed(eventType, "applied")
	a.logger.Debug("appointment metric recorded", "event_id", eventID, "event_type", eventType,
		"appointment_id", p.AppointmentID, "business_id", p.BusinessID)
	return nil
}

// Sink feeds relayed outbox records straight into the aggregator when no broker is configured.
func (a *Aggregator) Sink() outbox.SinkFunc {
	return func(ctx context.Context, records []outbox.Record) error {
		for _, r := range records {
			if err := a.Handle(ctx, r.EventID, r.EventType, r.Payload); err != nil {
				return err
			}
		}
		return nil
	}
}

func (a *Aggregator) Daily(ctx context.Context, businessID, from, to string) ([]Day, error) {
	var v errs.ValidationError
	start, err := availability.ParseDate(from)
	if err != nil {
		v.Add("from", err.Error())
	}
	end, err := availability.ParseDate(to)
	if err != nil {
		v.Add("to", err.Error())
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, errs.Validation("to", "must not be before from")
	}
	if end.Sub(start) > MaxRange*24*time.Hour {
		return nil, errs.Validation("to", "range is limited to one year")
	}

	days, err := a.repo.Daily(ctx, businessID, start, end)
	if err != nil {
		return nil, errs.Persistence("load daily metrics", err)
	}
	for i := range days {
		days[i].Revenue = model.FormatCents(days[i].RevenueCents)
	}
	return days, nil
}

// changeFor maps an event to its counter changes. Bookings count on the appointment date;
// a reschedule moves the booking between days.
func changeFor(eventType string, p outbox.AppointmentPayload) (Change, bool) {
	ch := Change{BusinessID: p.BusinessID, CountAppointmentID: p.AppointmentID}
	switch eventType {
	case outbox.TypeAppointmentBooked:
		ch.Deltas = []Delta{{Day: p.Date, Booked: 1}}

	case outbox.TypeAppointmentStatusChanged:
		switch model.Status(p.Status) {
		case model.StatusCancelled:
			ch.Deltas = []Delta{{Day: p.Date, Cancelled: 1}}
		case model.StatusCompleted:
			cents, _ := model.PriceCents(p.Price)
			ch.Deltas = []Delta{{Day: p.Date, Completed: 1, RevenueCents: cents}}
		}

	case outbox.TypeAppointmentRescheduled:
		if p.PreviousDate != "" && p.PreviousDate != p.Date {
			ch.Deltas = []Delta{{Day: p.PreviousDate, Booked: -1}, {Day: p.Date, Booked: 1}}
		}

	case outbox.TypeAppointmentDeleted:
		// Only appointments not yet counted can be deleted, so this reverses
		// whatever their earlier events are about to add.
		ch.CountAppointmentID = ""
		d := Delta{Day: p.Date, Booked: -1}
		if model.Status(p.Status) == model.StatusCancelled {
			d.Cancelled = -1
		}
		ch.Deltas = []Delta{d}

	default:
		return Change{}, false
	}
	return ch, true
}

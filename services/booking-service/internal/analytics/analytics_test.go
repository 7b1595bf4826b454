package analytics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/customer"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

const bizID = "biz-1"

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestAggregatesAppointmentLifecycle(t *testing.T) {
	ctx := context.Background()
	store, engine := newLifecycle(t)
	book := func(start string) model.Appointment { return bookAt(t, engine, start) }

	done := book("09:00")
	cancelled := book("10:00")
	moved := book("11:00")
	if _, err := engine.Transition(ctx, bizID, done.ID, model.StatusCompleted); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if _, err := engine.Cancel(ctx, bizID, cancelled.ID, "sick"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := engine.Reschedule(ctx, bizID, moved.ID, "2024-01-11", "11:00"); err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}

	agg := NewAggregator(NewMemory(store), nil, discard())
	relay := outbox.NewRelay(store, agg.Sink(), discard(), nil, outbox.RelayConfig{BatchSize: 2})
	n, err := relay.Flush(ctx)
	if err != nil || n != 6 {
		t.Fatalf("Flush = %d, %v; want 6 events", n, err)
	}

	days, err := agg.Daily(ctx, bizID, "2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("Daily failed: %v", err)
	}
	want := []Day{
		{Date: "2024-01-10", Booked: 2, Completed: 1, Cancelled: 1, RevenueCents: 2500, Revenue: "25.00"},
		{Date: "2024-01-11", Booked: 1, Revenue: "0.00"},
	}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %+v", len(want), days)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Fatalf("day %d = %+v, want %+v", i, days[i], want[i])
		}
	}

	var inUse *errs.InUseError
	for _, a := range []model.Appointment{done, cancelled, moved} {
		if err := engine.Delete(ctx, bizID, a.ID); !errors.As(err, &inUse) {
			t.Fatalf("aggregated appointment %s should not be deletable, got %v", a.ID, err)
		}
	}
}

func TestDeleteBeforeAggregationNetsOut(t *testing.T) {
	ctx := context.Background()
	store, engine := newLifecycle(t)

	cancelled := bookAt(t, engine, "10:00")
	done := bookAt(t, engine, "11:00")
	moved := bookAt(t, engine, "12:00")
	if _, err := engine.Cancel(ctx, bizID, cancelled.ID, ""); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := engine.Transition(ctx, bizID, done.ID, model.StatusCompleted); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if _, err := engine.Reschedule(ctx, bizID, moved.ID, "2024-01-11", "12:00"); err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}

	var inUse *errs.InUseError
	if err := engine.Delete(ctx, bizID, done.ID); !errors.As(err, &inUse) {
		t.Fatalf("completed appointment should not be deletable, got %v", err)
	}
	for _, a := range []model.Appointment{cancelled, moved} {
		if err := engine.Delete(ctx, bizID, a.ID); err != nil {
			t.Fatalf("Delete %s failed: %v", a.ID, err)
		}
	}

	agg := NewAggregator(NewMemory(store), nil, discard())
	relay := outbox.NewRelay(store, agg.Sink(), discard(), nil, outbox.RelayConfig{BatchSize: 10})
	if n, err := relay.Flush(ctx); err != nil || n != 8 {
		t.Fatalf("Flush = %d, %v; want 8 events", n, err)
	}

	days, err := agg.Daily(ctx, bizID, "2024-01-10", "2024-01-11")
	if err != nil {
		t.Fatalf("Daily failed: %v", err)
	}
	want := map[string]Day{
		"2024-01-10": {Date: "2024-01-10", Booked: 1, Completed: 1, RevenueCents: 2500, Revenue: "25.00"},
		"2024-01-11": {Date: "2024-01-11", Revenue: "0.00"},
	}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %+v", len(want), days)
	}
	for _, d := range days {
		if d != want[d.Date] {
			t.Fatalf("day %s = %+v, want %+v", d.Date, d, want[d.Date])
		}
	}

	left, err := store.ListAppointments(ctx, bizID, storage.AppointmentFilter{})
	if err != nil || len(left) != 1 || left[0].ID != done.ID || !left[0].Counted {
		t.Fatalf("expected only the counted completed appointment to remain, got %+v, %v", left, err)
	}
}

func newLifecycle(t *testing.T) (*storage.Memory, *booking.Engine) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemory()
	seed := []error{
		store.CreateBusiness(ctx, &model.Business{ID: bizID, OwnerID: "u1", Name: "Salon", Slug: "salon", Active: true}),
		store.CreateService(ctx, &model.Service{ID: "svc", BusinessID: bizID, Name: "Cut", Price: "25.00", DurationMinutes: 30, Active: true}),
		store.CreateStaff(ctx, &model.Staff{ID: "staff", BusinessID: bizID, Name: "Sam", Active: true}),
	}
	for _, err := range seed {
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
	engine := booking.NewEngine(store, customer.NewResolver(), nil, discard(), booking.Config{
		Now: func() time.Time { return time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local) },
	})
	return store, engine
}

func bookAt(t *testing.T, engine *booking.Engine, start string) model.Appointment {
	t.Helper()
	a, err := engine.Book(context.Background(), bizID, customer.Input{Name: "Ada", Email: "ada@example.com"},
		booking.AppointmentInput{ServiceID: "svc", StaffID: "staff", Date: "2024-01-10", StartTime: start, Source: model.SourceStaff})
	if err != nil {
		t.Fatalf("Book %s failed: %v", start, err)
	}
	return a
}

func TestHandleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregator(NewMemory(nil), nil, discard())
	evt, err := outbox.NewAppointmentEvent(outbox.TypeAppointmentBooked, outbox.AppointmentPayload{
		AppointmentID: "a1", BusinessID: bizID, Date: "2024-02-01", Status: "pending", Price: "10.00",
	})
	if err != nil {
		t.Fatalf("NewAppointmentEvent failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := agg.Handle(ctx, evt.EventID, evt.EventType, evt.Payload); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
	}
	days, _ := agg.Daily(ctx, bizID, "2024-02-01", "2024-02-01")
	if len(days) != 1 || days[0].Booked != 1 {
		t.Fatalf("expected a single booking, got %+v", days)
	}
}

func TestHandleDropsMalformedPayload(t *testing.T) {
	agg := NewAggregator(NewMemory(nil), nil, discard())
	if err := agg.Handle(context.Background(), "e1", outbox.TypeAppointmentBooked, []byte("{not json")); err != nil {
		t.Fatalf("malformed payloads should be dropped, got %v", err)
	}
}

func TestDailyValidatesRange(t *testing.T) {
	agg := NewAggregator(NewMemory(nil), nil, discard())
	tests := []struct {
		from, to, field string
	}{
		{"2024-13-01", "2024-01-02", "from"},
		{"2024-01-02", "2024-01-01", "to"},
		{"2023-01-01", "2024-12-31", "to"},
	}
	for _, tc := range tests {
		_, err := agg.Daily(context.Background(), bizID, tc.from, tc.to)
		var verr *errs.ValidationError
		if !errors.As(err, &verr) || verr.Fields[tc.field] == "" {
			t.Fatalf("Daily(%s, %s): expected %s error, got %v", tc.from, tc.to, tc.field, err)
		}
	}
}

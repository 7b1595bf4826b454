package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/outbox"
)

func TestMemoryInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	boom := errors.New("boom")
	err := m.InTx(ctx, func(q Queries) error {
		if err := q.CreateCustomer(ctx, &model.Customer{ID: "c1", BusinessID: "b1", Name: "Ann"}); err != nil {
			return err
		}
		if err := q.AppendEvent(ctx, outbox.Event{EventID: "e1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	c, err := m.GetCustomer(ctx, "b1", "c1")
	if err != nil || c != nil {
		t.Fatalf("customer should have been rolled back, got %+v (%v)", c, err)
	}
	if len(m.PendingEvents()) != 0 {
		t.Fatal("event should have been rolled back")
	}
}

func TestMemoryInTxCommits(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	err := m.InTx(ctx, func(q Queries) error {
		return q.CreateCustomer(ctx, &model.Customer{ID: "c1", BusinessID: "b1", Name: "Ann"})
	})
	if err != nil {
		t.Fatalf("InTx failed: %v", err)
	}
	if c, _ := m.GetCustomer(ctx, "b1", "c1"); c == nil {
		t.Fatal("expected committed customer")
	}
	if c, _ := m.GetCustomer(ctx, "other", "c1"); c != nil {
		t.Fatal("customer must not leak across businesses")
	}
}

func TestMemoryListStaffDayExcludesCancelled(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, a := range []model.Appointment{
		{ID: "a2", BusinessID: "b", StaffID: "s", Date: "2024-01-10", StartMinute: 660, EndMinute: 690, Status: model.StatusPending},
		{ID: "a1", BusinessID: "b", StaffID: "s", Date: "2024-01-10", StartMinute: 600, EndMinute: 630, Status: model.StatusConfirmed},
		{ID: "a3", BusinessID: "b", StaffID: "s", Date: "2024-01-10", StartMinute: 600, EndMinute: 630, Status: model.StatusCancelled},
		{ID: "a4", BusinessID: "b", StaffID: "s", Date: "2024-01-11", StartMinute: 600, EndMinute: 630, Status: model.StatusPending},
	} {
		a := a
		if err := m.CreateAppointment(ctx, &a); err != nil {
			t.Fatalf("CreateAppointment failed: %v", err)
		}
	}

	got, err := m.ListStaffDay(ctx, "s", "2024-01-10")
	if err != nil {
		t.Fatalf("ListStaffDay failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a2" {
		t.Fatalf("unexpected appointments %+v", got)
	}
}

func TestMemoryDuplicateUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.CreateUser(ctx, &model.User{ID: "u1", Username: "ann", Email: "ann@example.com"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	err := m.CreateUser(ctx, &model.User{ID: "u2", Username: "ann", Email: "other@example.com"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	u, _ := m.GetUserByLogin(ctx, "ANN@example.com")
	if u == nil || u.ID != "u1" {
		t.Fatalf("expected login by email, got %+v", u)
	}
}

func TestMemoryProcessUnpublished(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, id := range []string{"e1", "e2", "e3"} {
		_ = m.AppendEvent(ctx, outbox.Event{EventID: id})
	}

	var seen []string
	err := m.ProcessUnpublished(ctx, 2, func(_ context.Context, rs []outbox.Record) error {
		for _, r := range rs {
			seen = append(seen, r.EventID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ProcessUnpublished failed: %v", err)
	}
	if len(seen) != 2 || seen[0] != "e1" {
		t.Fatalf("unexpected batch %v", seen)
	}
	pending := m.PendingEvents()
	if len(pending) != 1 || pending[0].EventID != "e3" {
		t.Fatalf("unexpected pending %+v", pending)
	}

	_ = m.ProcessUnpublished(ctx, 10, func(context.Context, []outbox.Record) error { return errors.New("sink down") })
	if len(m.PendingEvents()) != 1 {
		t.Fatal("failed batch must stay pending")
	}
}

func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, a := range []model.Appointment{
		{ID: "a1", BusinessID: "b", Date: "2024-01-10", Status: model.StatusCompleted, Price: "25.00"},
		{ID: "a2", BusinessID: "b", Date: "2024-01-10", Status: model.StatusConfirmed, Price: "10.00"},
		{ID: "a3", BusinessID: "b", Date: "2024-01-12", Status: model.StatusPending, Price: "10.00"},
		{ID: "a4", BusinessID: "b", Date: "2024-01-09", Status: model.StatusCancelled, Price: "10.00"},
	} {
		a := a
		_ = m.CreateAppointment(ctx, &a)
	}
	st, err := m.AppointmentStats(ctx, "b", "2024-01-10")
	if err != nil {
		t.Fatalf("AppointmentStats failed: %v", err)
	}
	if st.Total != 4 || st.Today != 2 || st.Upcoming != 2 || st.RevenueCents != 2500 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if st.ByStatus[model.StatusCancelled] != 1 {
		t.Fatalf("unexpected status counts %v", st.ByStatus)
	}
}

package slot

import (
	"context"
	"errors"
	"testing"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

func seed(t *testing.T, store *storage.Memory, appts ...model.Appointment) {
	t.Helper()
	for _, a := range appts {
		a := a
		if err := store.CreateAppointment(context.Background(), &a); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
}

func TestValidateScenario(t *testing.T) {
	store := storage.NewMemory()
	seed(t, store, model.Appointment{
		ID: "existing", BusinessID: "b", StaffID: "s", Date: "2024-01-10",
		StartMinute: 600, EndMinute: 630, Status: model.StatusConfirmed,
	})
	ctx := context.Background()

	err := Validate(ctx, store, Slot{StaffID: "s", Date: "2024-01-10", Start: 615, End: 645}, "")
	var conflict *errs.ConflictError
	if !errors.As(err, &conflict) || conflict.AppointmentID != "existing" {
		t.Fatalf("expected conflict with existing, got %v", err)
	}

	if err := Validate(ctx, store, Slot{StaffID: "s", Date: "2024-01-10", Start: 630, End: 660}, ""); err != nil {
		t.Fatalf("back-to-back slot should be accepted, got %v", err)
	}
	if err := Validate(ctx, store, Slot{StaffID: "other", Date: "2024-01-10", Start: 600, End: 630}, ""); err != nil {
		t.Fatalf("other staff is free, got %v", err)
	}
}

func TestValidateReportsEarliestConflict(t *testing.T) {
	store := storage.NewMemory()
	seed(t, store,
		model.Appointment{ID: "late", StaffID: "s", Date: "2024-01-10", StartMinute: 660, EndMinute: 720, Status: model.StatusPending},
		model.Appointment{ID: "early", StaffID: "s", Date: "2024-01-10", StartMinute: 600, EndMinute: 630, Status: model.StatusPending},
	)
	err := Validate(context.Background(), store, Slot{StaffID: "s", Date: "2024-01-10", Start: 540, End: 720}, "")
	var conflict *errs.ConflictError
	if !errors.As(err, &conflict) || conflict.AppointmentID != "early" {
		t.Fatalf("expected earliest conflict, got %v", err)
	}
}

func TestValidateIgnoresCancelledAndExcluded(t *testing.T) {
	store := storage.NewMemory()
	seed(t, store,
		model.Appointment{ID: "gone", StaffID: "s", Date: "2024-01-10", StartMinute: 600, EndMinute: 630, Status: model.StatusCancelled},
		model.Appointment{ID: "self", StaffID: "s", Date: "2024-01-10", StartMinute: 630, EndMinute: 660, Status: model.StatusConfirmed},
	)
	err := Validate(context.Background(), store, Slot{StaffID: "s", Date: "2024-01-10", Start: 600, End: 660}, "self")
	if err != nil {
		t.Fatalf("expected no conflict, got %v", err)
	}
}

func TestValidateRejectsMalformedSlots(t *testing.T) {
	cases := []Slot{
		{StaffID: "s", Date: "2024-01-10", Start: 600, End: 600},
		{StaffID: "s", Date: "2024-01-10", Start: 1430, End: 1450},
		{StaffID: "s", Date: "10/01/2024", Start: 600, End: 630},
		{Date: "2024-01-10", Start: 600, End: 630},
	}
	for _, s := range cases {
		var v *errs.ValidationError
		if err := Validate(context.Background(), storage.NewMemory(), s, ""); !errors.As(err, &v) {
			t.Fatalf("expected validation error for %+v, got %v", s, err)
		}
	}
}

// Package slot checks proposed appointment windows against a staff member's existing bookings.
package slot

import (
	"context"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

// Slot is a candidate window on one day, in minutes since midnight.
type Slot struct {
	StaffID string
	Date    string
	Start   int
	End     int
}

func (s Slot) Interval() availability.Interval {
	return availability.Interval{Start: s.Start, End: s.End}
}

func (s Slot) Check() error {
	var v errs.ValidationError
	if s.StaffID == "" {
		v.Add("staff_id", "is required")
	}
	if _, err := availability.ParseDate(s.Date); err != nil {
		v.Add("date", err.Error())
	}
	if s.Start < 0 || s.Start >= availability.MinutesPerDay {
		v.Add("start_time", "must be within the day")
	}
	if s.End > availability.MinutesPerDay {
		v.Add("end_time", "must not pass midnight")
	} else if s.End <= s.Start {
		v.Add("end_time", "must be after start_time")
	}
	return v.Err()
}

// Validate returns a *errs.ConflictError naming the earliest-starting non-cancelled
// appointment of the staff member that overlaps s. excludeID skips one appointment, the one
// being moved. It must run in the same transaction as the write it guards.
func Validate(ctx context.Context, q storage.AppointmentQueries, s Slot, excludeID string) error {
	if err := s.Check(); err != nil {
		return err
	}

	existing, err := q.ListStaffDay(ctx, s.StaffID, s.Date)
	if err != nil {
		return err
	}
	want := s.Interval()
	for _, a := range existing {
		if a.ID == excludeID {
			continue
		}
		if want.Overlaps(availability.Interval{Start: a.StartMinute, End: a.EndMinute}) {
			return &errs.ConflictError{AppointmentID: a.ID}
		}
	}
	return nil
}

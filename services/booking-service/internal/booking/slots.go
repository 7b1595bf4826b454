package booking

import (
	"context"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
)

// Offer is a bookable window.
type Offer struct {
	Start int
	End   int
}

// AvailableSlots lists start times for serviceID with staffID on date that fall inside the
// staff member's working windows, do not overlap open appointments and are not in the past.
func (e *Engine) AvailableSlots(ctx context.Context, businessID, serviceID, staffID, date string) ([]Offer, error) {
	var v errs.ValidationError
	svc, err := e.loadService(ctx, e.store, businessID, serviceID, &v)
	if err != nil {
		return nil, err
	}
	staff, err := e.loadStaff(ctx, e.store, businessID, staffID, &v)
	if err != nil {
		return nil, err
	}
	day, _ := e.checkDate(date, &v)
	if err := v.Err(); err != nil {
		return nil, err
	}

	today, nowMinute := availability.Civil(e.now())
	if date < today {
		return []Offer{}, nil
	}
	notBefore := 0
	if date == today {
		notBefore = nowMinute
	}

	windows, err := e.workingWindows(ctx, e.store, businessID, staff.ID, day.Weekday())
	if err != nil {
		return nil, err
	}
	booked, err := e.store.ListStaffDay(ctx, staff.ID, date)
	if err != nil {
		return nil, errs.Persistence("load appointments", err)
	}
	busy := make([]availability.Interval, 0, len(booked))
	for _, a := range booked {
		busy = append(busy, availability.Interval{Start: a.StartMinute, End: a.EndMinute})
	}

	starts := availability.AvailableSlots(windows, svc.DurationMinutes, e.step, busy, notBefore)
	offers := make([]Offer, 0, len(starts))
	for _, s := range starts {
		offers = append(offers, Offer{Start: s, End: s + svc.DurationMinutes})
	}
	return offers, nil
}

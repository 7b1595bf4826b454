package catalog

import (
	"context"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

type AvailabilityInput struct {
	StaffID   string `json:"staff_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Active    *bool  `json:"active"`
}

type AvailabilityUpdate struct {
	DayOfWeek *int    `json:"day_of_week"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Active    *bool   `json:"active"`
}

func (c *Catalog) CreateAvailability(ctx context.Context, businessID string, in AvailabilityInput) (model.Availability, error) {
	a := model.Availability{
		ID:         c.newID(),
		BusinessID: businessID,
		StaffID:    in.StaffID,
		DayOfWeek:  in.DayOfWeek,
		Active:     boolOr(in.Active, true),
	}
	var v errs.ValidationError
	setWindow(&a, &in.StartTime, &in.EndTime, &v)
	checkDay(a.DayOfWeek, &v)
	if in.StaffID == "" {
		v.Add("staff_id", "is required")
	}
	if err := v.Err(); err != nil {
		return model.Availability{}, err
	}

	err := c.store.InTx(ctx, func(q storage.Queries) error {
		staff, err := q.GetStaff(ctx, businessID, in.StaffID)
		if err != nil {
			return errs.Persistence("load staff", err)
		}
		if staff == nil {
			return errs.Validation("staff_id", "unknown staff member for this business")
		}
		return errs.Persistence("insert availability", q.CreateAvailability(ctx, &a))
	})
	if err != nil {
		return model.Availability{}, errs.Persistence("create availability", err)
	}
	c.invalidateAvailability(ctx, businessID, a.StaffID)
	return a, nil
}

// ListAvailability lists every window of the business when staffID is empty.
func (c *Catalog) ListAvailability(ctx context.Context, businessID, staffID string) ([]model.Availability, error) {
	out, err := cached(ctx, c, availabilityKey(businessID, staffID), func() ([]model.Availability, error) {
		return c.store.ListAvailability(ctx, businessID, staffID)
	})
	return out, errs.Persistence("list availability", err)
}

func (c *Catalog) UpdateAvailability(ctx context.Context, businessID, id string, u AvailabilityUpdate) (model.Availability, error) {
	var a model.Availability
	err := c.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetAvailability(ctx, businessID, id)
		if err != nil {
			return errs.Persistence("load availability", err)
		}
		if cur == nil {
			return errs.NotFound("availability", id)
		}
		a = *cur
		if u.DayOfWeek != nil {
			a.DayOfWeek = *u.DayOfWeek
		}
		a.Active = boolOr(u.Active, a.Active)

		var v errs.ValidationError
		setWindow(&a, u.StartTime, u.EndTime, &v)
		checkDay(a.DayOfWeek, &v)
		if err := v.Err(); err != nil {
			return err
		}
		return errs.Persistence("update availability", q.UpdateAvailability(ctx, &a))
	})
	if err != nil {
		return model.Availability{}, errs.Persistence("update availability", err)
	}
	c.invalidateAvailability(ctx, businessID, a.StaffID)
	return a, nil
}

func (c *Catalog) DeleteAvailability(ctx context.Context, businessID, id string) error {
	var staffID string
	err := c.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetAvailability(ctx, businessID, id)
		if err != nil {
			return errs.Persistence("load availability", err)
		}
		if cur == nil {
			return errs.NotFound("availability", id)
		}
		staffID = cur.StaffID
		return errs.Persistence("delete availability", q.DeleteAvailability(ctx, businessID, id))
	})
	if err != nil {
		return errs.Persistence("delete availability", err)
	}
	c.invalidateAvailability(ctx, businessID, staffID)
	return nil
}

func (c *Catalog) invalidateAvailability(ctx context.Context, businessID, staffID string) {
	c.invalidate(ctx, availabilityKey(businessID, staffID), availabilityKey(businessID, ""))
}

// setWindow applies the non-nil clock values and checks the resulting window.
func setWindow(a *model.Availability, start, end *string, v *errs.ValidationError) {
	if start != nil {
		m, err := availability.ParseClock(*start)
		if err != nil {
			v.Add("start_time", err.Error())
		}
		a.StartMinute = m
	}
	if end != nil {
		m, err := availability.ParseClock(*end)
		if err != nil {
			v.Add("end_time", err.Error())
		}
		a.EndMinute = m
	}
	if a.StartMinute >= availability.MinutesPerDay {
		v.Add("start_time", "must be before midnight")
	}
	if a.EndMinute <= a.StartMinute {
		v.Add("end_time", "must be after start_time")
	}
}

func checkDay(day int, v *errs.ValidationError) {
	if day < 0 || day > 6 {
		v.Add("day_of_week", "must be between 0 (Sunday) and 6 (Saturday)")
	}
}

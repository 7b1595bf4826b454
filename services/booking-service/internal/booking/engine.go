// Package booking owns the appointment lifecycle: conflict-safe creation, status changes,
// rescheduling, deletion and slot offering.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/customer"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/slot"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

// DefaultWorkday applies to staff without any availability configured.
var DefaultWorkday = availability.Interval{Start: 9 * 60, End: 17 * 60}

type Config struct {
	SlotStepMinutes int
	// Now is the wall clock used for "not in the past" checks. Defaults to time.Now.
	Now func() time.Time
}

type Engine struct {
	store    storage.Store
	resolver *customer.Resolver
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	step     int
	newID    func() string
}

func NewEngine(store storage.Store, resolver *customer.Resolver, m *metrics.Metrics, logger *slog.Logger, cfg Config) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SlotStepMinutes <= 0 {
		cfg.SlotStepMinutes = 15
	}
	return &Engine{
		store:    store,
		resolver: resolver,
		metrics:  m,
		logger:   logger,
		now:      cfg.Now,
		step:     cfg.SlotStepMinutes,
		newID:    uuid.NewString,
	}
}

// AppointmentInput is a booking request. EndTime is optional; when present it must equal
// StartTime plus the service duration.
type AppointmentInput struct {
	ServiceID string
	StaffID   string
	Date      string
	StartTime string
	EndTime   string
	Notes     string
	Source    model.Source
}

// Book validates the request, checks the slot, resolves the customer and inserts the
// appointment in one transaction. A conflict or any failure leaves no customer, appointment
// or event behind.
func (e *Engine) Book(ctx context.Context, businessID string, cust customer.Input, in AppointmentInput) (model.Appointment, error) {
	if in.Source == "" {
		in.Source = model.SourcePublic
	}
	started := time.Now()

	var appt model.Appointment
	err := e.store.InTx(ctx, func(q storage.Queries) error {
		plan, err := e.plan(ctx, q, businessID, cust, in)
		if err != nil {
			return err
		}
		if err := slot.Validate(ctx, q, plan.slot, ""); err != nil {
			return errs.Persistence("check slot", err)
		}

		c, err := e.resolver.Resolve(ctx, q, businessID, cust)
		if err != nil {
			return errs.Persistence("resolve customer", err)
		}

		appt = model.Appointment{
			ID:          e.newID(),
			BusinessID:  businessID,
			CustomerID:  c.ID,
			ServiceID:   plan.service.ID,
			StaffID:     plan.staff.ID,
			Date:        plan.slot.Date,
			StartMinute: plan.slot.Start,
			EndMinute:   plan.slot.End,
			Status:      in.Source.InitialStatus(),
			Source:      in.Source,
			Notes:       in.Notes,
			Price:       plan.service.Price,
		}
		if err := q.CreateAppointment(ctx, &appt); err != nil {
			return errs.Persistence("insert appointment", err)
		}
		return e.emit(ctx, q, outbox.TypeAppointmentBooked, appt, func(*outbox.AppointmentPayload) {})
	})
	err = errs.Persistence("booking transaction", err)

	e.metrics.Booking(string(in.Source), outcome(err), time.Since(started))
	if err != nil {
		return model.Appointment{}, err
	}
	e.logger.Info("appointment booked",
		"business_id", businessID,
		"appointment_id", appt.ID,
		"staff_id", appt.StaffID,
		"date", appt.Date,
		"start", availability.FormatClock(appt.StartMinute),
		"source", string(appt.Source),
	)
	return appt, nil
}

type bookingPlan struct {
	service model.Service
	staff   model.Staff
	slot    slot.Slot
}

// plan runs the shape checks of a booking and collects every field error before returning.
func (e *Engine) plan(ctx context.Context, q storage.Queries, businessID string, cust customer.Input, in AppointmentInput) (bookingPlan, error) {
	biz, err := q.GetBusiness(ctx, businessID)
	if err != nil {
		return bookingPlan{}, errs.Persistence("load business", err)
	}
	if biz == nil {
		return bookingPlan{}, errs.NotFound("business", businessID)
	}

	var v errs.ValidationError
	if !biz.Active {
		v.Add("business", "is not accepting bookings")
	}
	if err := cust.Normalize().Validate(); err != nil {
		var cv *errs.ValidationError
		if errors.As(err, &cv) {
			for field, msg := range cv.Fields {
				v.Add(field, msg)
			}
		}
	}

	svc, err := e.loadService(ctx, q, businessID, in.ServiceID, &v)
	if err != nil {
		return bookingPlan{}, err
	}
	staff, err := e.loadStaff(ctx, q, businessID, in.StaffID, &v)
	if err != nil {
		return bookingPlan{}, err
	}

	s := slot.Slot{StaffID: in.StaffID, Date: in.Date}
	day, dateOK := e.checkDate(in.Date, &v)
	start, startErr := availability.ParseClock(in.StartTime)
	if startErr != nil {
		v.Add("start_time", startErr.Error())
	}
	if dateOK && startErr == nil {
		e.checkNotPast(in.Date, start, &v)
	}
	if svc != nil && startErr == nil {
		s.Start = start
		s.End = start + svc.DurationMinutes
		if in.EndTime != "" {
			end, err := availability.ParseClock(in.EndTime)
			switch {
			case err != nil:
				v.Add("end_time", err.Error())
			case end != s.End:
				v.Add("end_time", "must equal start_time plus the service duration ("+availability.FormatClock(s.End)+")")
			}
		}
		if s.End > availability.MinutesPerDay {
			v.Add("end_time", "appointment must end by midnight")
		}
	}

	if err := v.Err(); err != nil {
		return bookingPlan{}, err
	}

	if in.Source == model.SourcePublic {
		windows, err := e.workingWindows(ctx, q, businessID, staff.ID, day.Weekday())
		if err != nil {
			return bookingPlan{}, err
		}
		if !availability.WithinAny(s.Interval(), windows) {
			return bookingPlan{}, errs.Validation("start_time", "is outside the staff member's working hours")
		}
	}

	return bookingPlan{service: *svc, staff: *staff, slot: s}, nil
}

func (e *Engine) loadService(ctx context.Context, q storage.CatalogQueries, businessID, id string, v *errs.ValidationError) (*model.Service, error) {
	if id == "" {
		v.Add("service_id", "is required")
		return nil, nil
	}
	svc, err := q.GetService(ctx, businessID, id)
	if err != nil {
		return nil, errs.Persistence("load service", err)
	}
	switch {
	case svc == nil:
		v.Add("service_id", "unknown service for this business")
	case !svc.Active:
		v.Add("service_id", "service is not available")
	}
	return svc, nil
}

func (e *Engine) loadStaff(ctx context.Context, q storage.CatalogQueries, businessID, id string, v *errs.ValidationError) (*model.Staff, error) {
	if id == "" {
		v.Add("staff_id", "is required")
		return nil, nil
	}
	staff, err := q.GetStaff(ctx, businessID, id)
	if err != nil {
		return nil, errs.Persistence("load staff", err)
	}
	switch {
	case staff == nil:
		v.Add("staff_id", "unknown staff member for this business")
	case !staff.Active:
		v.Add("staff_id", "staff member is not available")
	}
	return staff, nil
}

func (e *Engine) checkDate(raw string, v *errs.ValidationError) (time.Time, bool) {
	day, err := availability.ParseDate(raw)
	if err != nil {
		v.Add("date", err.Error())
		return time.Time{}, false
	}
	return day, true
}

// checkNotPast compares against the engine clock's local wall time.
func (e *Engine) checkNotPast(date string, start int, v *errs.ValidationError) {
	today, minute := availability.Civil(e.now())
	switch {
	case date < today:
		v.Add("date", "must not be in the past")
	case date == today && start < minute:
		v.Add("start_time", "must not be in the past")
	}
}

// workingWindows returns the active windows of staffID on weekday. Staff without any
// configured availability work DefaultWorkday every day.
func (e *Engine) workingWindows(ctx context.Context, q storage.CatalogQueries, businessID, staffID string, weekday time.Weekday) ([]availability.Interval, error) {
	all, err := q.ListAvailability(ctx, businessID, staffID)
	if err != nil {
		return nil, errs.Persistence("load availability", err)
	}
	if len(all) == 0 {
		return []availability.Interval{DefaultWorkday}, nil
	}
	var windows []availability.Interval
	for _, a := range all {
		if a.Active && a.DayOfWeek == int(weekday) {
			windows = append(windows, availability.Interval{Start: a.StartMinute, End: a.EndMinute})
		}
	}
	return windows, nil
}

func (e *Engine) emit(ctx context.Context, q storage.EventQueries, eventType string, a model.Appointment, extra func(*outbox.AppointmentPayload)) error {
	p := outbox.AppointmentPayload{
		AppointmentID: a.ID,
		BusinessID:    a.BusinessID,
		CustomerID:    a.CustomerID,
		ServiceID:     a.ServiceID,
		StaffID:       a.StaffID,
		Date:          a.Date,
		Start:         availability.FormatClock(a.StartMinute),
		End:           availability.FormatClock(a.EndMinute),
		Status:        string(a.Status),
		Source:        string(a.Source),
		Price:         a.Price,
		OccurredAt:    e.now().UTC(),
	}
	extra(&p)
	evt, err := outbox.NewAppointmentEvent(eventType, p)
	if err != nil {
		return errs.Persistence("encode event", err)
	}
	return errs.Persistence("write outbox event", q.AppendEvent(ctx, evt))
}

func outcome(err error) string {
	var (
		v  *errs.ValidationError
		c  *errs.ConflictError
		nf *errs.NotFoundError
	)
	switch {
	case err == nil:
		return "created"
	case errors.As(err, &c):
		return "conflict"
	case errors.As(err, &v):
		return "invalid"
	case errors.As(err, &nf):
		return "not_found"
	default:
		return "error"
	}
}

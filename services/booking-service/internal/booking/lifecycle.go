package booking

import (
	"context"
	"strings"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/slot"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

func (e *Engine) Get(ctx context.Context, businessID, id string) (model.Appointment, error) {
	a, err := e.store.GetAppointment(ctx, businessID, id)
	if err != nil {
		return model.Appointment{}, errs.Persistence("load appointment", err)
	}
	if a == nil {
		return model.Appointment{}, errs.NotFound("appointment", id)
	}
	return *a, nil
}

func (e *Engine) List(ctx context.Context, businessID string, f storage.AppointmentFilter) ([]model.Appointment, error) {
	out, err := e.store.ListAppointments(ctx, businessID, f)
	return out, errs.Persistence("list appointments", err)
}

// Transition moves an appointment along the status machine. Cancelling through Transition
// records no reason; use Cancel for that.
func (e *Engine) Transition(ctx context.Context, businessID, id string, to model.Status) (model.Appointment, error) {
	return e.changeStatus(ctx, businessID, id, to, "")
}

// Cancel is a soft cancel: the row stays and frees its slot.
func (e *Engine) Cancel(ctx context.Context, businessID, id, reason string) (model.Appointment, error) {
	return e.changeStatus(ctx, businessID, id, model.StatusCancelled, strings.TrimSpace(reason))
}

func (e *Engine) changeStatus(ctx context.Context, businessID, id string, to model.Status, reason string) (model.Appointment, error) {
	var appt model.Appointment
	err := e.store.InTx(ctx, func(q storage.Queries) error {
		a, err := loadAppointment(ctx, q, businessID, id)
		if err != nil {
			return err
		}
		if !model.CanTransition(a.Status, to) {
			return &errs.TransitionError{From: string(a.Status), To: string(to)}
		}

		from := a.Status
		a.Status = to
		if to == model.StatusCancelled {
			a.CancelReason = reason
		}
		if err := q.UpdateAppointment(ctx, &a); err != nil {
			return errs.Persistence("update appointment status", err)
		}
		appt = a
		return e.emit(ctx, q, outbox.TypeAppointmentStatusChanged, a, func(p *outbox.AppointmentPayload) {
			p.PreviousStatus = string(from)
			p.Reason = a.CancelReason
		})
	})
	err = errs.Persistence("status transaction", err)

	result := "ok"
	if err != nil {
		result = "rejected"
	}
	e.metrics.Transition(string(to), result)
	if err != nil {
		return model.Appointment{}, err
	}
	e.logger.Info("appointment status changed", "business_id", businessID, "appointment_id", id, "status", string(to))
	return appt, nil
}

// Reschedule moves an open appointment to a new date and start. The end is recomputed from
// the service duration and the slot check ignores the appointment's own current booking.
// Working hours are not enforced; rescheduling is a staff action.
func (e *Engine) Reschedule(ctx context.Context, businessID, id, date, startTime string) (model.Appointment, error) {
	var appt model.Appointment
	err := e.store.InTx(ctx, func(q storage.Queries) error {
		a, err := loadAppointment(ctx, q, businessID, id)
		if err != nil {
			return err
		}
		if !a.Open() {
			return &errs.TransitionError{From: string(a.Status), To: "rescheduled"}
		}

		svc, err := q.GetService(ctx, businessID, a.ServiceID)
		if err != nil {
			return errs.Persistence("load service", err)
		}
		if svc == nil {
			return errs.NotFound("service", a.ServiceID)
		}

		var v errs.ValidationError
		_, dateOK := e.checkDate(date, &v)
		start, startErr := availability.ParseClock(startTime)
		if startErr != nil {
			v.Add("start_time", startErr.Error())
		}
		if dateOK && startErr == nil {
			e.checkNotPast(date, start, &v)
		}
		if err := v.Err(); err != nil {
			return err
		}

		s := slot.Slot{StaffID: a.StaffID, Date: date, Start: start, End: start + svc.DurationMinutes}
		if err := slot.Validate(ctx, q, s, a.ID); err != nil {
			return errs.Persistence("check slot", err)
		}

		previousDate := a.Date
		a.Date, a.StartMinute, a.EndMinute = s.Date, s.Start, s.End
		if err := q.UpdateAppointment(ctx, &a); err != nil {
			return errs.Persistence("update appointment time", err)
		}
		appt = a
		return e.emit(ctx, q, outbox.TypeAppointmentRescheduled, a, func(p *outbox.AppointmentPayload) {
			p.PreviousDate = previousDate
		})
	})
	err = errs.Persistence("reschedule transaction", err)
	if err != nil {
		return model.Appointment{}, err
	}
	e.logger.Info("appointment rescheduled", "business_id", businessID, "appointment_id", id, "date", appt.Date)
	return appt, nil
}

// Delete hard-removes an appointment. Completed appointments and any appointment already
// counted by analytics are refused with an InUseError.
func (e *Engine) Delete(ctx context.Context, businessID, id string) error {
	err := e.store.InTx(ctx, func(q storage.Queries) error {
		a, err := loadAppointment(ctx, q, businessID, id)
		if err != nil {
			return err
		}
		if a.Counted {
			return &errs.InUseError{Entity: "appointment", ID: id, Reason: "already counted in analytics"}
		}
		if a.Status == model.StatusCompleted {
			return &errs.InUseError{Entity: "appointment", ID: id, Reason: "completed appointments carry revenue"}
		}
		if err := q.DeleteAppointment(ctx, businessID, id); err != nil {
			return errs.Persistence("delete appointment", err)
		}
		return e.emit(ctx, q, outbox.TypeAppointmentDeleted, a, func(*outbox.AppointmentPayload) {})
	})
	if err = errs.Persistence("delete transaction", err); err != nil {
		return err
	}
	e.logger.Info("appointment deleted", "business_id", businessID, "appointment_id", id)
	return nil
}

func loadAppointment(ctx context.Context, q storage.AppointmentQueries, businessID, id string) (model.Appointment, error) {
	a, err := q.GetAppointment(ctx, businessID, id)
	if err != nil {
		return model.Appointment{}, errs.Persistence("load appointment", err)
	}
	if a == nil {
		return model.Appointment{}, errs.NotFound("appointment", id)
	}
	return *a, nil
}

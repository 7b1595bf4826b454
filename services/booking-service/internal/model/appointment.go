package model

import "time"

// Appointment times are minutes since midnight on Date (YYYY-MM-DD), naive local wall clock.
type Appointment struct {
	ID           string
	BusinessID   string
	CustomerID   string
	ServiceID    string
	StaffID      string
	Date         string
	StartMinute  int
	EndMinute    int
	Status       Status
	Source       Source
	Notes        string
	CancelReason string
	// Price is copied from the service at booking time so revenue survives catalog edits.
	Price     string
	Counted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Source is the entry point an appointment was booked through.
type Source string

const (
	SourcePublic Source = "public"
	SourceStaff  Source = "staff"
)

// InitialStatus is pending for self-service bookings and confirmed for staff-entered ones.
func (s Source) InitialStatus() Status {
	if s == SourceStaff {
		return StatusConfirmed
	}
	return StatusPending
}

// Open reports whether the appointment still occupies its slot and can change.
func (a Appointment) Open() bool {
	return !a.Status.Terminal()
}

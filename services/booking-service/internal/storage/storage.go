// Package storage is the tenant-scoped persistence gateway. Lookups return (nil, nil) when
// the record does not exist; callers decide whether that is an error.
package storage

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/outbox"
)

// ErrDuplicate is wrapped by writes that hit a unique key (username, email, slug).
var ErrDuplicate = errors.New("duplicate record")

type BusinessQueries interface {
	CreateBusiness(ctx context.Context, b *model.Business) error
	GetBusiness(ctx context.Context, id string) (*model.Business, error)
	GetBusinessBySlug(ctx context.Context, slug string) (*model.Business, error)
	GetBusinessByOwner(ctx context.Context, ownerID string) (*model.Business, error)
	UpdateBusiness(ctx context.Context, b *model.Business) error
}

type CatalogQueries interface {
	CreateService(ctx context.Context, s *model.Service) error
	GetService(ctx context.Context, businessID, id string) (*model.Service, error)
	ListServices(ctx context.Context, businessID string, activeOnly bool) ([]model.Service, error)
	UpdateService(ctx context.Context, s *model.Service) error
	DeleteService(ctx context.Context, businessID, id string) error

	CreateStaff(ctx context.Context, s *model.Staff) error
	GetStaff(ctx context.Context, businessID, id string) (*model.Staff, error)
	ListStaff(ctx context.Context, businessID string, activeOnly bool) ([]model.Staff, error)
	UpdateStaff(ctx context.Context, s *model.Staff) error
	DeleteStaff(ctx context.Context, businessID, id string) error

	CreateAvailability(ctx context.Context, a *model.Availability) error
	GetAvailability(ctx context.Context, businessID, id string) (*model.Availability, error)
	// ListAvailability returns every window of the business when staffID is empty.
	ListAvailability(ctx context.Context, businessID, staffID string) ([]model.Availability, error)
	UpdateAvailability(ctx context.Context, a *model.Availability) error
	DeleteAvailability(ctx context.Context, businessID, id string) error
}

type CustomerQueries interface {
	CreateCustomer(ctx context.Context, c *model.Customer) error
	GetCustomer(ctx context.Context, businessID, id string) (*model.Customer, error)
	FindCustomerByEmail(ctx context.Context, businessID, email string) (*model.Customer, error)
	FindCustomerByPhone(ctx context.Context, businessID, phone string) (*model.Customer, error)
	ListCustomers(ctx context.Context, businessID string) ([]model.Customer, error)
}

type AppointmentFilter struct {
	Date    string
	StaffID string
	Status  model.Status
}

// Reference selects appointments pointing at one catalog or customer record.
type Reference struct {
	ServiceID  string
	StaffID    string
	CustomerID string
}

type Stats struct {
	Total        int
	Today        int
	Upcoming     int
	Customers    int
	ByStatus     map[model.Status]int
	RevenueCents int64
}

type AppointmentQueries interface {
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, businessID, id string) (*model.Appointment, error)
	// ListAppointments is ordered by date then start.
	ListAppointments(ctx context.Context, businessID string, f AppointmentFilter) ([]model.Appointment, error)
	// ListStaffDay returns the non-cancelled appointments of a staff member on date, ordered
	// by start.
	ListStaffDay(ctx context.Context, staffID, date string) ([]model.Appointment, error)
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	DeleteAppointment(ctx context.Context, businessID, id string) error
	CountAppointments(ctx context.Context, businessID string, ref Reference) (int, error)
	MarkAppointmentCounted(ctx context.Context, businessID, id string) error
	AppointmentStats(ctx context.Context, businessID, today string) (Stats, error)
}

type UserQueries interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	// GetUserByLogin matches either the username or the email.
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
}

type EventQueries interface {
	AppendEvent(ctx context.Context, evt outbox.Event) error
}

type Queries interface {
	BusinessQueries
	CatalogQueries
	CustomerQueries
	AppointmentQueries
	UserQueries
	EventQueries
}

// Store runs fn atomically: every write made through the Queries passed to fn commits
// together or not at all.
type Store interface {
	Queries
	InTx(ctx context.Context, fn func(q Queries) error) error
}

package handlers

import (
	"time"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/analytics"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

type businessItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Industry  string `json:"industry,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toBusiness(b model.Business) businessItem {
	return businessItem{
		ID: b.ID, Name: b.Name, Slug: b.Slug, Industry: b.Industry, Email: b.Email, Phone: b.Phone,
		Address: b.Address, Timezone: b.Timezone, Active: b.Active, CreatedAt: timestamp(b.CreatedAt),
	}
}

// publicBusiness hides owner-only fields.
func publicBusiness(b model.Business) businessItem {
	return businessItem{ID: b.ID, Name: b.Name, Slug: b.Slug, Industry: b.Industry, Phone: b.Phone, Address: b.Address, Active: b.Active}
}

type serviceItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Price           string `json:"price"`
	DurationMinutes int    `json:"duration_minutes"`
	Active          bool   `json:"active"`
}

func toServices(in []model.Service) []serviceItem {
	out := make([]serviceItem, 0, len(in))
	for _, s := range in {
		out = append(out, toService(s))
	}
	return out
}

func toService(s model.Service) serviceItem {
	return serviceItem{ID: s.ID, Name: s.Name, Description: s.Description, Price: s.Price, DurationMinutes: s.DurationMinutes, Active: s.Active}
}

type staffItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Role   string `json:"role,omitempty"`
	Active bool   `json:"active"`
}

func toStaffList(in []model.Staff, public bool) []staffItem {
	out := make([]staffItem, 0, len(in))
	for _, s := range in {
		item := toStaff(s)
		if public {
			item.Email, item.Phone = "", ""
		}
		out = append(out, item)
	}
	return out
}

func toStaff(s model.Staff) staffItem {
	return staffItem{ID: s.ID, Name: s.Name, Email: s.Email, Phone: s.Phone, Role: s.Role, Active: s.Active}
}

type availabilityItem struct {
	ID        string `json:"id"`
	StaffID   string `json:"staff_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Active    bool   `json:"active"`
}

func toAvailability(a model.Availability) availabilityItem {
	return availabilityItem{
		ID: a.ID, StaffID: a.StaffID, DayOfWeek: a.DayOfWeek,
		StartTime: availability.FormatClock(a.StartMinute), EndTime: availability.FormatClock(a.EndMinute),
		Active: a.Active,
	}
}

type customerItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toCustomer(c model.Customer) customerItem {
	return customerItem{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone, Notes: c.Notes, CreatedAt: timestamp(c.CreatedAt)}
}

type appointmentItem struct {
	ID           string `json:"id"`
	CustomerID   string `json:"customer_id"`
	ServiceID    string `json:"service_id"`
	StaffID      string `json:"staff_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Status       string `json:"status"`
	Source       string `json:"source"`
	Price        string `json:"price"`
	Notes        string `json:"notes,omitempty"`
	CancelReason string `json:"cancellation_reason,omitempty"`
	Counted      bool   `json:"counted"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

func toAppointment(a model.Appointment) appointmentItem {
	return appointmentItem{
		ID: a.ID, CustomerID: a.CustomerID, ServiceID: a.ServiceID, StaffID: a.StaffID, Date: a.Date,
		StartTime: availability.FormatClock(a.StartMinute), EndTime: availability.FormatClock(a.EndMinute),
		Status: string(a.Status), Source: string(a.Source), Price: a.Price, Notes: a.Notes,
		CancelReason: a.CancelReason, Counted: a.Counted,
		CreatedAt: timestamp(a.CreatedAt), UpdatedAt: timestamp(a.UpdatedAt),
	}
}

// publicConfirmation is what a customer sees after booking.
type publicConfirmation struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
	Price     string `json:"price"`
}

func toConfirmation(a model.Appointment) publicConfirmation {
	return publicConfirmation{
		ID: a.ID, Date: a.Date,
		StartTime: availability.FormatClock(a.StartMinute), EndTime: availability.FormatClock(a.EndMinute),
		Status: string(a.Status), Price: a.Price,
	}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func toSlots(in []booking.Offer) []slotItem {
	out := make([]slotItem, 0, len(in))
	for _, o := range in {
		out = append(out, slotItem{StartTime: availability.FormatClock(o.Start), EndTime: availability.FormatClock(o.End)})
	}
	return out
}

type statsResponse struct {
	Total     int            `json:"total_appointments"`
	Today     int            `json:"today"`
	Upcoming  int            `json:"upcoming"`
	Customers int            `json:"customers"`
	ByStatus  map[string]int `json:"by_status"`
	Revenue   string         `json:"revenue"`
}

func toStats(s storage.Stats) statsResponse {
	by := make(map[string]int, len(s.ByStatus))
	for k, v := range s.ByStatus {
		by[string(k)] = v
	}
	return statsResponse{
		Total: s.Total, Today: s.Today, Upcoming: s.Upcoming, Customers: s.Customers,
		ByStatus: by, Revenue: model.FormatCents(s.RevenueCents),
	}
}

type dailyResponse struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Days []analytics.Day `json:"days"`
}

type userItem struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func toUser(u model.User) userItem {
	return userItem{ID: u.ID, Username: u.Username, Email: u.Email}
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

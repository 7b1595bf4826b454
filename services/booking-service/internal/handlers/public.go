package handlers

import (
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/bookly/libs/httpx"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/customer"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
)

// PublicHandler serves the unauthenticated booking link /api/v1/public/{slug}.
type PublicHandler struct {
	catalog *catalog.Catalog
	engine  *booking.Engine
	logger  *slog.Logger
}

func NewPublicHandler(c *catalog.Catalog, engine *booking.Engine, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{catalog: c, engine: engine, logger: logger}
}

// bookRequest is shared by the public form and staff-entered bookings.
type bookRequest struct {
	ServiceID     string `json:"service_id"`
	StaffID       string `json:"staff_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Notes         string `json:"notes"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

func (req bookRequest) inputs(source model.Source) (customer.Input, booking.AppointmentInput) {
	return customer.Input{Name: req.CustomerName, Email: req.CustomerEmail, Phone: req.CustomerPhone},
		booking.AppointmentInput{
			ServiceID: req.ServiceID,
			StaffID:   req.StaffID,
			Date:      req.Date,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Notes:     req.Notes,
			Source:    source,
		}
}

func (h *PublicHandler) business(w http.ResponseWriter, r *http.Request) (model.Business, bool) {
	b, err := h.catalog.PublicBusiness(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return model.Business{}, false
	}
	return b, true
}

func (h *PublicHandler) Business(w http.ResponseWriter, r *http.Request) {
	b, ok := h.business(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, publicBusiness(b))
}

func (h *PublicHandler) Services(w http.ResponseWriter, r *http.Request) {
	b, ok := h.business(w, r)
	if !ok {
		return
	}
	services, err := h.catalog.ListServices(r.Context(), b.ID, true)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toServices(services))
}

func (h *PublicHandler) Staff(w http.ResponseWriter, r *http.Request) {
	b, ok := h.business(w, r)
	if !ok {
		return
	}
	staff, err := h.catalog.ListStaff(r.Context(), b.ID, true)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toStaffList(staff, true))
}

func (h *PublicHandler) Slots(w http.ResponseWriter, r *http.Request) {
	b, ok := h.business(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	offers, err := h.engine.AvailableSlots(r.Context(), b.ID, q.Get("service_id"), q.Get("staff_id"), q.Get("date"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSlots(offers))
}

func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	b, ok := h.business(w, r)
	if !ok {
		return
	}
	var req bookRequest
	if !decode(w, r, &req) {
		return
	}
	cust, in := req.inputs(model.SourcePublic)
	appt, err := h.engine.Book(r.Context(), b.ID, cust, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toConfirmation(appt))
}

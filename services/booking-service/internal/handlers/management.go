package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/bookly/libs/httpx"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/analytics"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/customer"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

// ManagementHandler serves the owner's dashboard API. Every route runs behind RequireUser
// and resolves the caller's business first.
type ManagementHandler struct {
	catalog   *catalog.Catalog
	engine    *booking.Engine
	stats     storage.AppointmentQueries
	analytics *analytics.Aggregator
	sessions  *Sessions
	logger    *slog.Logger
	now       func() time.Time
}

func NewManagementHandler(c *catalog.Catalog, engine *booking.Engine, stats storage.AppointmentQueries, agg *analytics.Aggregator, sessions *Sessions, logger *slog.Logger) *ManagementHandler {
	return &ManagementHandler{
		catalog:   c,
		engine:    engine,
		stats:     stats,
		analytics: agg,
		sessions:  sessions,
		logger:    logger,
		now:       time.Now,
	}
}

type businessHandler func(w http.ResponseWriter, r *http.Request, biz model.Business)

// withBusiness answers 409 until the signed-in user has onboarded a business.
func (h *ManagementHandler) withBusiness(next businessHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		biz, err := h.catalog.BusinessForOwner(r.Context(), claims.Subject)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		if biz == nil {
			httpx.WriteError(w, http.StatusConflict, "create your business first")
			return
		}
		next(w, r, *biz)
	}
}

// --- business ---

func (h *ManagementHandler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	var req catalog.BusinessInput
	if !decode(w, r, &req) {
		return
	}
	claims := claimsFrom(r.Context())
	b, err := h.catalog.CreateBusiness(r.Context(), claims.Subject, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if _, err := h.sessions.Issue(w, claims.Subject, claims.Username, b.ID); err != nil {
		h.logger.Warn("session refresh failed", "err", err)
	}
	httpx.WriteJSON(w, http.StatusCreated, toBusiness(b))
}

func (h *ManagementHandler) GetBusiness(w http.ResponseWriter, r *http.Request, biz model.Business) {
	httpx.WriteJSON(w, http.StatusOK, toBusiness(biz))
}

func (h *ManagementHandler) UpdateBusiness(w http.ResponseWriter, r *http.Request, biz model.Business) {
	var req catalog.BusinessUpdate
	if !decode(w, r, &req) {
		return
	}
	b, err := h.catalog.UpdateBusiness(r.Context(), biz.ID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBusiness(b))
}

// --- services ---

func (h *ManagementHandler) ListServices(w http.ResponseWriter, r *http.Request, biz model.Business) {
	services, err := h.catalog.ListServices(r.Context(), biz.ID, r.URL.Query().Get("active") == "true")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toServices(services))
}

func (h *ManagementHandler) CreateService(w http.ResponseWriter, r *http.Request, biz model.Business) {
	var req catalog.ServiceInput
	if !decode(w, r, &req) {
		return
	}
	s, err := h.catalog.CreateService(r.Context(), biz.ID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toService(s))
}

func (h *ManagementHandler) GetService(w http.ResponseWriter, r *http.Request, biz model.Business) {
	s, err := h.catalog.GetService(r.Context(), biz.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toService(s))
}

func (h *ManagementHandler) UpdateService(w http.ResponseWriter, r *http.Request, biz model.Business) {
	var req catalog.ServiceUpdate
	if !decode(w, r, &req) {
		return
	}
	s, err := h.catalog.UpdateService(r.Context(), biz.ID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toService(s))
}

func (h *ManagementHandler) DeleteService(w http.ResponseWriter, r *http.Request, biz model.Business) {
	if err := h.catalog.DeleteService(r.Context(), biz.ID, r.PathValue("id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- staff ---

func (h *ManagementHandler) ListStaff(w http.ResponseWriter, r *http.Request, biz model.Business) {
	staff, err := h.catalog.ListStaff(r.Context(), biz.ID, r.URL.Query().Get("active") == "true")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toStaffList(staff, false))
}

func (h *ManagementHandler) CreateStaff(w http.ResponseWriter, r *http.Request, biz model.Business) {
	var req catalog.StaffInput
	if !decode(w, r, &req) {
		return
	}
	s, err := h.catalog.CreateStaff(r.Context(), biz.ID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toStaff(s))
}

func (h *ManagementHandler) GetStaff(w http.ResponseWriter, r *http.Request, biz model.Business) {
	s, err := h.catalog.GetStaff(r.Context(), biz.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toStaff(s))
}

func (h *ManagementHandler) UpdateStaff(w http.ResponseWriter, r *http.Request, biz model.Business) {
	var req catalog.StaffUpdate
	if !decode(w, r, &req) {
		return
	}
	s, err := h.catalog.UpdateStaff(r.Context(), biz.ID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toStaff(s))
}

func (h *ManagementHandler) DeleteStaff(w http.ResponseWriter, r *http.Request, biz model.Business) {
	if err := h.catalog.DeleteStaff(r.Context(), biz.ID, r.PathValue("id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- availability ---

func (h *ManagementHandler) ListAvailability(w http.ResponseWriter, r *http.Request, biz model.Business) {
	windows, err := h.catalog.ListAvailability(r.Context(), biz.ID, r.URL.Query().Get("staff_id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]availabilityItem, 0, len(windows))
	for _, a := range windows {
		out = append(out, toAvailability(a))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *ManagementHandler) CreateAvailability(w http.ResponseWriter, r *http.Request, biz model.Business) {
	var req catalog.AvailabilityInput
	if !decode(w, r, &req) {
		return
	}
	a, err := h.catalog.CreateAvailability(r.Context(), biz.ID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAvailability(a))
}

func (h *ManagementHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request, biz model.Business) {
	var req catalog.AvailabilityUpdate
	if !decode(w, r, &req) {
		return
	}
	a, err := h.catalog.UpdateAvailability(r.Context(), biz.ID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAvailability(a))
}

func (h *ManagementHandler) DeleteAvailability(w http.ResponseWriter, r *http.Request, biz model.Business) {
	if err := h.catalog.DeleteAvailability(r.Context(), biz.ID, r.PathValue("id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- customers ---

type customerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

func (h *ManagementHandler) ListCustomers(w http.ResponseWriter, r *http.Request, biz model.Business) {
	customers, err := h.catalog.ListCustomers(r.Context(), biz.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]customerItem, 0, len(customers))
	for _, c := range customers {
		out = append(out, toCustomer(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *ManagementHandler) CreateCustomer(w http.ResponseWriter, r *http.Request, biz model.Business) {
	var req customerRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.catalog.AddCustomer(r.Context(), biz.ID, customer.Input{Name: req.Name, Email: req.Email, Phone: req.Phone, Notes: req.Notes})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toCustomer(c))
}

func (h *ManagementHandler) GetCustomer(w http.ResponseWriter, r *http.Request, biz model.Business) {
	c, err := h.catalog.GetCustomer(r.Context(), biz.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toCustomer(c))
}

// --- appointments ---

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type rescheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

func (h *ManagementHandler) ListAppointments(w http.ResponseWriter, r *http.Request, biz model.Business) {
	q := r.URL.Query()
	f := storage.AppointmentFilter{Date: q.Get("date"), StaffID: q.Get("staff_id")}
	var v errs.ValidationError
	if raw := q.Get("status"); raw != "" {
		st, err := model.ParseStatus(raw)
		if err != nil {
			v.Add("status", err.Error())
		}
		f.Status = st
	}
	if f.Date != "" {
		if _, err := availability.ParseDate(f.Date); err != nil {
			v.Add("date", err.Error())
		}
	}
	if err := v.Err(); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	appts, err := h.engine.List(r.Context(), biz.ID, f)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointment(a))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// CreateAppointment books on behalf of a customer; such bookings start confirmed.
func (h *ManagementHandler) CreateAppointment(w http.ResponseWriter, r *http.Request, biz model.Business) {
	var req bookRequest
	if !decode(w, r, &req) {
		return
	}
	cust, in := req.inputs(model.SourceStaff)
	appt, err := h.engine.Book(r.Context(), biz.ID, cust, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAppointment(appt))
}

func (h *ManagementHandler) GetAppointment(w http.ResponseWriter, r *http.Request, biz model.Business) {
	appt, err := h.engine.Get(r.Context(), biz.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointment(appt))
}

func (h *ManagementHandler) ChangeStatus(w http.ResponseWriter, r *http.Request, biz model.Business) {
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	to, err := model.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, h.logger, errs.Validation("status", err.Error()))
		return
	}

	var appt model.Appointment
	if to == model.StatusCancelled {
		appt, err = h.engine.Cancel(r.Context(), biz.ID, r.PathValue("id"), req.Reason)
	} else {
		appt, err = h.engine.Transition(r.Context(), biz.ID, r.PathValue("id"), to)
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointment(appt))
}

func (h *ManagementHandler) Reschedule(w http.ResponseWriter, r *http.Request, biz model.Business) {
	var req rescheduleRequest
	if !decode(w, r, &req) {
		return
	}
	appt, err := h.engine.Reschedule(r.Context(), biz.ID, r.PathValue("id"), req.Date, req.StartTime)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointment(appt))
}

func (h *ManagementHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request, biz model.Business) {
	if err := h.engine.Delete(r.Context(), biz.ID, r.PathValue("id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ManagementHandler) Slots(w http.ResponseWriter, r *http.Request, biz model.Business) {
	q := r.URL.Query()
	offers, err := h.engine.AvailableSlots(r.Context(), biz.ID, q.Get("service_id"), q.Get("staff_id"), q.Get("date"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSlots(offers))
}

// --- dashboard ---

func (h *ManagementHandler) Stats(w http.ResponseWriter, r *http.Request, biz model.Business) {
	today := h.now().Format(availability.DateLayout)
	st, err := h.stats.AppointmentStats(r.Context(), biz.ID, today)
	if err != nil {
		writeError(w, r, h.logger, errs.Persistence("load stats", err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toStats(st))
}

// Daily reports aggregated per-day counters; the range defaults to the last 30 days.
func (h *ManagementHandler) Daily(w http.ResponseWriter, r *http.Request, biz model.Business) {
	q := r.URL.Query()
	to := q.Get("to")
	if to == "" {
		to = h.now().Format(availability.DateLayout)
	}
	from := q.Get("from")
	if from == "" {
		end, err := availability.ParseDate(to)
		if err != nil {
			writeError(w, r, h.logger, errs.Validation("to", err.Error()))
			return
		}
		from = end.AddDate(0, 0, -29).Format(availability.DateLayout)
	}

	days, err := h.analytics.Daily(r.Context(), biz.ID, from, to)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if days == nil {
		days = []analytics.Day{}
	}
	httpx.WriteJSON(w, http.StatusOK, dailyResponse{From: from, To: to, Days: days})
}

package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/bookly/libs/httpx"
)

type Routes struct {
	Auth       *AuthHandler
	Public     *PublicHandler
	Management *ManagementHandler
	Sessions   *Sessions
	// PublicLimit guards the unauthenticated endpoints. Nil disables it.
	PublicLimit httpx.Middleware
}

// Register mounts the HTTP API on mux.
func Register(mux *http.ServeMux, rt Routes) {
	public := func(h http.HandlerFunc) http.Handler {
		if rt.PublicLimit == nil {
			return h
		}
		return rt.PublicLimit(h)
	}
	mux.Handle("GET /api/v1/public/{slug}", public(rt.Public.Business))
	mux.Handle("GET /api/v1/public/{slug}/services", public(rt.Public.Services))
	mux.Handle("GET /api/v1/public/{slug}/staff", public(rt.Public.Staff))
	mux.Handle("GET /api/v1/public/{slug}/slots", public(rt.Public.Slots))
	mux.Handle("POST /api/v1/public/{slug}/appointments", public(rt.Public.Book))

	mux.Handle("POST /api/v1/auth/register", public(rt.Auth.Register))
	mux.Handle("POST /api/v1/auth/login", public(rt.Auth.Login))
	mux.HandleFunc("POST /api/v1/auth/logout", rt.Auth.Logout)
	mux.Handle("GET /api/v1/auth/me", rt.Sessions.RequireUser(http.HandlerFunc(rt.Auth.Me)))

	m := rt.Management
	user := func(h http.HandlerFunc) http.Handler { return rt.Sessions.RequireUser(h) }
	owner := func(h businessHandler) http.Handler { return user(m.withBusiness(h)) }

	mux.Handle("POST /api/v1/business", user(m.CreateBusiness))
	mux.Handle("GET /api/v1/business", owner(m.GetBusiness))
	mux.Handle("PATCH /api/v1/business", owner(m.UpdateBusiness))

	mux.Handle("GET /api/v1/services", owner(m.ListServices))
	mux.Handle("POST /api/v1/services", owner(m.CreateService))
	mux.Handle("GET /api/v1/services/{id}", owner(m.GetService))
	mux.Handle("PATCH /api/v1/services/{id}", owner(m.UpdateService))
	mux.Handle("DELETE /api/v1/services/{id}", owner(m.DeleteService))

	mux.Handle("GET /api/v1/staff", owner(m.ListStaff))
	mux.Handle("POST /api/v1/staff", owner(m.CreateStaff))
	mux.Handle("GET /api/v1/staff/{id}", owner(m.GetStaff))
	mux.Handle("PATCH /api/v1/staff/{id}", owner(m.UpdateStaff))
	mux.Handle("DELETE /api/v1/staff/{id}", owner(m.DeleteStaff))

	mux.Handle("GET /api/v1/availability", owner(m.ListAvailability))
	mux.Handle("POST /api/v1/availability", owner(m.CreateAvailability))
	mux.Handle("PATCH /api/v1/availability/{id}", owner(m.UpdateAvailability))
	mux.Handle("DELETE /api/v1/availability/{id}", owner(m.DeleteAvailability))

	mux.Handle("GET /api/v1/customers", owner(m.ListCustomers))
	mux.Handle("POST /api/v1/customers", owner(m.CreateCustomer))
	mux.Handle("GET /api/v1/customers/{id}", owner(m.GetCustomer))

	mux.Handle("GET /api/v1/appointments", owner(m.ListAppointments))
	mux.Handle("POST /api/v1/appointments", owner(m.CreateAppointment))
	mux.Handle("GET /api/v1/appointments/slots", owner(m.Slots))
	mux.Handle("GET /api/v1/appointments/{id}", owner(m.GetAppointment))
	mux.Handle("POST /api/v1/appointments/{id}/status", owner(m.ChangeStatus))
	mux.Handle("POST /api/v1/appointments/{id}/reschedule", owner(m.Reschedule))
	mux.Handle("DELETE /api/v1/appointments/{id}", owner(m.DeleteAppointment))

	mux.Handle("GET /api/v1/dashboard/stats", owner(m.Stats))
	mux.Handle("GET /api/v1/dashboard/daily", owner(m.Daily))
}

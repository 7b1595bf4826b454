package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/cache"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/customer"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

func newCatalog(t *testing.T) (*Catalog, *storage.Memory, *cache.Memory) {
	t.Helper()
	store := storage.NewMemory()
	c := cache.NewMemory()
	cat := New(store, c, customer.NewResolver(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{CacheTTL: time.Minute})
	return cat, store, c
}

func onboard(t *testing.T, cat *Catalog, owner, name string) model.Business {
	t.Helper()
	b, err := cat.CreateBusiness(context.Background(), owner, BusinessInput{Name: name})
	if err != nil {
		t.Fatalf("CreateBusiness failed: %v", err)
	}
	return b
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Sam's Barber Shop": "sam-s-barber-shop",
		"  Café 42!! ":      "caf-42",
		"---":               "",
		"already-a-slug":    "already-a-slug",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateBusinessDerivesUniqueSlug(t *testing.T) {
	cat, _, _ := newCatalog(t)
	first := onboard(t, cat, "u1", "Bright Smile Dental")
	if first.Slug != "bright-smile-dental" || first.Timezone != "UTC" || !first.Active {
		t.Fatalf("unexpected business %+v", first)
	}
	second := onboard(t, cat, "u2", "Bright Smile Dental")
	if second.Slug == first.Slug || len(second.Slug) != len(first.Slug)+7 {
		t.Fatalf("expected suffixed slug, got %q", second.Slug)
	}

	_, err := cat.CreateBusiness(context.Background(), "u1", BusinessInput{Name: "Another"})
	var verr *errs.ValidationError
	if !errors.As(err, &verr) || verr.Fields["business"] == "" {
		t.Fatalf("expected one-business-per-owner validation error, got %v", err)
	}

	_, err = cat.CreateBusiness(context.Background(), "u3", BusinessInput{Name: "Taken", Slug: first.Slug})
	if !errors.As(err, &verr) || verr.Fields["slug"] == "" {
		t.Fatalf("expected slug validation error, got %v", err)
	}
}

func TestPublicBusinessHidesInactive(t *testing.T) {
	cat, _, _ := newCatalog(t)
	ctx := context.Background()
	b := onboard(t, cat, "u1", "Salon")

	if got, err := cat.PublicBusiness(ctx, b.Slug); err != nil || got.ID != b.ID {
		t.Fatalf("PublicBusiness = %+v, %v", got, err)
	}

	inactive := false
	if _, err := cat.UpdateBusiness(ctx, b.ID, BusinessUpdate{Active: &inactive}); err != nil {
		t.Fatalf("UpdateBusiness failed: %v", err)
	}
	var nf *errs.NotFoundError
	if _, err := cat.PublicBusiness(ctx, b.Slug); !errors.As(err, &nf) {
		t.Fatalf("expected not found for inactive business, got %v", err)
	}
}

func TestUpdateBusinessRenamesSlug(t *testing.T) {
	cat, _, _ := newCatalog(t)
	ctx := context.Background()
	b := onboard(t, cat, "u1", "Salon")
	if _, err := cat.PublicBusiness(ctx, b.Slug); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	slug := "new-salon"
	if _, err := cat.UpdateBusiness(ctx, b.ID, BusinessUpdate{Slug: &slug}); err != nil {
		t.Fatalf("UpdateBusiness failed: %v", err)
	}
	var nf *errs.NotFoundError
	if _, err := cat.PublicBusiness(ctx, "salon"); !errors.As(err, &nf) {
		t.Fatalf("old slug should no longer resolve, got %v", err)
	}
	if got, err := cat.PublicBusiness(ctx, slug); err != nil || got.ID != b.ID {
		t.Fatalf("new slug should resolve, got %+v, %v", got, err)
	}

	bad := "Not A Slug"
	var verr *errs.ValidationError
	if _, err := cat.UpdateBusiness(ctx, b.ID, BusinessUpdate{Slug: &bad}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceValidation(t *testing.T) {
	cat, _, _ := newCatalog(t)
	b := onboard(t, cat, "u1", "Salon")

	_, err := cat.CreateService(context.Background(), b.ID, ServiceInput{Price: "-1", DurationMinutes: 0})
	var verr *errs.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"name", "price", "duration_minutes"} {
		if verr.Fields[field] == "" {
			t.Fatalf("expected %s to be rejected, got %v", field, verr.Fields)
		}
	}

	s, err := cat.CreateService(context.Background(), b.ID, ServiceInput{Name: "Cut", Price: "25", DurationMinutes: 30})
	if err != nil {
		t.Fatalf("CreateService failed: %v", err)
	}
	if s.Price != "25.00" || !s.Active {
		t.Fatalf("unexpected service %+v", s)
	}
}

func TestListServicesInvalidatedOnMutation(t *testing.T) {
	cat, _, c := newCatalog(t)
	ctx := context.Background()
	b := onboard(t, cat, "u1", "Salon")
	s, err := cat.CreateService(ctx, b.ID, ServiceInput{Name: "Cut", Price: "25.00", DurationMinutes: 30})
	if err != nil {
		t.Fatalf("CreateService failed: %v", err)
	}

	list, err := cat.ListServices(ctx, b.ID, true)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListServices = %v, %v", list, err)
	}
	if _, err := c.Get(ctx, servicesKey(b.ID, true)); err != nil {
		t.Fatalf("expected list to be cached, got %v", err)
	}

	inactive := false
	if _, err := cat.UpdateService(ctx, b.ID, s.ID, ServiceUpdate{Active: &inactive}); err != nil {
		t.Fatalf("UpdateService failed: %v", err)
	}
	if _, err := c.Get(ctx, servicesKey(b.ID, true)); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("expected cache invalidation, got %v", err)
	}
	list, _ = cat.ListServices(ctx, b.ID, true)
	if len(list) != 0 {
		t.Fatalf("inactive service listed publicly: %+v", list)
	}
	all, _ := cat.ListServices(ctx, b.ID, false)
	if len(all) != 1 {
		t.Fatalf("expected service in management list, got %+v", all)
	}
}

func TestDeleteReferencedServiceAndStaffRefused(t *testing.T) {
	cat, store, _ := newCatalog(t)
	ctx := context.Background()
	b := onboard(t, cat, "u1", "Salon")
	s, _ := cat.CreateService(ctx, b.ID, ServiceInput{Name: "Cut", Price: "25.00", DurationMinutes: 30})
	st, _ := cat.CreateStaff(ctx, b.ID, StaffInput{Name: "Sam"})
	cust, err := cat.AddCustomer(ctx, b.ID, customer.Input{Name: "Ada"})
	if err != nil {
		t.Fatalf("AddCustomer failed: %v", err)
	}
	err = store.CreateAppointment(ctx, &model.Appointment{
		ID: "a1", BusinessID: b.ID, CustomerID: cust.ID, ServiceID: s.ID, StaffID: st.ID,
		Date: "2030-01-01", StartMinute: 600, EndMinute: 630, Status: model.StatusCancelled,
	})
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}

	var inUse *errs.InUseError
	if err := cat.DeleteService(ctx, b.ID, s.ID); !errors.As(err, &inUse) || inUse.Entity != "service" {
		t.Fatalf("expected in-use error for service, got %v", err)
	}
	if err := cat.DeleteStaff(ctx, b.ID, st.ID); !errors.As(err, &inUse) || inUse.Entity != "staff" {
		t.Fatalf("expected in-use error for staff, got %v", err)
	}

	unused, _ := cat.CreateService(ctx, b.ID, ServiceInput{Name: "Shave", Price: "10.00", DurationMinutes: 15})
	if err := cat.DeleteService(ctx, b.ID, unused.ID); err != nil {
		t.Fatalf("DeleteService failed: %v", err)
	}
	var nf *errs.NotFoundError
	if _, err := cat.GetService(ctx, b.ID, unused.ID); !errors.As(err, &nf) {
		t.Fatalf("expected deleted service to be gone, got %v", err)
	}
}

func TestCatalogIsTenantScoped(t *testing.T) {
	cat, _, _ := newCatalog(t)
	ctx := context.Background()
	a := onboard(t, cat, "u1", "Salon A")
	b := onboard(t, cat, "u2", "Salon B")
	st, _ := cat.CreateStaff(ctx, a.ID, StaffInput{Name: "Sam"})

	var nf *errs.NotFoundError
	if _, err := cat.GetStaff(ctx, b.ID, st.ID); !errors.As(err, &nf) {
		t.Fatalf("staff leaked across businesses: %v", err)
	}
	if err := cat.DeleteStaff(ctx, b.ID, st.ID); !errors.As(err, &nf) {
		t.Fatalf("foreign delete should be not found, got %v", err)
	}

	_, err := cat.CreateAvailability(ctx, b.ID, AvailabilityInput{StaffID: st.ID, DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00"})
	var verr *errs.ValidationError
	if !errors.As(err, &verr) || verr.Fields["staff_id"] == "" {
		t.Fatalf("expected staff_id validation error, got %v", err)
	}
}

func TestAvailabilityWindows(t *testing.T) {
	cat, _, _ := newCatalog(t)
	ctx := context.Background()
	b := onboard(t, cat, "u1", "Salon")
	st, _ := cat.CreateStaff(ctx, b.ID, StaffInput{Name: "Sam"})

	tests := []struct {
		name  string
		in    AvailabilityInput
		field string
	}{
		{"bad day", AvailabilityInput{StaffID: st.ID, DayOfWeek: 7, StartTime: "09:00", EndTime: "17:00"}, "day_of_week"},
		{"reversed", AvailabilityInput{StaffID: st.ID, DayOfWeek: 1, StartTime: "17:00", EndTime: "09:00"}, "end_time"},
		{"bad clock", AvailabilityInput{StaffID: st.ID, DayOfWeek: 1, StartTime: "9am", EndTime: "17:00"}, "start_time"},
		{"missing staff", AvailabilityInput{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00"}, "staff_id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := cat.CreateAvailability(ctx, b.ID, tc.in)
			var verr *errs.ValidationError
			if !errors.As(err, &verr) || verr.Fields[tc.field] == "" {
				t.Fatalf("expected %s error, got %v", tc.field, err)
			}
		})
	}

	w, err := cat.CreateAvailability(ctx, b.ID, AvailabilityInput{StaffID: st.ID, DayOfWeek: 1, StartTime: "09:00", EndTime: "24:00"})
	if err != nil {
		t.Fatalf("CreateAvailability failed: %v", err)
	}
	if w.StartMinute != 540 || w.EndMinute != 1440 {
		t.Fatalf("unexpected window %+v", w)
	}

	list, _ := cat.ListAvailability(ctx, b.ID, st.ID)
	if len(list) != 1 {
		t.Fatalf("expected one window, got %+v", list)
	}
	end := "12:00"
	if _, err := cat.UpdateAvailability(ctx, b.ID, w.ID, AvailabilityUpdate{EndTime: &end}); err != nil {
		t.Fatalf("UpdateAvailability failed: %v", err)
	}
	list, _ = cat.ListAvailability(ctx, b.ID, "")
	if len(list) != 1 || list[0].EndMinute != 720 {
		t.Fatalf("expected updated window in business list, got %+v", list)
	}

	if err := cat.DeleteAvailability(ctx, b.ID, w.ID); err != nil {
		t.Fatalf("DeleteAvailability failed: %v", err)
	}
	list, _ = cat.ListAvailability(ctx, b.ID, st.ID)
	if len(list) != 0 {
		t.Fatalf("expected no windows after delete, got %+v", list)
	}
}

func TestAddCustomerReusesIdentity(t *testing.T) {
	cat, _, _ := newCatalog(t)
	ctx := context.Background()
	b := onboard(t, cat, "u1", "Salon")

	first, err := cat.AddCustomer(ctx, b.ID, customer.Input{Name: "Ada", Email: "Ada@Example.com"})
	if err != nil {
		t.Fatalf("AddCustomer failed: %v", err)
	}
	again, err := cat.AddCustomer(ctx, b.ID, customer.Input{Name: "Ada L", Email: "ada@example.com"})
	if err != nil || again.ID != first.ID {
		t.Fatalf("expected same customer, got %+v, %v", again, err)
	}
	list, _ := cat.ListCustomers(ctx, b.ID)
	if len(list) != 1 {
		t.Fatalf("expected one customer, got %d", len(list))
	}
}

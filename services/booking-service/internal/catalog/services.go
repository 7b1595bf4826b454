package catalog

import (
	"context"
	"strings"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

type ServiceInput struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	DurationMinutes int    `json:"duration_minutes"`
	Active          *bool  `json:"active"`
}

type ServiceUpdate struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	Price           *string `json:"price"`
	DurationMinutes *int    `json:"duration_minutes"`
	Active          *bool   `json:"active"`
}

func (c *Catalog) CreateService(ctx context.Context, businessID string, in ServiceInput) (model.Service, error) {
	s := model.Service{
		ID:              c.newID(),
		BusinessID:      businessID,
		Name:            strings.TrimSpace(in.Name),
		Description:     strings.TrimSpace(in.Description),
		Price:           in.Price,
		DurationMinutes: in.DurationMinutes,
		Active:          boolOr(in.Active, true),
	}
	if err := normalizeService(&s); err != nil {
		return model.Service{}, err
	}
	if err := c.store.CreateService(ctx, &s); err != nil {
		return model.Service{}, errs.Persistence("insert service", err)
	}
	c.invalidateServices(ctx, businessID)
	return s, nil
}

func (c *Catalog) GetService(ctx context.Context, businessID, id string) (model.Service, error) {
	s, err := c.store.GetService(ctx, businessID, id)
	if err != nil {
		return model.Service{}, errs.Persistence("load service", err)
	}
	if s == nil {
		return model.Service{}, errs.NotFound("service", id)
	}
	return *s, nil
}

// ListServices backs both the management list and the public booking form (activeOnly).
func (c *Catalog) ListServices(ctx context.Context, businessID string, activeOnly bool) ([]model.Service, error) {
	out, err := cached(ctx, c, servicesKey(businessID, activeOnly), func() ([]model.Service, error) {
		return c.store.ListServices(ctx, businessID, activeOnly)
	})
	return out, errs.Persistence("list services", err)
}

func (c *Catalog) UpdateService(ctx context.Context, businessID, id string, u ServiceUpdate) (model.Service, error) {
	var s model.Service
	err := c.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetService(ctx, businessID, id)
		if err != nil {
			return errs.Persistence("load service", err)
		}
		if cur == nil {
			return errs.NotFound("service", id)
		}
		s = *cur
		applyString(&s.Name, u.Name)
		applyString(&s.Description, u.Description)
		applyString(&s.Price, u.Price)
		if u.DurationMinutes != nil {
			s.DurationMinutes = *u.DurationMinutes
		}
		s.Active = boolOr(u.Active, s.Active)
		if err := normalizeService(&s); err != nil {
			return err
		}
		return errs.Persistence("update service", q.UpdateService(ctx, &s))
	})
	if err != nil {
		return model.Service{}, errs.Persistence("update service", err)
	}
	c.invalidateServices(ctx, businessID)
	return s, nil
}

// DeleteService refuses while any appointment references the service. Deactivate it instead
// to hide it from the booking form.
func (c *Catalog) DeleteService(ctx context.Context, businessID, id string) error {
	err := c.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetService(ctx, businessID, id)
		if err != nil {
			return errs.Persistence("load service", err)
		}
		if cur == nil {
			return errs.NotFound("service", id)
		}
		n, err := q.CountAppointments(ctx, businessID, storage.Reference{ServiceID: id})
		if err != nil {
			return errs.Persistence("count appointments", err)
		}
		if n > 0 {
			return &errs.InUseError{Entity: "service", ID: id, Reason: "referenced by appointments; deactivate it instead"}
		}
		return errs.Persistence("delete service", q.DeleteService(ctx, businessID, id))
	})
	if err != nil {
		return errs.Persistence("delete service", err)
	}
	c.invalidateServices(ctx, businessID)
	return nil
}

func (c *Catalog) invalidateServices(ctx context.Context, businessID string) {
	c.invalidate(ctx, servicesKey(businessID, true), servicesKey(businessID, false))
}

func normalizeService(s *model.Service) error {
	var v errs.ValidationError
	if s.Name == "" {
		v.Add("name", "is required")
	}
	price, err := model.NormalizePrice(s.Price)
	if err != nil {
		v.Add("price", err.Error())
	}
	s.Price = price
	if s.DurationMinutes <= 0 || s.DurationMinutes > availability.MinutesPerDay {
		v.Add("duration_minutes", "must be a positive number of minutes within a day")
	}
	return v.Err()
}

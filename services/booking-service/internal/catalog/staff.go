package catalog

import (
	"context"
	"net/mail"
	"strings"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

type StaffInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Role   string `json:"role"`
	Active *bool  `json:"active"`
}

type StaffUpdate struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Phone  *string `json:"phone"`
	Role   *string `json:"role"`
	Active *bool   `json:"active"`
}

func (c *Catalog) CreateStaff(ctx context.Context, businessID string, in StaffInput) (model.Staff, error) {
	s := model.Staff{
		ID:         c.newID(),
		BusinessID: businessID,
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:      strings.TrimSpace(in.Phone),
		Role:       strings.TrimSpace(in.Role),
		Active:     boolOr(in.Active, true),
	}
	if err := validateStaff(s); err != nil {
		return model.Staff{}, err
	}
	if err := c.store.CreateStaff(ctx, &s); err != nil {
		return model.Staff{}, errs.Persistence("insert staff", err)
	}
	c.invalidateStaff(ctx, businessID, s.ID)
	return s, nil
}

func (c *Catalog) GetStaff(ctx context.Context, businessID, id string) (model.Staff, error) {
	s, err := c.store.GetStaff(ctx, businessID, id)
	if err != nil {
		return model.Staff{}, errs.Persistence("load staff", err)
	}
	if s == nil {
		return model.Staff{}, errs.NotFound("staff", id)
	}
	return *s, nil
}

func (c *Catalog) ListStaff(ctx context.Context, businessID string, activeOnly bool) ([]model.Staff, error) {
	out, err := cached(ctx, c, staffKey(businessID, activeOnly), func() ([]model.Staff, error) {
		return c.store.ListStaff(ctx, businessID, activeOnly)
	})
	return out, errs.Persistence("list staff", err)
}

func (c *Catalog) UpdateStaff(ctx context.Context, businessID, id string, u StaffUpdate) (model.Staff, error) {
	var s model.Staff
	err := c.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetStaff(ctx, businessID, id)
		if err != nil {
			return errs.Persistence("load staff", err)
		}
		if cur == nil {
			return errs.NotFound("staff", id)
		}
		s = *cur
		applyString(&s.Name, u.Name)
		applyString(&s.Email, u.Email)
		s.Email = strings.ToLower(s.Email)
		applyString(&s.Phone, u.Phone)
		applyString(&s.Role, u.Role)
		s.Active = boolOr(u.Active, s.Active)
		if err := validateStaff(s); err != nil {
			return err
		}
		return errs.Persistence("update staff", q.UpdateStaff(ctx, &s))
	})
	if err != nil {
		return model.Staff{}, errs.Persistence("update staff", err)
	}
	c.invalidateStaff(ctx, businessID, id)
	return s, nil
}

// DeleteStaff refuses while any appointment references the staff member. Their availability
// windows are removed with them.
func (c *Catalog) DeleteStaff(ctx context.Context, businessID, id string) error {
	err := c.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetStaff(ctx, businessID, id)
		if err != nil {
			return errs.Persistence("load staff", err)
		}
		if cur == nil {
			return errs.NotFound("staff", id)
		}
		n, err := q.CountAppointments(ctx, businessID, storage.Reference{StaffID: id})
		if err != nil {
			return errs.Persistence("count appointments", err)
		}
		if n > 0 {
			return &errs.InUseError{Entity: "staff", ID: id, Reason: "referenced by appointments; deactivate them instead"}
		}
		return errs.Persistence("delete staff", q.DeleteStaff(ctx, businessID, id))
	})
	if err != nil {
		return errs.Persistence("delete staff", err)
	}
	c.invalidateStaff(ctx, businessID, id)
	return nil
}

func (c *Catalog) invalidateStaff(ctx context.Context, businessID, staffID string) {
	c.invalidate(ctx,
		staffKey(businessID, true),
		staffKey(businessID, false),
		availabilityKey(businessID, staffID),
		availabilityKey(businessID, ""),
	)
}

func validateStaff(s model.Staff) error {
	var v errs.ValidationError
	if s.Name == "" {
		v.Add("name", "is required")
	}
	if s.Email != "" {
		if _, err := mail.ParseAddress(s.Email); err != nil {
			v.Add("email", "is not a valid email address")
		}
	}
	return v.Err()
}

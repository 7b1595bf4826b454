// Package customer finds or creates the customer record behind a booking.
package customer

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

type Input struct {
	Name  string
	Email string
	Phone string
	Notes string
}

// Normalize trims every field and lower-cases the email.
func (in Input) Normalize() Input {
	return Input{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
		Phone: strings.TrimSpace(in.Phone),
		Notes: strings.TrimSpace(in.Notes),
	}
}

func (in Input) Validate() error {
	var v errs.ValidationError
	if in.Name == "" {
		v.Add("customer_name", "is required")
	}
	if in.Email != "" {
		if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
			v.Add("customer_email", "is not a valid email address")
		}
	}
	return v.Err()
}

type Resolver struct {
	newID func() string
}

func NewResolver() *Resolver {
	return &Resolver{newID: uuid.NewString}
}

// Resolve matches an existing customer of the business by exact email, then by exact phone,
// and creates one when neither matches. An existing record is returned as stored. Store
// errors are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, q storage.CustomerQueries, businessID string, in Input) (model.Customer, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return model.Customer{}, err
	}

	if in.Email != "" {
		c, err := q.FindCustomerByEmail(ctx, businessID, in.Email)
		if err != nil {
			return model.Customer{}, err
		}
		if c != nil {
			return *c, nil
		}
	}
	if in.Phone != "" {
		c, err := q.FindCustomerByPhone(ctx, businessID, in.Phone)
		if err != nil {
			return model.Customer{}, err
		}
		if c != nil {
			return *c, nil
		}
	}

	c := model.Customer{
		ID:         r.newID(),
		BusinessID: businessID,
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Notes:      in.Notes,
	}
	if err := q.CreateCustomer(ctx, &c); err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

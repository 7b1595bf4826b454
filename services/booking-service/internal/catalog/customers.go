package catalog

import (
	"context"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/customer"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
)

// AddCustomer goes through the resolver so staff-entered customers share identity with
// self-service bookings.
func (c *Catalog) AddCustomer(ctx context.Context, businessID string, in customer.Input) (model.Customer, error) {
	cust, err := c.resolver.Resolve(ctx, c.store, businessID, in)
	return cust, errs.Persistence("resolve customer", err)
}

func (c *Catalog) GetCustomer(ctx context.Context, businessID, id string) (model.Customer, error) {
	cust, err := c.store.GetCustomer(ctx, businessID, id)
	if err != nil {
		return model.Customer{}, errs.Persistence("load customer", err)
	}
	if cust == nil {
		return model.Customer{}, errs.NotFound("customer", id)
	}
	return *cust, nil
}

func (c *Catalog) ListCustomers(ctx context.Context, businessID string) ([]model.Customer, error) {
	out, err := c.store.ListCustomers(ctx, businessID)
	return out, errs.Persistence("list customers", err)
}

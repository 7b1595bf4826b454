package customer

import (
	"context"
	"errors"
	"testing"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

func TestResolveIsIdempotentByEmail(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := NewResolver()

	first, err := r.Resolve(ctx, store, "b1", Input{Name: "Ann", Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := r.Resolve(ctx, store, "b1", Input{Name: "Ann B.", Email: "  ANN@example.com "})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same customer, got %s and %s", first.ID, second.ID)
	}
	all, _ := store.ListCustomers(ctx, "b1")
	if len(all) != 1 {
		t.Fatalf("expected 1 customer row, got %d", len(all))
	}
}

func TestResolveMatchesPhoneWhenNoEmail(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := NewResolver()

	existing, err := r.Resolve(ctx, store, "b1", Input{Name: "Bob", Email: "bob@example.com", Phone: "+15550100"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	got, err := r.Resolve(ctx, store, "b1", Input{Name: "Bob", Phone: "+15550100"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.ID != existing.ID {
		t.Fatalf("expected phone match to resolve to %s, got %s", existing.ID, got.ID)
	}
}

func TestResolvePrefersEmailOverPhone(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := NewResolver()

	byPhone, _ := r.Resolve(ctx, store, "b1", Input{Name: "Shared", Phone: "+15550100"})
	got, err := r.Resolve(ctx, store, "b1", Input{Name: "Carol", Email: "carol@example.com", Phone: "+15550100"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.ID != byPhone.ID {
		// No email match exists yet, so the phone match wins.
		t.Fatalf("expected phone fallback, got new customer %s", got.ID)
	}

	dan, _ := r.Resolve(ctx, store, "b1", Input{Name: "Dan", Email: "dan@example.com"})
	got, _ = r.Resolve(ctx, store, "b1", Input{Name: "Dan", Email: "dan@example.com", Phone: "+15550100"})
	if got.ID != dan.ID {
		t.Fatalf("email match must win over phone, got %s want %s", got.ID, dan.ID)
	}
}

func TestResolveScopedToBusiness(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	r := NewResolver()

	a, _ := r.Resolve(ctx, store, "b1", Input{Name: "Ann", Email: "ann@example.com"})
	b, _ := r.Resolve(ctx, store, "b2", Input{Name: "Ann", Email: "ann@example.com"})
	if a.ID == b.ID {
		t.Fatal("customers must not be shared across businesses")
	}
}

func TestResolveRequiresName(t *testing.T) {
	_, err := NewResolver().Resolve(context.Background(), storage.NewMemory(), "b1", Input{Name: "  ", Email: "x@example.com"})
	var v *errs.ValidationError
	if !errors.As(err, &v) || v.Fields["customer_name"] == "" {
		t.Fatalf("expected name validation error, got %v", err)
	}
}

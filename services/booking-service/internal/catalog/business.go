package catalog

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

type BusinessInput struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Industry string `json:"industry"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Timezone string `json:"timezone"`
}

// BusinessUpdate lists the fields an owner may change. Nil fields are left untouched.
type BusinessUpdate struct {
	Name     *string `json:"name"`
	Slug     *string `json:"slug"`
	Industry *string `json:"industry"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	Timezone *string `json:"timezone"`
	Active   *bool   `json:"active"`
}

// CreateBusiness onboards ownerID. Each user owns at most one business. An empty slug is
// derived from the name and suffixed when taken.
func (c *Catalog) CreateBusiness(ctx context.Context, ownerID string, in BusinessInput) (model.Business, error) {
	b := model.Business{
		ID:       c.newID(),
		OwnerID:  ownerID,
		Name:     strings.TrimSpace(in.Name),
		Slug:     strings.TrimSpace(in.Slug),
		Industry: strings.TrimSpace(in.Industry),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:    strings.TrimSpace(in.Phone),
		Address:  strings.TrimSpace(in.Address),
		Timezone: strings.TrimSpace(in.Timezone),
		Active:   true,
	}
	explicitSlug := b.Slug != ""
	if !explicitSlug {
		b.Slug = Slugify(b.Name)
	}
	if b.Timezone == "" {
		b.Timezone = "UTC"
	}
	if err := validateBusiness(b); err != nil {
		return model.Business{}, err
	}

	err := c.store.InTx(ctx, func(q storage.Queries) error {
		existing, err := q.GetBusinessByOwner(ctx, ownerID)
		if err != nil {
			return errs.Persistence("load business", err)
		}
		if existing != nil {
			return errs.Validation("business", "this account already has a business")
		}

		taken, err := q.GetBusinessBySlug(ctx, b.Slug)
		if err != nil {
			return errs.Persistence("check slug", err)
		}
		if taken != nil {
			if explicitSlug {
				return errs.Validation("slug", "is already taken")
			}
			b.Slug = b.Slug + "-" + strings.ReplaceAll(c.newID(), "-", "")[:6]
		}
		if err := q.CreateBusiness(ctx, &b); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return errs.Validation("slug", "is already taken")
			}
			return errs.Persistence("insert business", err)
		}
		return nil
	})
	if err != nil {
		return model.Business{}, errs.Persistence("create business", err)
	}
	c.invalidate(ctx, businessSlugKey(b.Slug))
	c.logger.Info("business created", "business_id", b.ID, "slug", b.Slug)
	return b, nil
}

func (c *Catalog) GetBusiness(ctx context.Context, id string) (model.Business, error) {
	b, err := c.store.GetBusiness(ctx, id)
	if err != nil {
		return model.Business{}, errs.Persistence("load business", err)
	}
	if b == nil {
		return model.Business{}, errs.NotFound("business", id)
	}
	return *b, nil
}

// BusinessForOwner returns nil when the user has not onboarded yet.
func (c *Catalog) BusinessForOwner(ctx context.Context, ownerID string) (*model.Business, error) {
	b, err := c.store.GetBusinessByOwner(ctx, ownerID)
	return b, errs.Persistence("load business", err)
}

// PublicBusiness resolves the public booking link. Inactive businesses are reported as not
// found.
func (c *Catalog) PublicBusiness(ctx context.Context, slug string) (model.Business, error) {
	b, err := cached(ctx, c, businessSlugKey(slug), func() (*model.Business, error) {
		return c.store.GetBusinessBySlug(ctx, slug)
	})
	if err != nil {
		return model.Business{}, errs.Persistence("load business", err)
	}
	if b == nil || !b.Active {
		return model.Business{}, errs.NotFound("business", slug)
	}
	return *b, nil
}

func (c *Catalog) UpdateBusiness(ctx context.Context, id string, u BusinessUpdate) (model.Business, error) {
	var b model.Business
	var oldSlug string
	err := c.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetBusiness(ctx, id)
		if err != nil {
			return errs.Persistence("load business", err)
		}
		if cur == nil {
			return errs.NotFound("business", id)
		}
		b = *cur
		oldSlug = b.Slug
		applyString(&b.Name, u.Name)
		applyString(&b.Slug, u.Slug)
		applyString(&b.Industry, u.Industry)
		applyString(&b.Email, u.Email)
		b.Email = strings.ToLower(b.Email)
		applyString(&b.Phone, u.Phone)
		applyString(&b.Address, u.Address)
		applyString(&b.Timezone, u.Timezone)
		b.Active = boolOr(u.Active, b.Active)
		if err := validateBusiness(b); err != nil {
			return err
		}
		if err := q.UpdateBusiness(ctx, &b); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return errs.Validation("slug", "is already taken")
			}
			return errs.Persistence("update business", err)
		}
		return nil
	})
	if err != nil {
		return model.Business{}, errs.Persistence("update business", err)
	}
	c.invalidate(ctx, businessSlugKey(oldSlug), businessSlugKey(b.Slug))
	return b, nil
}

func validateBusiness(b model.Business) error {
	var v errs.ValidationError
	if b.Name == "" {
		v.Add("name", "is required")
	}
	if b.Slug == "" || Slugify(b.Slug) != b.Slug {
		v.Add("slug", "must contain only lowercase letters, digits and single hyphens")
	}
	if b.Email != "" {
		if _, err := mail.ParseAddress(b.Email); err != nil {
			v.Add("email", "is not a valid email address")
		}
	}
	return v.Err()
}

// Slugify lower-cases s and joins runs of letters and digits with single hyphens.
func Slugify(s string) string {
	var sb strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		isWord := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isWord {
			pendingHyphen = sb.Len() > 0
			continue
		}
		if pendingHyphen {
			sb.WriteByte('-')
			pendingHyphen = false
		}
		sb.WriteRune(r)
	}
	out := sb.String()
	if len(out) > 48 {
		out = strings.TrimRight(out[:48], "-")
	}
	return out
}

func applyString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

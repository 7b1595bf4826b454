// Package catalog manages the bookable setup of a business: the business itself, its
// services, staff and weekly availability. Reads are served through a query cache that every
// successful mutation invalidates.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/cache"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/customer"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

type Catalog struct {
	store    storage.Store
	cache    cache.Cache
	ttl      time.Duration
	resolver *customer.Resolver
	metrics  *metrics.Metrics
	logger   *slog.Logger
	newID    func() string
}

type Config struct {
	CacheTTL time.Duration
}

func New(store storage.Store, c cache.Cache, resolver *customer.Resolver, m *metrics.Metrics, logger *slog.Logger, cfg Config) *Catalog {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	return &Catalog{
		store:    store,
		cache:    c,
		ttl:      cfg.CacheTTL,
		resolver: resolver,
		metrics:  m,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// Cache keys name the query they hold.

func businessSlugKey(slug string) string { return "business:slug:" + slug }

func servicesKey(businessID string, activeOnly bool) string {
	return "catalog:" + businessID + ":services:" + scope(activeOnly)
}

func staffKey(businessID string, activeOnly bool) string {
	return "catalog:" + businessID + ":staff:" + scope(activeOnly)
}

func availabilityKey(businessID, staffID string) string {
	if staffID == "" {
		staffID = "*"
	}
	return "catalog:" + businessID + ":availability:" + staffID
}

func scope(activeOnly bool) string {
	if activeOnly {
		return "active"
	}
	return "all"
}

// cached serves key from the cache or computes it with load and stores the result. Cache
// failures fall back to load.
func cached[T any](ctx context.Context, c *Catalog, key string, load func() (T, error)) (T, error) {
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			c.metrics.CacheLookup("hit")
			return v, nil
		}
	} else if errors.Is(err, cache.ErrMiss) {
		c.metrics.CacheLookup("miss")
	} else {
		c.metrics.CacheLookup("error")
		c.logger.Warn("cache read failed", "key", key, "err", err)
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			c.logger.Warn("cache write failed", "key", key, "err", err)
		}
	}
	return v, nil
}

// invalidate runs after a committed mutation.
func (c *Catalog) invalidate(ctx context.Context, keys ...string) {
	if err := c.cache.Delete(ctx, keys...); err != nil {
		c.logger.Warn("cache invalidation failed", "keys", keys, "err", err)
	}
}

func boolOr(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}

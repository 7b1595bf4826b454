package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/bookly/libs/config"
	"github.com/md-rashed-zaman/bookly/libs/db"
	"github.com/md-rashed-zaman/bookly/libs/httpx"
	"github.com/md-rashed-zaman/bookly/libs/kafkax"
	"github.com/md-rashed-zaman/bookly/libs/runtime"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/analytics"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/cache"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/consumer"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
)

// backend bundles the stores chosen by configuration.
type backend struct {
	store     storage.Store
	outbox    outbox.Source
	analytics analytics.Repository
	checks    []runtime.ReadyCheck
	closers   []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend uses Postgres when DATABASE_URL is set and process memory otherwise.
func openBackend(ctx context.Context, logger *slog.Logger) (*backend, error) {
	dbURL := config.String("DATABASE_URL", "")
	if dbURL == "" {
		logger.Warn("DATABASE_URL not set, using the in-memory store")
		mem := storage.NewMemory()
		return &backend{store: mem, outbox: mem, analytics: analytics.NewMemory(mem)}, nil
	}

	pool, err := db.Open(ctx, dbURL, db.PoolConfig{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 1)),
	})
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return &backend{
		store:     storage.NewPostgres(pool),
		outbox:    outbox.NewRepository(pool),
		analytics: analytics.NewPostgres(pool),
		checks:    []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}},
		closers:   []func(){pool.Close},
	}, nil
}

// openCache returns the query cache and the public rate limiter, both shared through Redis
// when REDIS_ADDR is set.
func openCache(logger *slog.Logger, be *backend) (cache.Cache, httpx.Limiter) {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	addr := config.String("REDIS_ADDR", "")
	if addr == "" {
		return cache.NewMemory(), httpx.NewMemoryLimiter(limit, time.Minute)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       config.Int("REDIS_DB", 0),
	})
	be.checks = append(be.checks, runtime.ReadyCheck{Name: "redis", Check: cache.ReadyCheck(rdb)})
	be.closers = append(be.closers, func() { _ = rdb.Close() })
	return cache.NewRedis(rdb, "bookly:cache:", logger),
		httpx.NewRedisLimiter(rdb, limit, time.Minute, "bookly:ratelimit:")
}

// startEvents relays the outbox. With brokers configured events go through Kafka and come
// back through one consumer per topic; otherwise they feed the aggregator in process.
func startEvents(ctx context.Context, logger *slog.Logger, m *metrics.Metrics, be *backend, agg *analytics.Aggregator, service string) {
	brokers := config.List("KAFKA_BROKERS", "")
	relayCfg := outbox.RelayConfig{
		PollEvery: config.Seconds("OUTBOX_POLL_SECONDS", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	}

	if len(brokers) == 0 {
		logger.Info("KAFKA_BROKERS not set, aggregating events in process")
		go outbox.NewRelay(be.outbox, agg.Sink(), logger, m, relayCfg).Run(ctx)
		return
	}

	sink := outbox.NewKafkaSink(brokers)
	be.closers = append(be.closers, func() { _ = sink.Close() })
	be.checks = append(be.checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	go outbox.NewRelay(be.outbox, sink, logger, m, relayCfg).Run(ctx)

	groupID := config.String("KAFKA_GROUP_ID", service+"-analytics")
	for _, topic := range outbox.AppointmentTopics {
		c := consumer.New(logger, consumer.Config{Brokers: brokers, GroupID: groupID, Topic: topic}, agg.Handle)
		go c.Run(ctx)
	}
}

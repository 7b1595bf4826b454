package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

var ErrUnavailable = errors.New("cache unavailable")

// Redis is a shared cache guarded by a circuit breaker so a failing Redis costs one fast
// error per call instead of a network timeout.
type Redis struct {
	rdb     redis.Cmdable
	prefix  string
	breaker *gobreaker.CircuitBreaker
}

func NewRedis(rdb redis.Cmdable, prefix string, logger *slog.Logger) *Redis {
	settings := gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5 ||
				(counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Redis{rdb: rdb, prefix: prefix, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := r.breaker.Execute(func() (interface{}, error) {
		b, err := r.rdb.Get(ctx, r.key(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			// A miss is a healthy answer and must not count against the breaker.
			return nil, nil
		}
		return b, err
	})
	if err != nil {
		return nil, r.wrap(err)
	}
	b, _ := res.([]byte)
	if b == nil {
		return nil, ErrMiss
	}
	return b, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.rdb.Set(ctx, r.key(key), value, ttl).Err()
	})
	return r.wrap(err)
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, r.key(k))
	}
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.rdb.Del(ctx, full...).Err()
	})
	return r.wrap(err)
}

func (r *Redis) wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// ReadyCheck pings Redis directly, bypassing the breaker.
func ReadyCheck(rdb redis.Cmdable) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

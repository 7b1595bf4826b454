package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/metrics"
)

// Source hands out unpublished records. fn runs while the records are claimed; they are
// marked published only if fn returns nil.
type Source interface {
	ProcessUnpublished(ctx context.Context, limit int, fn func(ctx context.Context, records []Record) error) error
}

// Sink delivers a batch of records downstream.
type Sink interface {
	Publish(ctx context.Context, records []Record) error
}

type SinkFunc func(ctx context.Context, records []Record) error

func (f SinkFunc) Publish(ctx context.Context, records []Record) error { return f(ctx, records) }

type RelayConfig struct {
	PollEvery time.Duration
	BatchSize int
}

// Relay polls the outbox and forwards each batch to a sink.
type Relay struct {
	source    Source
	sink      Sink
	logger    *slog.Logger
	metrics   *metrics.Metrics
	pollEvery time.Duration
	batchSize int
}

func NewRelay(source Source, sink Sink, logger *slog.Logger, m *metrics.Metrics, cfg RelayConfig) *Relay {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Relay{
		source:    source,
		sink:      sink,
		logger:    logger,
		metrics:   m,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("outbox publish failed", "err", err)
			}
		}
	}
}

// Flush relays batches until the outbox is drained and returns how many records went out.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	total := 0
	for {
		n := 0
		err := r.source.ProcessUnpublished(ctx, r.batchSize, func(ctx context.Context, records []Record) error {
			n = len(records)
			if n == 0 {
				return nil
			}
			return r.sink.Publish(ctx, records)
		})
		if err != nil {
			return total, err
		}
		total += n
		r.metrics.OutboxPublished(n)
		if n < r.batchSize {
			return total, nil
		}
	}
}

package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/bookly/libs/db"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/inbox"
)

type Postgres struct {
	pool *db.Pool
}

func NewPostgres(pool *db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (r *Postgres) Apply(ctx context.Context, eventID, eventType string, ch Change) (bool, error) {
	var applied bool
	err := r.pool.InTx(ctx, db.TxOptions{}, func(tx pgx.Tx) error {
		ok, err := inbox.Record(ctx, tx, ConsumerName, eventID, eventType)
		if err != nil {
			return fmt.Errorf("record inbox: %w", err)
		}
		if !ok {
			return nil
		}

		for _, d := range ch.Deltas {
			day, err := availability.ParseDate(d.Day)
			if err != nil {
				return fmt.Errorf("delta day %q: %w", d.Day, err)
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO daily_appointment_metrics (business_id, day, booked, completed, cancelled, revenue_cents)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (business_id, day)
				DO UPDATE SET booked = daily_appointment_metrics.booked + EXCLUDED.booked,
				              completed = daily_appointment_metrics.completed + EXCLUDED.completed,
				              cancelled = daily_appointment_metrics.cancelled + EXCLUDED.cancelled,
				              revenue_cents = daily_appointment_metrics.revenue_cents + EXCLUDED.revenue_cents,
				              updated_at = now()
			`, ch.BusinessID, day, d.Booked, d.Completed, d.Cancelled, d.RevenueCents); err != nil {
				return fmt.Errorf("update daily metrics: %w", err)
			}
		}

		if ch.CountAppointmentID != "" {
			if _, err := tx.Exec(ctx, `
				UPDATE appointments SET counted = true WHERE business_id = $1 AND id = $2
			`, ch.BusinessID, ch.CountAppointmentID); err != nil {
				return fmt.Errorf("mark appointment counted: %w", err)
			}
		}
		applied = true
		return nil
	})
	return applied, err
}

func (r *Postgres) Daily(ctx context.Context, businessID string, from, to time.Time) ([]Day, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day::text, booked, completed, cancelled, revenue_cents
		FROM daily_appointment_metrics
		WHERE business_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day
	`, businessID, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Day, error) {
		var d Day
		err := row.Scan(&d.Date, &d.Booked, &d.Completed, &d.Cancelled, &d.RevenueCents)
		return d, err
	})
}

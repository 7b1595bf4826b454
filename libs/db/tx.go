package db

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the services branch on.
const (
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeExclusionViolation   = "23P01"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
)

// TxOptions controls InTx. Zero value means read-committed with a single attempt.
type TxOptions struct {
	IsoLevel    pgx.TxIsoLevel
	MaxAttempts int
	BaseBackoff time.Duration
}

// Serializable is the isolation used for read-then-write decisions such as slot checks.
var Serializable = TxOptions{IsoLevel: pgx.Serializable, MaxAttempts: 3, BaseBackoff: 20 * time.Millisecond}

// InTx runs fn in a transaction and commits when it returns nil. Serialization failures and
// deadlocks are retried from the top, so fn must not keep side effects outside the tx.
func (p *Pool) InTx(ctx context.Context, opts TxOptions, fn func(tx pgx.Tx) error) error {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = p.runTx(ctx, opts.IsoLevel, fn)
		if err == nil || !IsRetryable(err) || attempt == attempts {
			return err
		}
		if waitErr := sleepCtx(ctx, backoff(opts.BaseBackoff, attempt)); waitErr != nil {
			return err
		}
	}
	return err
}

func (p *Pool) runTx(ctx context.Context, iso pgx.TxIsoLevel, fn func(tx pgx.Tx) error) error {
	tx, err := p.BeginTx(ctx, pgx.TxOptions{IsoLevel: iso})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// PgCode returns the SQLSTATE of a Postgres error, or "" for anything else.
func PgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsRetryable(err error) bool {
	switch PgCode(err) {
	case CodeSerializationFailure, CodeDeadlockDetected:
		return true
	default:
		return false
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 20 * time.Millisecond
	}
	d := base * time.Duration(1<<(attempt-1))
	return d + time.Duration(rand.Int64N(int64(base)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

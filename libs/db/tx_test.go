package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization", &pgconn.PgError{Code: CodeSerializationFailure}, true},
		{"wrapped deadlock", fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeDeadlockDetected}), true},
		{"exclusion", &pgconn.PgError{Code: CodeExclusionViolation}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Fatalf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPgCodeAndNotFound(t *testing.T) {
	if got := PgCode(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: CodeUniqueViolation})); got != CodeUniqueViolation {
		t.Fatalf("expected %s, got %q", CodeUniqueViolation, got)
	}
	if PgCode(errors.New("x")) != "" {
		t.Fatal("expected empty code for non-pg error")
	}
	if !IsNotFound(fmt.Errorf("select: %w", pgx.ErrNoRows)) {
		t.Fatal("expected wrapped ErrNoRows to be not found")
	}
}

func TestBackoffGrows(t *testing.T) {
	base := 10 * time.Millisecond
	first := backoff(base, 1)
	third := backoff(base, 3)
	if first < base || first >= 2*base {
		t.Fatalf("first backoff out of range: %s", first)
	}
	if third < 4*base {
		t.Fatalf("third backoff should be at least 4x base, got %s", third)
	}
}

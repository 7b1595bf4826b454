package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestPersistenceKeepsTypedErrors(t *testing.T) {
	conflict := &ConflictError{AppointmentID: "a1"}
	wrapped := fmt.Errorf("validate slot: %w", conflict)
	if got := Persistence("insert appointment", wrapped); got != wrapped {
		t.Fatalf("typed error should pass through unchanged, got %v", got)
	}

	raw := context.DeadlineExceeded
	err := Persistence("insert appointment", raw)
	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Op != "insert appointment" {
		t.Fatalf("expected PersistenceError, got %T", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("PersistenceError should unwrap to its cause")
	}
	if Persistence("noop", nil) != nil {
		t.Fatal("nil stays nil")
	}
}

func TestValidationAccumulates(t *testing.T) {
	var v ValidationError
	if v.Err() != nil {
		t.Fatal("empty validation error should be nil")
	}
	v.Add("name", "is required")
	v.Add("name", "second message is ignored")
	v.Add("email", "is invalid")
	err := v.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "validation failed: email: is invalid; name: is required" {
		t.Fatalf("unexpected message %q", got)
	}
}

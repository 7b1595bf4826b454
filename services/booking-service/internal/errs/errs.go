// Package errs holds the error kinds callers of the booking core branch on.
package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func Validation(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// Err returns nil when no field was added, so callers can accumulate and return once.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError reports the existing appointment a proposed slot overlaps.
type ConflictError struct {
	AppointmentID string
}

func (e *ConflictError) Error() string {
	if e.AppointmentID == "" {
		return "slot conflicts with an existing appointment"
	}
	return "slot conflicts with appointment " + e.AppointmentID
}

type NotFoundError struct {
	Entity string
	ID     string
}

func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// TransitionError is an appointment status change the state machine forbids.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change appointment status from %s to %s", e.From, e.To)
}

// InUseError refuses a delete while other records still depend on the entity.
type InUseError struct {
	Entity string
	ID     string
	Reason string
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("%s %q is in use: %s", e.Entity, e.ID, e.Reason)
}

// PersistenceError wraps a store failure with the step that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err unless it is nil or already one of the typed kinds above.
func Persistence(op string, err error) error {
	if err == nil || IsTyped(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsTyped reports whether err is a domain error that must reach the caller unchanged.
func IsTyped(err error) bool {
	var (
		v  *ValidationError
		c  *ConflictError
		nf *NotFoundError
		tr *TransitionError
		iu *InUseError
		pe *PersistenceError
	)
	return errors.As(err, &v) || errors.As(err, &c) || errors.As(err, &nf) ||
		errors.As(err, &tr) || errors.As(err, &iu) || errors.As(err, &pe)
}

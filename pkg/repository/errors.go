package repository

import (
	"errors"
	"fmt"
)

// NotFoundError reports that an operation targeted a missing entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConflictError reports a write that lost a race: the row changed between the
// caller's read and its write.
type ConflictError struct {
	Entity string
	ID     int64
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d conflict: %s", e.Entity, e.ID, e.Reason)
}

// PersistenceKind classifies storage failures.
type PersistenceKind string

const (
	KindConstraint  PersistenceKind = "constraint"
	KindUnavailable PersistenceKind = "unavailable"
	KindUnknown     PersistenceKind = "unknown"
)

// PersistenceError wraps a storage-layer failure. Callers may retry when
// Retryable is set; the engine itself never does.
type PersistenceError struct {
	Op        string
	Kind      PersistenceKind
	Retryable bool
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s storage failure: %v", e.Op, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is or wraps a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// Package apierror provides standardized error response structures for the API
// plus the typed domain errors the services return. All errors returned to
// clients go through this package to ensure consistency and to prevent leaking
// internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ── Domain error taxonomy ────────────────────────────────────────────────────

// ValidationError signals malformed input: negative real quantity, purchase
// line subtotal mismatch, recipe weights not summing to the base weight, or an
// unknown reference. Fields carries per-field details when they exist.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string { return e.Detail }

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}

func Validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}

// NotFoundError signals that a referenced record does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// DependencyError signals a deletion refused because dependent active records
// exist. The detail names the blocking records so the caller can self-correct.
type DependencyError struct {
	Detail string
}

func (e *DependencyError) Error() string { return e.Detail }

func Dependencyf(format string, args ...interface{}) *DependencyError {
	return &DependencyError{Detail: fmt.Sprintf(format, args...)}
}

// ErrConcurrencyConflict is returned when a manual ledger edit loses the race:
// the version predicate matched zero rows. The caller must reload and retry.
var ErrConcurrencyConflict = errors.New("ledger row was modified concurrently, reload and retry")

// StorageError wraps an underlying storage failure. It is never retried by
// the services themselves.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

func Storage(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

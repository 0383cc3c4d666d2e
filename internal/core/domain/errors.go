package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates an unknown slug or version.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates two writers raced for the same version.
	// The whole save must be retried.
	ErrVersionConflict = errors.New("version conflict")

	// ErrCorruptRecord indicates a checksum or structural validation failure on read.
	// The store refuses to serve the record.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrIOFailure indicates the underlying persistence layer failed.
	ErrIOFailure = errors.New("storage i/o failure")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPatchMismatch indicates a change list does not apply to the given document.
	ErrPatchMismatch = errors.New("patch does not apply")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")
)

// RecordError attaches slug and version context to a store error.
// Version is zero when the operation is not tied to one version.
type RecordError struct {
	Op      string
	Slug    string
	Version int
	Err     error
}

// NewRecordError wraps err with operation, slug and version context.
func NewRecordError(op, slug string, version int, err error) *RecordError {
	return &RecordError{Op: op, Slug: slug, Version: version, Err: err}
}

func (e *RecordError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("%s %s@v%d: %v", e.Op, e.Slug, e.Version, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Slug, e.Err)
}

// Unwrap returns the wrapped error.
func (e *RecordError) Unwrap() error {
	return e.Err
}

// IOError wraps an infrastructure error as ErrIOFailure with record context.
func IOError(op, slug string, version int, err error) error {
	return NewRecordError(op, slug, version, fmt.Errorf("%w: %w", ErrIOFailure, err))
}

// CorruptError reports a record that failed integrity checks.
func CorruptError(op, slug string, version int, detail string) error {
	return NewRecordError(op, slug, version, fmt.Errorf("%w: %s", ErrCorruptRecord, detail))
}

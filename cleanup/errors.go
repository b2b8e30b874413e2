package cleanup

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidThreshold is returned for a negative size or neighbor threshold.
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrAllFeaturesRemoved is fatal: thresholding would eliminate every feature.
	// Nothing is mutated when it is returned.
	ErrAllFeaturesRemoved = errors.New("all features would be removed")

	ErrMissingRequiredArray = errors.New("missing required array")
	ErrTupleCountMismatch   = errors.New("tuple count mismatch")
	ErrPhaseUnavailable     = errors.New("phase number unavailable")

	// ErrNotCellArray is returned when an ignored array lies outside the attribute matrix
	// holding the feature ids.
	ErrNotCellArray = errors.New("not a cell array of the feature ids")

	// ErrCancelled is returned when the context is cancelled mid-operation.  The flood-fill
	// engines may leave a partially processed pass behind.
	ErrCancelled = errors.New("operation cancelled")
)

// ValidationError is a failure detected before any mutation.
type ValidationError struct {
	Filter string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filter, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func validationErr(filter string, sentinel error, format string, args ...interface{}) error {
	return &ValidationError{Filter: filter, Err: fmt.Errorf("%w: "+format, append([]interface{}{sentinel}, args...)...)}
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}

// isDone is a cheap non-blocking check of ctx suitable for inner loops.
func isDone(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

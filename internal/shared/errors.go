package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the operation targeted a nonexistent id.
	ErrNotFound = errors.New("not found")
	// ErrConstraint indicates a unique-key collision or an empty required field.
	ErrConstraint = errors.New("constraint violation")
	// ErrValidation indicates malformed input, such as a non-numeric stock or price.
	ErrValidation = errors.New("validation failed")
	// ErrConsistency indicates the audit append failed after the primary mutation.
	ErrConsistency = errors.New("audit consistency failure")
)

// Constraintf wraps ErrConstraint with a formatted detail.
func Constraintf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConstraint, fmt.Sprintf(format, args...))
}

// Validationf wraps ErrValidation with a formatted detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Consistency marks err as a failed audit append. Callers must not swallow it.
func Consistency(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConsistency, err)
}

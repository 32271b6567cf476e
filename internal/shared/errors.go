package shared

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Services classify at the transaction boundary,
// roll back, and re-raise one of these; handlers translate to HTTP.
var (
	// ErrValidation indicates malformed input; no mutation was attempted.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced id is absent.
	ErrNotFound = errors.New("not found")
	// ErrDependency indicates an external collaborator failed; the
	// surrounding transaction was rolled back wholesale.
	ErrDependency = errors.New("dependency failure")
	// ErrConflict indicates a duplicate submission was rejected.
	ErrConflict = errors.New("conflict")
)

// IntegrityError carries the violating field for unique-constraint errors.
type IntegrityError struct {
	Field   string
	Message string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on %s: %s", e.Field, e.Message)
}

// Validationf wraps ErrValidation with a caller-visible reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// NotFoundf wraps ErrNotFound with the missing entity description.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Dependencyf wraps ErrDependency with the failing collaborator.
func Dependencyf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrDependency}, args...)...)
}

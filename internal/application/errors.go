package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrNoEligibleCategories is returned when a group's preferences and
	// state leave no category to schedule from. Fatal for the invocation;
	// never retried automatically.
	ErrNoEligibleCategories = errors.New("application: no eligible categories")
	// ErrIceBreakerActive is returned when a regeneration is requested for
	// a group still inside its onboarding period.
	ErrIceBreakerActive = errors.New("application: ice-breaker period still active")
)

// ValidationError captures field level validation issues that callers can
// surface to operators.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

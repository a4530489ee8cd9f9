package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")

	// ErrDuplicate is returned when an insert violates a uniqueness rule,
	// e.g. two general slots on the same (group, date).
	ErrDuplicate = errors.New("persistence: duplicate record")

	// ErrForeignKeyViolation is returned when a record references a group,
	// prompt, or deck that does not exist.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")

	// ErrConstraintViolation is returned for any other integrity failure,
	// including writes with missing required fields.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)

package registry

import "errors"

var (
	// ErrNotFound is returned when a patient or visit does not exist or is
	// not owned by the requesting user. Rows belonging to other users are
	// indistinguishable from absent rows.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("invalid input")
)

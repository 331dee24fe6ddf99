package repository

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would violate a unique key
	// (email, or a provider id slot).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput is returned for writes the store refuses outright.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedProvider is returned for provider names without an id slot.
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

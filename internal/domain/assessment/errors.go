package assessment

import "errors"

var (
	// ErrValidation marks missing or malformed caller input. Nothing has been written.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyInput is returned when a batch has no records to store.
	ErrEmptyInput = errors.New("no records to store")

	// ErrDuplicateIdentifier means another session already claimed the
	// assessment identifier. The pipeline does not retry with a new one.
	ErrDuplicateIdentifier = errors.New("assessment identifier already in use")

	// ErrDuplicateSession means a result blob already exists for the session.
	ErrDuplicateSession = errors.New("session already exists")

	// ErrNotFound is returned when no active record matches.
	ErrNotFound = errors.New("record not found")

	// ErrStorage wraps any other persistence failure.
	ErrStorage = errors.New("storage failure")
)

// IsValidation reports whether err should be surfaced as a client error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrEmptyInput)
}

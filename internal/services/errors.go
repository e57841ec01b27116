package services

import "errors"

// Error taxonomy surfaced to the HTTP layer.
var (
	// ErrValidation marks malformed or out-of-range input, detected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a duplicate unique key, such as an email already in use.
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks a missing user, activity or picture.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized marks a missing, invalid or expired credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrIntegrityFault marks stored data that breaks an invariant of the write path.
	ErrIntegrityFault = errors.New("integrity fault")
)

// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (duplicate document id, email, name).
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller lacks permission (sigilo or profile).
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrImmutableField indicates an update tried to change a field fixed at creation.
	ErrImmutableField = errors.New("immutable field")

	// ErrRevoked indicates an operation that a revoked document no longer accepts.
	ErrRevoked = errors.New("document revoked")

	// ErrStoreClosed indicates a store was used before Open succeeded.
	ErrStoreClosed = errors.New("store not open")

	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation")
)

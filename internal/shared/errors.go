package shared

import "errors"

var (
	// ErrValidation indicates malformed caller input rejected before any work.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDependency indicates the record store could not serve the request.
	ErrDependency = errors.New("dependency unavailable")
	// ErrDuplicate indicates a uniqueness constraint was violated.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrUnauthorized indicates a missing or unknown credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Package apperrors defines the domain error kinds shared by the service
// and HTTP layers. Errors are wrapped with fmt.Errorf("...: %w", kind) and
// matched with errors.Is, so the routing layer can map each kind to a
// status code without inspecting message text.
package apperrors

import "errors"

var (
	// ErrValidation marks a request rejected for bad shape or content.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a reference to an entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermission marks an operation the caller's role does not allow.
	ErrPermission = errors.New("permission denied")

	// ErrConflict marks a uniqueness violation, such as a duplicate email.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized marks a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")
)

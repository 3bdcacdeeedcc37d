package domain

import (
	"fmt"
	"strings"
)

// Error types for consistent error handling across the webhook service.

// ErrMalformedPayload indicates the inbound body is not a JSON object.
type ErrMalformedPayload struct {
	Reason string
}

func (e *ErrMalformedPayload) Error() string {
	return fmt.Sprintf("malformed payload: %s", e.Reason)
}

// ErrValidation indicates required canonical fields could not be resolved.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrPersistence indicates the row store rejected or failed an operation.
// Message carries the provider's own error text verbatim.
type ErrPersistence struct {
	Backend string
	Status  int
	Message string
	Err     error
}

func (e *ErrPersistence) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("persistence error [%s] status %d: %s", e.Backend, e.Status, e.Message)
	}
	return fmt.Sprintf("persistence error [%s]: %s", e.Backend, e.Message)
}

func (e *ErrPersistence) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying the same operation could succeed.
// Client-side rejections (4xx, constraint violations) are permanent.
func (e *ErrPersistence) Transient() bool {
	return e.Status == 0 || e.Status >= 500
}

// ErrConfiguration indicates required configuration is missing or
// unusable at startup.
type ErrConfiguration struct {
	Missing []string
	Invalid []string
}

func (e *ErrConfiguration) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required configuration: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid configuration: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

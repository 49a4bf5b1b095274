package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation.
var (
	ErrMissingOwner = errors.New("owner is required")
	ErrMissingName  = errors.New("name is required")
	ErrEmptyBody    = errors.New("request body is empty")
	ErrBadFraming   = errors.New("body is not newline-delimited JSON or a single JSON value")
)

// Sentinel errors for entity lookups and credential checks.
var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrBadCredential  = errors.New("invalid api key")
	ErrTenantRevoked  = errors.New("tenant revoked")
)

// ErrDuplicateTenant indicates an (owner, name) collision (maps to HTTP 409).
var ErrDuplicateTenant = errors.New("tenant with this owner and name already exists")

// ErrRateLimited indicates an admission or verify-failure limit was hit.
var ErrRateLimited = errors.New("rate limited")

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}

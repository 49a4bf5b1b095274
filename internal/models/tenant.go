package models

import (
	"fmt"
	"time"
)

// Tenant statuses.
const (
	TenantInactive = "inactive"
	TenantActive   = "active"
	TenantError    = "error"
	TenantRevoked  = "revoked"
)

// Tenant is one authenticated log source. The plaintext API key exists only
// in the creation response; at rest the row holds a KDF digest and a short
// display prefix.
type Tenant struct {
	ID            string     `json:"tenant_id"`
	Owner         string     `json:"owner"`
	Name          string     `json:"name"`
	Platform      string     `json:"platform"`
	KeyHash       string     `json:"-"`
	KeyPrefix     string     `json:"api_key_prefix"`
	Status        string     `json:"status"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`
	TotalReceived int64      `json:"total_received"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CreateTenantRequest is the body of POST /connections.
type CreateTenantRequest struct {
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
}

// Validate checks required fields and length limits.
func (r CreateTenantRequest) Validate() error {
	if r.Owner == "" {
		return ErrMissingOwner
	}
	if r.Name == "" {
		return ErrMissingName
	}
	if len(r.Name) > 255 {
		return ErrFieldTooLong("name", 255)
	}
	if len(r.Platform) > 64 {
		return ErrFieldTooLong("platform", 64)
	}
	return nil
}

// CreatedTenant is the one-time creation response carrying the plaintext key.
type CreatedTenant struct {
	Tenant
	PlaintextKey string `json:"plaintext_key"`
}

// String implements fmt.Stringer without exposing the plaintext key.
func (t CreatedTenant) String() string {
	return fmt.Sprintf("tenant %s (%s)", t.ID, t.KeyPrefix)
}

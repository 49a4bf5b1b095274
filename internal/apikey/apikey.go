// Package apikey implements the tenant credential store: opaque key issuance,
// KDF verification, and revocation. Plaintext keys exist only in the issue
// response; at rest only an argon2id digest and a display prefix are kept.
package apikey

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/loglens/loglens/internal/config"
	"github.com/loglens/loglens/internal/models"
)

// keyPrefix is the fixed token prepended to every issued key.
const keyPrefix = "llk_"

// keyEntropyBytes is the random key material size (256 bits).
const keyEntropyBytes = 32

// displayPrefixLen is how many characters of the full key are stored for display.
const displayPrefixLen = 8

// credentialCacheSize bounds the in-process credential LRU.
const credentialCacheSize = 4096

// CredentialStore is the persistence interface the Service depends on.
type CredentialStore interface {
	InsertTenant(ctx context.Context, t *models.Tenant) error
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	RevokeTenant(ctx context.Context, tenantID string) error
}

// cachedCred is the LRU value: just the fields Verify needs.
type cachedCred struct {
	keyHash string
	status  string
}

// Service issues and verifies tenant API keys.
type Service struct {
	store CredentialStore
	cache *lru.Cache[string, cachedCred]
	guard *FailureGuard
	kdf   config.KDF
	log   *logrus.Logger
}

// NewService creates a credential service. The guard limits the per-tenant
// verify-failure rate; pass nil to disable.
func NewService(store CredentialStore, guard *FailureGuard, kdf config.KDF, log *logrus.Logger) (*Service, error) {
	cache, err := lru.New[string, cachedCred](credentialCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating credential cache: %w", err)
	}

	return &Service{
		store: store,
		cache: cache,
		guard: guard,
		kdf:   kdf,
		log:   log,
	}, nil
}

// generateKey returns a fresh plaintext key and its display prefix.
func generateKey() (string, string, error) {
	raw := make([]byte, keyEntropyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generating key material: %w", err)
	}

	key := keyPrefix + base64.RawURLEncoding.EncodeToString(raw)
	Wipe(raw)

	return key, key[:displayPrefixLen], nil
}

// Issue creates a tenant with a fresh key. The returned CreatedTenant carries
// the plaintext exactly once; the caller must not retain it after the response
// is flushed. Returns models.ErrDuplicateTenant on (owner, name) collision.
func (s *Service) Issue(ctx context.Context, req models.CreateTenantRequest, tenantID string) (*models.CreatedTenant, error) {
	key, prefix, err := generateKey()
	if err != nil {
		return nil, err
	}

	keyBytes := []byte(key)
	hash, err := HashKey(keyBytes, s.kdf)
	Wipe(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("hashing api key: %w", err)
	}

	tenant := &models.Tenant{
		ID:        tenantID,
		Owner:     req.Owner,
		Name:      req.Name,
		Platform:  req.Platform,
		KeyHash:   hash,
		KeyPrefix: prefix,
		Status:    models.TenantInactive,
	}

	if err := s.store.InsertTenant(ctx, tenant); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"tenant_id":  tenantID,
		"key_prefix": prefix,
	}).Info("api key issued")

	return &models.CreatedTenant{Tenant: *tenant, PlaintextKey: key}, nil
}

// Verify checks a presented key against the tenant's stored digest.
// Returns models.ErrTenantNotFound for unknown tenants, models.ErrRateLimited
// when the per-tenant verify-failure rate is exceeded, models.ErrBadCredential
// on mismatch, and models.ErrTenantRevoked for revoked tenants.
func (s *Service) Verify(ctx context.Context, tenantID, presented string) error {
	if s.guard != nil && s.guard.Blocked(tenantID) {
		return models.ErrRateLimited
	}

	cred, err := s.credential(ctx, tenantID)
	if err != nil {
		return err
	}

	if cred.status == models.TenantRevoked {
		return models.ErrTenantRevoked
	}

	ok, err := VerifyKey([]byte(presented), cred.keyHash)
	if err != nil {
		return fmt.Errorf("verifying api key: %w", err)
	}

	if !ok {
		if s.guard != nil {
			s.guard.RecordFailure(tenantID)
		}
		return models.ErrBadCredential
	}

	if s.guard != nil {
		s.guard.Reset(tenantID)
	}

	return nil
}

// credential returns the cached digest for a tenant, falling back to the store.
func (s *Service) credential(ctx context.Context, tenantID string) (cachedCred, error) {
	if cred, ok := s.cache.Get(tenantID); ok {
		return cred, nil
	}

	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return cachedCred{}, err
	}

	cred := cachedCred{keyHash: tenant.KeyHash, status: tenant.Status}
	s.cache.Add(tenantID, cred)

	return cred, nil
}

// Revoke marks the tenant's key unusable and drops it from the cache.
func (s *Service) Revoke(ctx context.Context, tenantID string) error {
	if err := s.store.RevokeTenant(ctx, tenantID); err != nil {
		return err
	}

	s.cache.Remove(tenantID)
	s.log.WithField("tenant_id", tenantID).Info("api key revoked")

	return nil
}

// Invalidate drops a tenant from the credential cache. Called when tenant
// status changes outside Revoke (e.g. first successful ingest).
func (s *Service) Invalidate(tenantID string) {
	s.cache.Remove(tenantID)
}

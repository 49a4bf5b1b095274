package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrCacheMiss is returned when no cached entry exists for the key.
var ErrCacheMiss = errors.New("analytics cache miss")

// CacheStore persists computed analytics payloads keyed by
// (tenant, type, scope). Writers upsert atomically; readers treat any
// failure as a miss.
type CacheStore struct {
	Base
}

// NewCacheStore creates a CacheStore with the given shared base.
func NewCacheStore(base Base) *CacheStore {
	return &CacheStore{Base: base}
}

// Get returns the cached payload and its computation time. Returns
// ErrCacheMiss when no entry exists.
func (s *CacheStore) Get(ctx context.Context, tenantID, typ, scope string) ([]byte, time.Time, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var (
		payload    []byte
		computedAt time.Time
	)

	err := s.Pool.QueryRow(ctx,
		`SELECT payload, computed_at FROM analytics_cache
			WHERE tenant_id = $1 AND type = $2 AND scope_id = $3`,
		tenantID, typ, scope).Scan(&payload, &computedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, time.Time{}, ErrCacheMiss
		}

		return nil, time.Time{}, fmt.Errorf("reading analytics cache: %w", err)
	}

	return payload, computedAt, nil
}

// Put stores a payload, replacing any previous entry for the key.
func (s *CacheStore) Put(ctx context.Context, tenantID, typ, scope string, payload []byte, computedAt time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.Pool.Exec(ctx,
		`INSERT INTO analytics_cache (tenant_id, type, scope_id, payload, computed_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (tenant_id, type, scope_id)
			DO UPDATE SET payload = EXCLUDED.payload, computed_at = EXCLUDED.computed_at`,
		tenantID, typ, scope, payload, computedAt)
	if err != nil {
		return fmt.Errorf("writing analytics cache: %w", err)
	}

	return nil
}

// Invalidate drops every cached entry for a tenant.
func (s *CacheStore) Invalidate(ctx context.Context, tenantID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := s.Pool.Exec(ctx,
		`DELETE FROM analytics_cache WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("invalidating analytics cache: %w", err)
	}

	return nil
}

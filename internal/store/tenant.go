package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/loglens/loglens/internal/models"
)

const tenantColumns = `tenant_id, owner, name, platform, key_hash, key_prefix,
	status, last_seen_at, total_received, created_at`

// TenantStore handles tenant rows: creation, credential lookup, status and
// counter updates, revocation.
type TenantStore struct {
	Base
}

// NewTenantStore creates a new TenantStore.
func NewTenantStore(base Base) *TenantStore {
	return &TenantStore{Base: base}
}

// InsertTenant persists a new tenant row. Returns models.ErrDuplicateTenant
// when (owner, name) already exists.
func (s *TenantStore) InsertTenant(ctx context.Context, t *models.Tenant) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO tenants (tenant_id, owner, name, platform, key_hash, key_prefix, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := s.Pool.QueryRow(ctx, query,
		t.ID, t.Owner, t.Name, t.Platform, t.KeyHash, t.KeyPrefix, t.Status,
	).Scan(&t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrDuplicateTenant
		}

		return fmt.Errorf("inserting tenant: %w", err)
	}

	return nil
}

// GetTenant fetches one tenant by ID. Returns models.ErrTenantNotFound when
// no row exists.
func (s *TenantStore) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE tenant_id = $1`, tenantID)

	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrTenantNotFound
		}

		return nil, fmt.Errorf("fetching tenant: %w", err)
	}

	return t, nil
}

// ListTenants returns all tenants for an owner, newest first.
func (s *TenantStore) ListTenants(ctx context.Context, owner string) ([]*models.Tenant, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE owner = $1 ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var out []*models.Tenant

	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tenant row: %w", err)
		}

		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tenant rows: %w", err)
	}

	return out, nil
}

// RevokeTenant marks a tenant revoked. Revocation is terminal: later status
// updates never overwrite it. Returns models.ErrTenantNotFound when no row
// exists.
func (s *TenantStore) RevokeTenant(ctx context.Context, tenantID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx,
		`UPDATE tenants SET status = $1 WHERE tenant_id = $2`, models.TenantRevoked, tenantID)
	if err != nil {
		return fmt.Errorf("revoking tenant: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrTenantNotFound
	}

	return nil
}

// RecordIngest adds the batch's stored count to the tenant's running total,
// stamps last_seen_at, and flips status per the batch outcome. status is
// "active" or "error"; revoked tenants are never touched.
func (s *TenantStore) RecordIngest(ctx context.Context, tenantID string, stored int, status string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx,
		`UPDATE tenants
			SET total_received = total_received + $1, last_seen_at = now(), status = $2
			WHERE tenant_id = $3 AND status <> $4`,
		stored, status, tenantID, models.TenantRevoked)
	if err != nil {
		return fmt.Errorf("recording ingest for tenant: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrTenantNotFound
	}

	return nil
}

// DeleteTenant removes a tenant and, via cascade, its records and cached
// analytics. Returns models.ErrTenantNotFound when no row exists.
func (s *TenantStore) DeleteTenant(ctx context.Context, tenantID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx, `DELETE FROM tenants WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("deleting tenant: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrTenantNotFound
	}

	return nil
}

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant

	err := row.Scan(
		&t.ID, &t.Owner, &t.Name, &t.Platform, &t.KeyHash, &t.KeyPrefix,
		&t.Status, &t.LastSeenAt, &t.TotalReceived, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

package api

import (
	"context"
	"encoding/json"

	"github.com/loglens/loglens/internal/models"
)

// Ingestor processes one authenticated request body for a tenant.
type Ingestor interface {
	Ingest(ctx context.Context, tenantID string, body []byte) (*models.IngestAck, error)
}

// Reporter computes or serves a cached analytics report.
type Reporter interface {
	Report(ctx context.Context, tenantID string, typ models.AnalyticsType, scope string, force bool) (json.RawMessage, error)
}

// Credentials issues and revokes tenant API keys.
type Credentials interface {
	Issue(ctx context.Context, req models.CreateTenantRequest, tenantID string) (*models.CreatedTenant, error)
	Verify(ctx context.Context, tenantID, presented string) error
	Revoke(ctx context.Context, tenantID string) error
}

// TenantDirectory reads tenant metadata used by the connections handler.
type TenantDirectory interface {
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	ListTenants(ctx context.Context, owner string) ([]*models.Tenant, error)
}

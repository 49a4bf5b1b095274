package api_test

import (
	"context"
	"encoding/json"

	"github.com/loglens/loglens/internal/models"
)

// mockIngestor implements api.Ingestor for testing.
type mockIngestor struct {
	ingestFn func(ctx context.Context, tenantID string, body []byte) (*models.IngestAck, error)
}

func (m *mockIngestor) Ingest(ctx context.Context, tenantID string, body []byte) (*models.IngestAck, error) {
	return m.ingestFn(ctx, tenantID, body)
}

// mockReporter implements api.Reporter for testing.
type mockReporter struct {
	reportFn func(ctx context.Context, tenantID string, typ models.AnalyticsType, scope string, force bool) (json.RawMessage, error)
}

func (m *mockReporter) Report(ctx context.Context, tenantID string, typ models.AnalyticsType, scope string, force bool) (json.RawMessage, error) {
	return m.reportFn(ctx, tenantID, typ, scope, force)
}

// mockCreds implements api.Credentials for testing.
type mockCreds struct {
	issueFn  func(ctx context.Context, req models.CreateTenantRequest, tenantID string) (*models.CreatedTenant, error)
	verifyFn func(ctx context.Context, tenantID, presented string) error
	revokeFn func(ctx context.Context, tenantID string) error
}

func (m *mockCreds) Issue(ctx context.Context, req models.CreateTenantRequest, tenantID string) (*models.CreatedTenant, error) {
	return m.issueFn(ctx, req, tenantID)
}

func (m *mockCreds) Verify(ctx context.Context, tenantID, presented string) error {
	if m.verifyFn == nil {
		return nil
	}
	return m.verifyFn(ctx, tenantID, presented)
}

func (m *mockCreds) Revoke(ctx context.Context, tenantID string) error {
	return m.revokeFn(ctx, tenantID)
}

// mockDirectory implements api.TenantDirectory for testing.
type mockDirectory struct {
	getFn  func(ctx context.Context, tenantID string) (*models.Tenant, error)
	listFn func(ctx context.Context, owner string) ([]*models.Tenant, error)
}

func (m *mockDirectory) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	return m.getFn(ctx, tenantID)
}

func (m *mockDirectory) ListTenants(ctx context.Context, owner string) ([]*models.Tenant, error) {
	return m.listFn(ctx, owner)
}

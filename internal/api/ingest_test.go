package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/loglens/loglens/internal/api"
	"github.com/loglens/loglens/internal/models"
)

func TestIngest_Valid(t *testing.T) {
	t.Parallel()

	var gotBody string
	pipeline := &mockIngestor{
		ingestFn: func(_ context.Context, tenantID string, body []byte) (*models.IngestAck, error) {
			gotBody = string(body)
			return &models.IngestAck{Received: 2, Stored: 2, TenantID: tenantID, At: time.Now().UTC()}, nil
		},
	}

	r := newTestRouter()
	h := api.NewIngestHandler(pipeline, &mockDirectory{}, testLogger())
	r.POST("/ingest", h.Ingest)

	body := `{"level":"info","message":"a"}` + "\n" + `{"level":"error","message":"b"}`
	w := doRequest(r, http.MethodPost, "/ingest", body)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var ack models.IngestAck
	if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if ack.Received != 2 || ack.Stored != 2 {
		t.Errorf("ack = %+v, want received=2 stored=2", ack)
	}
	if ack.TenantID != testTenantID {
		t.Errorf("tenant_id = %q, want %q", ack.TenantID, testTenantID)
	}
	if gotBody != body {
		t.Error("pipeline did not receive the raw body")
	}
}

func TestIngest_EmptyBody(t *testing.T) {
	t.Parallel()

	pipeline := &mockIngestor{
		ingestFn: func(context.Context, string, []byte) (*models.IngestAck, error) {
			return nil, models.ErrEmptyBody
		},
	}

	r := newTestRouter()
	h := api.NewIngestHandler(pipeline, &mockDirectory{}, testLogger())
	r.POST("/ingest", h.Ingest)

	w := doRequest(r, http.MethodPost, "/ingest", " ")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestIngest_RateLimited(t *testing.T) {
	t.Parallel()

	pipeline := &mockIngestor{
		ingestFn: func(context.Context, string, []byte) (*models.IngestAck, error) {
			return nil, models.ErrRateLimited
		},
	}

	r := newTestRouter()
	h := api.NewIngestHandler(pipeline, &mockDirectory{}, testLogger())
	r.POST("/ingest", h.Ingest)

	w := doRequest(r, http.MethodPost, "/ingest", `{"message":"x"}`)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After header")
	}
}

func TestTestConnection(t *testing.T) {
	t.Parallel()

	dir := &mockDirectory{
		getFn: func(_ context.Context, tenantID string) (*models.Tenant, error) {
			return &models.Tenant{ID: tenantID, Platform: "docker", Status: models.TenantActive}, nil
		},
	}

	r := newTestRouter()
	h := api.NewIngestHandler(&mockIngestor{}, dir, testLogger())
	r.GET("/ingest/test", h.TestConnection)

	w := doRequest(r, http.MethodGet, "/ingest/test", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		OK       bool   `json:"ok"`
		Platform string `json:"platform"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.OK || resp.Platform != "docker" || resp.Status != models.TenantActive {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestTestConnection_UnknownTenant(t *testing.T) {
	t.Parallel()

	dir := &mockDirectory{
		getFn: func(context.Context, string) (*models.Tenant, error) {
			return nil, models.ErrTenantNotFound
		},
	}

	r := newTestRouter()
	h := api.NewIngestHandler(&mockIngestor{}, dir, testLogger())
	r.GET("/ingest/test", h.TestConnection)

	w := doRequest(r, http.MethodGet, "/ingest/test", "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

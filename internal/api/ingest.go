// Package api provides HTTP handlers for the loglens server.
package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// IngestHandler serves the authenticated write path.
type IngestHandler struct {
	pipeline Ingestor
	tenants  TenantDirectory
	log      *logrus.Logger
}

// NewIngestHandler creates an IngestHandler.
func NewIngestHandler(pipeline Ingestor, tenants TenantDirectory, log *logrus.Logger) *IngestHandler {
	return &IngestHandler{pipeline: pipeline, tenants: tenants, log: log}
}

// Ingest handles POST /ingest. The body is NDJSON, a JSON array, or a single
// JSON object; the response acknowledges how many units arrived and how many
// canonical records were stored.
func (h *IngestHandler) Ingest(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondDomainError(c, err)

		return
	}

	ack, err := h.pipeline.Ingest(c.Request.Context(), tenantID, body)
	if err != nil {
		h.log.WithError(err).WithField("tenant_id", tenantID).Warn("ingest rejected")
		respondDomainError(c, err)

		return
	}

	c.JSON(http.StatusOK, ack)
}

// testConnectionResponse is the payload of GET /ingest/test.
type testConnectionResponse struct {
	OK       bool   `json:"ok"`
	Platform string `json:"platform"`
	Status   string `json:"status"`
}

// TestConnection handles GET /ingest/test. A successful response proves the
// credential works without writing any records.
func (h *IngestHandler) TestConnection(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	tenant, err := h.tenants.GetTenant(c.Request.Context(), tenantID)
	if err != nil {
		respondDomainError(c, err)

		return
	}

	c.JSON(http.StatusOK, testConnectionResponse{
		OK:       true,
		Platform: tenant.Platform,
		Status:   tenant.Status,
	})
}

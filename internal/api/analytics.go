package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/loglens/loglens/internal/analytics"
	"github.com/loglens/loglens/internal/models"
)

// AnalyticsHandler serves cached or freshly computed reports.
type AnalyticsHandler struct {
	engine Reporter
	log    *logrus.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(engine Reporter, log *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine, log: log}
}

// Get handles GET /analytics/:type. Query parameters: scope_id narrows the
// report to one ingest batch, force bypasses the cache read.
func (h *AnalyticsHandler) Get(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	typ := c.Param("type")
	if !models.ValidAnalyticsType(typ) {
		respondError(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown analytics type")

		return
	}

	scope := c.Query("scope_id")
	force := c.Query("force") == "true" || c.Query("force") == "1"

	payload, err := h.engine.Report(c.Request.Context(), tenantID, models.AnalyticsType(typ), scope, force)
	if err != nil {
		if errors.Is(err, analytics.ErrUnknownType) {
			respondError(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown analytics type")

			return
		}

		h.log.WithError(err).WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"type":      typ,
		}).Error("analytics report failed")
		respondDomainError(c, err)

		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/loglens/loglens/internal/middleware"
	"github.com/loglens/loglens/internal/models"
)

// ConnectionHandler manages tenant credentials. The plaintext key appears in
// exactly one response: the creation reply.
type ConnectionHandler struct {
	creds   Credentials
	tenants TenantDirectory
	log     *logrus.Logger
}

// NewConnectionHandler creates a ConnectionHandler.
func NewConnectionHandler(creds Credentials, tenants TenantDirectory, log *logrus.Logger) *ConnectionHandler {
	return &ConnectionHandler{creds: creds, tenants: tenants, log: log}
}

// Create handles POST /connections. Returns 201 with the one-time plaintext key.
func (h *ConnectionHandler) Create(c *gin.Context) {
	var req models.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())

		return
	}

	created, err := h.creds.Issue(c.Request.Context(), req, uuid.New().String())
	if err != nil {
		respondDomainError(c, err)

		return
	}

	h.log.WithFields(logrus.Fields{
		"tenant_id": created.ID,
		"owner":     created.Owner,
	}).Info("connection created")

	c.JSON(http.StatusCreated, created)
}

// List handles GET /connections. Requires an owner filter; responses never
// include key material beyond the display prefix.
func (h *ConnectionHandler) List(c *gin.Context) {
	owner := c.Query("owner")
	if owner == "" {
		respondError(c, http.StatusBadRequest, ErrCodeBadRequest, "owner query parameter is required")

		return
	}

	tenants, err := h.tenants.ListTenants(c.Request.Context(), owner)
	if err != nil {
		respondDomainError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"connections": tenants, "count": len(tenants)})
}

// Revoke handles DELETE /connections/:id. The caller must present the
// tenant's own key; revocation is terminal.
func (h *ConnectionHandler) Revoke(c *gin.Context) {
	tenantID := c.Param("id")
	if _, err := uuid.Parse(tenantID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid tenant id")

		return
	}

	apiKey := middleware.ExtractBearerToken(c)
	if apiKey == "" {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing or invalid authorization header")

		return
	}

	if err := h.creds.Verify(c.Request.Context(), tenantID, apiKey); err != nil {
		respondDomainError(c, err)

		return
	}

	if err := h.creds.Revoke(c.Request.Context(), tenantID); err != nil {
		respondDomainError(c, err)

		return
	}

	c.Status(http.StatusNoContent)
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/loglens/loglens/internal/models"
)

// authTimingFloor is the minimum response time for rejected auth so response
// latency cannot distinguish unknown tenants from wrong keys.
const authTimingFloor = 50 * time.Millisecond

// Context keys set by Auth.
const (
	// TenantIDKey is the gin context key for the authenticated tenant.
	TenantIDKey = "tenant_id"

	// TenantIDHeader carries the claimed tenant on ingest requests.
	TenantIDHeader = "X-Tenant-ID"
)

// KeyVerifier checks a presented API key against a tenant's stored digest.
type KeyVerifier interface {
	Verify(ctx context.Context, tenantID, presented string) error
}

// truncateKey returns at most the first 4 characters of key followed by "...".
func truncateKey(key string) string {
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return key
}

// enforceTimingFloor sleeps if needed so the response takes at least authTimingFloor.
func enforceTimingFloor(start time.Time) {
	if elapsed := time.Since(start); elapsed < authTimingFloor {
		time.Sleep(authTimingFloor - elapsed)
	}
}

// Auth returns middleware that authenticates requests via Bearer key plus the
// X-Tenant-ID header. Missing or malformed credentials get 401; a key that
// fails verification gets 403. The plaintext key is never logged.
func Auth(verifier KeyVerifier, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			status := c.Writer.Status()
			if status == http.StatusUnauthorized || status == http.StatusForbidden {
				enforceTimingFloor(start)
			}
		}()

		apiKey := ExtractBearerToken(c)
		if apiKey == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization header")
			return
		}

		tenantID := c.GetHeader(TenantIDHeader)
		if tenantID == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", "missing tenant header")
			return
		}

		err := verifier.Verify(c.Request.Context(), tenantID, apiKey)
		if err != nil {
			logAuthFailure(log, c, tenantID, apiKey)

			switch {
			case errors.Is(err, models.ErrRateLimited):
				respondError(c, http.StatusTooManyRequests, "rate_limited", "too many failed attempts")
			case errors.Is(err, models.ErrTenantRevoked),
				errors.Is(err, models.ErrBadCredential),
				errors.Is(err, models.ErrTenantNotFound):
				// One answer for every rejection; nothing to enumerate tenants with.
				respondError(c, http.StatusForbidden, "forbidden", "invalid credentials")
			default:
				respondError(c, http.StatusInternalServerError, "internal", "authentication unavailable")
			}

			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Next()
	}
}

// ExtractBearerToken extracts the API key from the Authorization header.
func ExtractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// logAuthFailure logs a failed authentication attempt.
func logAuthFailure(log *logrus.Logger, c *gin.Context, tenantID, apiKey string) {
	log.WithFields(logrus.Fields{
		"client_ip":  c.ClientIP(),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"tenant_id":  tenantID,
		"request_id": c.GetString("request_id"),
		"key_prefix": truncateKey(apiKey),
	}).Warn("authentication failed")
}

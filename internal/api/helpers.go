package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/loglens/loglens/internal/middleware"
	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/ws"
)

// getTenantID extracts the authenticated tenant ID from the Gin context
// and validates it is a proper UUID.
func getTenantID(c *gin.Context) string {
	tid := c.GetString(middleware.TenantIDKey)

	if _, err := uuid.Parse(tid); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid tenant id")

		return ""
	}

	return tid
}

// wsHandler upgrades GET /ws/:tenant_id to a WebSocket subscription. Browsers
// cannot set headers on WebSocket requests, so the key may arrive as a Bearer
// header or an api_key query parameter.
func wsHandler(appCtx context.Context, log *logrus.Logger, hub *ws.Hub, corsOrigins []string, creds Credentials) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("tenant_id")
		if _, err := uuid.Parse(tenantID); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid tenant id")

			return
		}

		apiKey := middleware.ExtractBearerToken(c)
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}
		if apiKey == "" {
			respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")

			return
		}

		if err := creds.Verify(c.Request.Context(), tenantID, apiKey); err != nil {
			switch {
			case errors.Is(err, models.ErrRateLimited):
				respondError(c, http.StatusTooManyRequests, ErrCodeRateLimited, "too many failed attempts")
			case errors.Is(err, models.ErrTenantNotFound),
				errors.Is(err, models.ErrBadCredential),
				errors.Is(err, models.ErrTenantRevoked):
				// One answer for every rejection; nothing to enumerate
				// tenants with.
				respondError(c, http.StatusForbidden, ErrCodeForbidden, "invalid credentials")
			default:
				log.WithError(err).Error("websocket credential check failed")
				respondError(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
			}

			return
		}

		// CORS origins double as WebSocket origin patterns.
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns:       corsOrigins,
			CompressionMode:      websocket.CompressionContextTakeover,
			CompressionThreshold: 128,
		})
		if err != nil {
			log.WithError(err).Error("websocket accept failed")

			return
		}

		client := ws.NewClient(hub, conn, tenantID, creds, apiKey)
		client.SendConnectionInfo()
		hub.Register(client)

		// Cancel the connection when either the server shuts down or the
		// request ends.
		wsCtx, wsCancel := context.WithCancel(appCtx)
		go func() {
			select {
			case <-c.Request.Context().Done():
				wsCancel()
			case <-wsCtx.Done():
			}
		}()

		go client.WritePump(wsCtx)
		client.ReadPump(wsCtx)
		wsCancel()
	}
}

func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}
		if rid, exists := c.Get(middleware.RequestIDKey); exists {
			fields["request_id"] = rid
		}
		if tid := c.GetString(middleware.TenantIDKey); tid != "" {
			fields["tenant_id"] = tid
		}
		log.WithFields(fields).Info("request")
	}
}

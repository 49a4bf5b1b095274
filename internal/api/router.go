package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/loglens/loglens/internal/dbpool"
	"github.com/loglens/loglens/internal/middleware"
	"github.com/loglens/loglens/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log          *logrus.Logger
	Pool         *dbpool.Pool
	Hub          *ws.Hub
	Pipeline     Ingestor
	Engine       Reporter
	Creds        Credentials
	Tenants      TenantDirectory
	CORSOrigins  []string
	Version      string
	MaxBodyBytes int64
}

// Per-IP limits in front of authentication.
const (
	rateLimit = 100 // requests per second per IP
	rateBurst = 200 // token bucket burst size
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(deps.MaxBodyBytes))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", middleware.TenantIDHeader},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware())

	// Operational endpoints are unversioned and unauthenticated.
	health := NewHealthHandler(deps.Pool, deps.Hub, deps.Log, deps.Version)
	r.GET("/health", health.Liveness)
	r.GET("/ready", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	ingest := NewIngestHandler(deps.Pipeline, deps.Tenants, log)
	connections := NewConnectionHandler(deps.Creds, deps.Tenants, log)
	analytics := NewAnalyticsHandler(deps.Engine, log)

	// Connection management bootstraps credentials, so it cannot sit behind
	// tenant auth. Revocation proves possession of the key inside the handler.
	api.POST("/connections", connections.Create)
	api.GET("/connections", connections.List)
	api.DELETE("/connections/:id", connections.Revoke)

	// WebSocket subscriptions authenticate in the handler (browsers cannot
	// set headers on upgrade requests).
	api.GET("/ws/:tenant_id", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins, deps.Creds))

	// Everything else requires Bearer key plus X-Tenant-ID.
	authed := api.Group("", middleware.Auth(deps.Creds, log))
	authed.POST("/ingest", ingest.Ingest)
	authed.GET("/ingest/test", ingest.TestConnection)
	authed.GET("/analytics/:type", analytics.Get)
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}

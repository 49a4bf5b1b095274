// The loglens server: multi-tenant log ingestion, live fan-out, and analytics.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loglens/loglens/internal/analytics"
	"github.com/loglens/loglens/internal/api"
	"github.com/loglens/loglens/internal/apikey"
	"github.com/loglens/loglens/internal/config"
	"github.com/loglens/loglens/internal/db"
	"github.com/loglens/loglens/internal/db/migrations"
	"github.com/loglens/loglens/internal/dbpool"
	"github.com/loglens/loglens/internal/ingest"
	"github.com/loglens/loglens/internal/logparse"
	"github.com/loglens/loglens/internal/normalize"
	"github.com/loglens/loglens/internal/store"
	"github.com/loglens/loglens/internal/ws"
)

// version is set at build time via -ldflags.
var version = "dev"

const (
	shutdownTimeout   = 10 * time.Second
	retentionInterval = 1 * time.Hour
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return err
	}

	base := store.Base{Pool: pool, Log: log}
	tenantStore := store.NewTenantStore(base)
	recordStore := store.NewRecordStore(base)
	cacheStore := store.NewCacheStore(base)
	retention := store.NewRetentionStore(base, cfg.RetentionDays)

	guard := apikey.NewFailureGuard(ctx, log)
	creds, err := apikey.NewService(tenantStore, guard, cfg.KDF, log)
	if err != nil {
		return err
	}

	hub := ws.NewHub(log, cfg.FanoutBuffer, cfg.FanoutDropLimit)
	go hub.Run(ctx)

	bank := logparse.NewBank()
	detector := logparse.NewDecisionCache(ctx, bank)
	norm := normalize.New(cfg.MaxMessageBytes)
	admission := ingest.NewAdmission(ctx, cfg.PerTenantRate, cfg.PerTenantBurst)
	pipeline := ingest.NewPipeline(recordStore, tenantStore, detector, bank, norm, hub, admission, log)

	engine := analytics.NewEngine(recordStore, cacheStore, cfg.AnalyticsTTLSecs, cfg.AnalyticsWorkers, log)

	go retention.Run(ctx, retentionInterval)

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log:          log,
		Pool:         pool,
		Hub:          hub,
		Pipeline:     pipeline,
		Engine:       engine,
		Creds:        creds,
		Tenants:      tenantStore,
		CORSOrigins:  cfg.CORSOrigins,
		Version:      version,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Addr(),
			"version": version,
		}).Info("loglens listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.Shutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("shutdown complete")

	return nil
}

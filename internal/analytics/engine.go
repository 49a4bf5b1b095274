// Package analytics computes on-demand reports over a tenant's stored
// records: overview, error analysis, anomaly detection, performance
// extraction, pattern clustering, and synthesized insights. Results are
// cached with a TTL; concurrent requests for the same report share one
// computation.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/loglens/loglens/internal/metrics"
	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/store"
)

// computeTimeout bounds one report computation end to end.
const computeTimeout = 60 * time.Second

// ErrUnknownType is returned for analytics types the engine does not compute.
var ErrUnknownType = errors.New("unknown analytics type")

// RecordSource reads the record snapshot a report runs over.
type RecordSource interface {
	FetchWindow(ctx context.Context, tenantID string, since, until time.Time) ([]models.LogRecord, error)
	FetchBatch(ctx context.Context, tenantID string, ingestedAt time.Time) ([]models.LogRecord, error)
}

// ReportCache persists computed payloads between requests.
type ReportCache interface {
	Get(ctx context.Context, tenantID, typ, scope string) ([]byte, time.Time, error)
	Put(ctx context.Context, tenantID, typ, scope string, payload []byte, computedAt time.Time) error
}

// Engine dispatches report requests through the cache to the compute passes.
type Engine struct {
	source  RecordSource
	cache   ReportCache
	ttl     time.Duration
	flight  singleflight.Group
	workers chan struct{} // bounds concurrent CPU-heavy computes
	log     *logrus.Logger
}

// NewEngine creates an Engine. ttlSeconds is the cache lifetime; workers
// bounds how many reports compute at once.
func NewEngine(source RecordSource, cache ReportCache, ttlSeconds, workers int, log *logrus.Logger) *Engine {
	if workers <= 0 {
		workers = 4
	}

	return &Engine{
		source:  source,
		cache:   cache,
		ttl:     time.Duration(ttlSeconds) * time.Second,
		workers: make(chan struct{}, workers),
		log:     log,
	}
}

// Report returns the payload for one analytics type. scope narrows the
// snapshot to a single ingest batch (its ingested_at in RFC3339Nano); empty
// scope covers all of the tenant's records. force bypasses the cache read,
// never the write.
func (e *Engine) Report(ctx context.Context, tenantID string, typ models.AnalyticsType, scope string, force bool) (json.RawMessage, error) {
	if !models.ValidAnalyticsType(string(typ)) {
		return nil, ErrUnknownType
	}

	if !force {
		if payload, ok := e.cached(ctx, tenantID, typ, scope); ok {
			metrics.AnalyticsCacheHits.WithLabelValues("hit").Inc()
			return payload, nil
		}

		metrics.AnalyticsCacheHits.WithLabelValues("miss").Inc()
	}

	key := tenantID + "|" + string(typ) + "|" + scope

	payload, err, _ := e.flight.Do(key, func() (any, error) {
		return e.computeAndStore(ctx, tenantID, typ, scope)
	})
	if err != nil {
		return nil, err
	}

	return payload.(json.RawMessage), nil
}

// cached returns a fresh cache entry if one exists. Any read failure is a
// miss.
func (e *Engine) cached(ctx context.Context, tenantID string, typ models.AnalyticsType, scope string) (json.RawMessage, bool) {
	payload, computedAt, err := e.cache.Get(ctx, tenantID, string(typ), scope)
	if err != nil {
		if !errors.Is(err, store.ErrCacheMiss) {
			e.log.WithError(err).Warn("analytics cache read failed, treating as miss")
		}

		return nil, false
	}

	if time.Since(computedAt) >= e.ttl {
		return nil, false
	}

	return payload, true
}

// computeAndStore runs one report and writes it back. The cache is not
// touched when compute fails.
func (e *Engine) computeAndStore(ctx context.Context, tenantID string, typ models.AnalyticsType, scope string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, computeTimeout)
	defer cancel()

	select {
	case e.workers <- struct{}{}:
		defer func() { <-e.workers }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	records, err := e.snapshot(ctx, tenantID, scope)
	if err != nil {
		return nil, err
	}

	started := time.Now()

	report, err := e.compute(ctx, typ, records)
	if err != nil {
		return nil, err
	}

	metrics.AnalyticsComputeDuration.WithLabelValues(string(typ)).Observe(time.Since(started).Seconds())

	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s report: %w", typ, err)
	}

	if err := e.cache.Put(ctx, tenantID, string(typ), scope, payload, time.Now().UTC()); err != nil {
		// The report is still good; the next request recomputes.
		e.log.WithError(err).Warn("analytics cache write failed")
	}

	return json.RawMessage(payload), nil
}

// snapshot reads the records the report runs over. The snapshot is stable:
// records are immutable and the window closes at read time.
func (e *Engine) snapshot(ctx context.Context, tenantID, scope string) ([]models.LogRecord, error) {
	if scope != "" {
		ingestedAt, err := time.Parse(time.RFC3339Nano, scope)
		if err != nil {
			return nil, fmt.Errorf("parsing scope %q: %w", scope, err)
		}

		return e.source.FetchBatch(ctx, tenantID, ingestedAt)
	}

	return e.source.FetchWindow(ctx, tenantID, time.Time{}, time.Now().UTC())
}

// compute dispatches to the per-type pass.
func (e *Engine) compute(ctx context.Context, typ models.AnalyticsType, records []models.LogRecord) (any, error) {
	switch typ {
	case models.AnalyticsOverview:
		return computeOverview(ctx, records)
	case models.AnalyticsErrors:
		return computeErrorAnalysis(ctx, records)
	case models.AnalyticsAnomalies:
		return computeAnomalies(ctx, records)
	case models.AnalyticsPerformance:
		return computePerformance(ctx, records)
	case models.AnalyticsPatterns:
		return computePatterns(ctx, records)
	case models.AnalyticsInsights:
		return computeInsights(ctx, records)
	default:
		return nil, ErrUnknownType
	}
}

// Package ingest implements the write path: body framing, per-tenant
// admission, format resolution, parsing, normalization, transactional
// persistence, and post-commit fan-out.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loglens/loglens/internal/logparse"
	"github.com/loglens/loglens/internal/metrics"
	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/normalize"
)

// RecordWriter persists one ingest batch atomically.
type RecordWriter interface {
	InsertBatch(ctx context.Context, records []models.LogRecord) (int, error)
}

// TenantCounter records a completed ingest against the tenant row. The count
// is the number of records actually stored, not the number received.
type TenantCounter interface {
	RecordIngest(ctx context.Context, tenantID string, stored int, status string) error
}

// Broadcaster fans stored records out to live subscribers. Implementations
// must never block.
type Broadcaster interface {
	BroadcastRecord(tenantID string, rec models.LogRecord)
}

// Pipeline turns a raw request body into stored canonical records. Batches
// are all-or-nothing: a persistence failure stores zero records.
type Pipeline struct {
	records   RecordWriter
	tenants   TenantCounter
	detector  *logparse.DecisionCache
	bank      *logparse.Bank
	norm      *normalize.Normalizer
	hub       Broadcaster
	admission *Admission
	log       *logrus.Logger
}

// NewPipeline wires the ingest path. hub may be nil when fan-out is disabled.
func NewPipeline(
	records RecordWriter,
	tenants TenantCounter,
	detector *logparse.DecisionCache,
	bank *logparse.Bank,
	norm *normalize.Normalizer,
	hub Broadcaster,
	admission *Admission,
	log *logrus.Logger,
) *Pipeline {
	return &Pipeline{
		records:   records,
		tenants:   tenants,
		detector:  detector,
		bank:      bank,
		norm:      norm,
		hub:       hub,
		admission: admission,
		log:       log,
	}
}

// Ingest processes one authenticated request body for a tenant. Returns
// models.ErrEmptyBody, models.ErrBadFraming, or models.ErrRateLimited for
// client faults; any other error means nothing was stored.
func (p *Pipeline) Ingest(ctx context.Context, tenantID string, body []byte) (*models.IngestAck, error) {
	frame, err := DecodeBody(body)
	if err != nil {
		return nil, err
	}

	received := frame.Count()

	if p.admission != nil && !p.admission.Allow(tenantID, received) {
		return nil, models.ErrRateLimited
	}

	metrics.IngestBatchSize.Observe(float64(received))

	detection, parsedLines := p.parse(tenantID, frame)

	ingestedAt := time.Now().UTC()
	records := make([]models.LogRecord, 0, len(parsedLines))
	parseFailures := 0

	for i, parsed := range parsedLines {
		if parsed.ParseError {
			parseFailures++
			metrics.ParseErrors.Inc()
		}

		rec := p.norm.Normalize(parsed, string(detection.Format), ingestedAt)
		rec.TenantID = tenantID
		rec.Seq = i
		records = append(records, rec)
	}

	stored, err := p.records.InsertBatch(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("storing ingest batch: %w", err)
	}

	metrics.RecordsIngested.WithLabelValues(string(detection.Format)).Add(float64(stored))

	status := models.TenantActive
	if parseFailures == len(records) && len(records) > 0 {
		status = models.TenantError
	}

	if err := p.tenants.RecordIngest(ctx, tenantID, stored, status); err != nil {
		// The batch is already committed; counter drift is acceptable.
		p.log.WithError(err).WithField("tenant_id", tenantID).Warn("failed to update tenant counters")
	}

	p.broadcast(tenantID, records)

	p.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"format":    detection.Format,
		"received":  received,
		"stored":    stored,
		"failed":    parseFailures,
	}).Info("batch ingested")

	return &models.IngestAck{
		Received: received,
		Stored:   stored,
		TenantID: tenantID,
		At:       ingestedAt,
	}, nil
}

// parse resolves the tenant's format and runs every framed unit through the
// parser bank. Lines that fail to parse come back as error records, never
// dropped.
func (p *Pipeline) parse(tenantID string, frame Frame) (logparse.Detection, []models.ParsedLine) {
	if len(frame.Objects) > 0 {
		sample := make([]string, 0, len(frame.Objects))

		for _, obj := range frame.Objects {
			if b, err := json.Marshal(obj); err == nil {
				sample = append(sample, string(b))
			}
		}

		detection := p.detector.Resolve(tenantID, sample)

		parsed := make([]models.ParsedLine, 0, len(frame.Objects))
		for _, obj := range frame.Objects {
			parsed = append(parsed, p.bank.ParseObject(detection.Format, obj))
		}

		return detection, parsed
	}

	detection := p.detector.Resolve(tenantID, frame.Lines)

	parsed := make([]models.ParsedLine, 0, len(frame.Lines))

	for _, line := range frame.Lines {
		pl, ok := p.bank.ParseLine(detection.Format, line)
		if !ok {
			continue // blank after truncation handling, nothing to store
		}

		parsed = append(parsed, pl)
	}

	return detection, parsed
}

// broadcast fans stored records out post-commit. Fan-out failures never fail
// the ingest.
func (p *Pipeline) broadcast(tenantID string, records []models.LogRecord) {
	if p.hub == nil {
		return
	}

	for _, rec := range records {
		p.hub.BroadcastRecord(tenantID, rec)
	}
}

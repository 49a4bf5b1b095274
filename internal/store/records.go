package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/loglens/loglens/internal/models"
)

// maxInsertBatchSize limits the number of rows per INSERT statement to stay
// well under PostgreSQL's parameter limit (65535 params).
const maxInsertBatchSize = 500

const recordInsertColumns = 10

// RecordStore handles log record persistence and reads.
type RecordStore struct {
	Base
}

// NewRecordStore creates a RecordStore with the given shared base.
func NewRecordStore(base Base) *RecordStore {
	return &RecordStore{Base: base}
}

// InsertBatch persists one ingest batch in a single transaction. All records
// share ingestedAt; their Seq preserves submission order. The batch commits
// or rolls back as a unit. Returns the number of rows written.
func (s *RecordStore) InsertBatch(ctx context.Context, records []models.LogRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	// Marshal metadata before opening the transaction to minimize lock time.
	metaJSON := make([][]byte, len(records))
	for i, rec := range records {
		meta := rec.Metadata
		if meta == nil {
			meta = map[string]any{}
		}

		b, err := json.Marshal(meta)
		if err != nil {
			return 0, fmt.Errorf("marshaling record %d metadata: %w", rec.Seq, err)
		}

		metaJSON[i] = b
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning batch insert: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	written := 0

	for start := 0; start < len(records); start += maxInsertBatchSize {
		end := min(start+maxInsertBatchSize, len(records))
		chunk := records[start:end]

		var sb strings.Builder

		sb.WriteString(`INSERT INTO log_records
			(tenant_id, ingested_at, seq, event_time, level, message, source, service, metadata, raw)
			VALUES `)

		args := make([]any, 0, len(chunk)*recordInsertColumns)

		for i, rec := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}

			base := i * recordInsertColumns
			sb.WriteByte('(')

			for p := 1; p <= recordInsertColumns; p++ {
				if p > 1 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "$%d", base+p)
			}

			sb.WriteByte(')')

			args = append(args,
				rec.TenantID, rec.IngestedAt, rec.Seq, rec.EventTime, string(rec.Level),
				rec.Message, nullable(rec.Source), nullable(rec.Service), metaJSON[start+i], rec.Raw,
			)
		}

		tag, err := tx.Exec(ctx, sb.String(), args...)
		if err != nil {
			return 0, fmt.Errorf("inserting record batch: %w", err)
		}

		written += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing batch insert: %w", err)
	}

	return written, nil
}

// RecordQuery filters ListRecords.
type RecordQuery struct {
	Level  models.Level
	Since  time.Time
	Before time.Time
	Limit  int
}

// ListRecords returns a tenant's records newest-first by ingest position.
func (s *RecordStore) ListRecords(ctx context.Context, tenantID string, q RecordQuery) ([]models.LogRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var sb strings.Builder

	sb.WriteString(`SELECT tenant_id, ingested_at, seq, event_time, level, message,
		COALESCE(source, ''), COALESCE(service, ''), metadata
		FROM log_records WHERE tenant_id = $1`)

	args := []any{tenantID}

	if q.Level != "" {
		args = append(args, string(q.Level))
		fmt.Fprintf(&sb, " AND level = $%d", len(args))
	}

	if !q.Since.IsZero() {
		args = append(args, q.Since)
		fmt.Fprintf(&sb, " AND ingested_at >= $%d", len(args))
	}

	if !q.Before.IsZero() {
		args = append(args, q.Before)
		fmt.Fprintf(&sb, " AND ingested_at < $%d", len(args))
	}

	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY ingested_at DESC, seq DESC LIMIT $%d", len(args))

	rows, err := s.Pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []models.LogRecord

	for rows.Next() {
		var (
			rec  models.LogRecord
			lvl  string
			meta []byte
		)

		err := rows.Scan(&rec.TenantID, &rec.IngestedAt, &rec.Seq, &rec.EventTime,
			&lvl, &rec.Message, &rec.Source, &rec.Service, &meta)
		if err != nil {
			return nil, fmt.Errorf("scanning record row: %w", err)
		}

		rec.Level = models.Level(lvl)

		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decoding record metadata: %w", err)
			}
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating record rows: %w", err)
	}

	return out, nil
}

// FetchWindow returns a tenant's records with event_time in [since, until),
// oldest first. This is the analytics snapshot read: the result is stable for
// a fixed window because records are immutable.
func (s *RecordStore) FetchWindow(ctx context.Context, tenantID string, since, until time.Time) ([]models.LogRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT tenant_id, ingested_at, seq, event_time, level, message,
			COALESCE(source, ''), COALESCE(service, ''), metadata
			FROM log_records
			WHERE tenant_id = $1 AND event_time >= $2 AND event_time < $3
			ORDER BY event_time, ingested_at, seq`,
		tenantID, since, until)
	if err != nil {
		return nil, fmt.Errorf("fetching analytics window: %w", err)
	}
	defer rows.Close()

	var out []models.LogRecord

	for rows.Next() {
		var (
			rec  models.LogRecord
			lvl  string
			meta []byte
		)

		err := rows.Scan(&rec.TenantID, &rec.IngestedAt, &rec.Seq, &rec.EventTime,
			&lvl, &rec.Message, &rec.Source, &rec.Service, &meta)
		if err != nil {
			return nil, fmt.Errorf("scanning window row: %w", err)
		}

		rec.Level = models.Level(lvl)

		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decoding window metadata: %w", err)
			}
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating window rows: %w", err)
	}

	return out, nil
}

// FetchBatch returns the records of one ingest batch, identified by its
// shared ingested_at timestamp, in submission order.
func (s *RecordStore) FetchBatch(ctx context.Context, tenantID string, ingestedAt time.Time) ([]models.LogRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT tenant_id, ingested_at, seq, event_time, level, message,
			COALESCE(source, ''), COALESCE(service, ''), metadata
			FROM log_records
			WHERE tenant_id = $1 AND ingested_at = $2
			ORDER BY seq`,
		tenantID, ingestedAt)
	if err != nil {
		return nil, fmt.Errorf("fetching batch: %w", err)
	}
	defer rows.Close()

	var out []models.LogRecord

	for rows.Next() {
		var (
			rec  models.LogRecord
			lvl  string
			meta []byte
		)

		err := rows.Scan(&rec.TenantID, &rec.IngestedAt, &rec.Seq, &rec.EventTime,
			&lvl, &rec.Message, &rec.Source, &rec.Service, &meta)
		if err != nil {
			return nil, fmt.Errorf("scanning batch row: %w", err)
		}

		rec.Level = models.Level(lvl)

		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decoding batch metadata: %w", err)
			}
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batch rows: %w", err)
	}

	return out, nil
}

// CountRecords returns the total stored records for a tenant.
func (s *RecordStore) CountRecords(ctx context.Context, tenantID string) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var n int64

	err := s.Pool.QueryRow(ctx,
		`SELECT count(*) FROM log_records WHERE tenant_id = $1`, tenantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}

	return n, nil
}

// nullable maps empty strings to NULL so partial indexes and COALESCE reads
// stay meaningful.
func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}

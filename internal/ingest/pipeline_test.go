package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/loglens/loglens/internal/logparse"
	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/normalize"
)

type mockWriter struct {
	mu      sync.Mutex
	batches [][]models.LogRecord
	err     error
}

func (m *mockWriter) InsertBatch(_ context.Context, records []models.LogRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return 0, m.err
	}

	m.batches = append(m.batches, records)

	return len(records), nil
}

type mockCounter struct {
	mu     sync.Mutex
	stored int
	status string
	calls  int
}

func (m *mockCounter) RecordIngest(_ context.Context, _ string, stored int, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stored += stored
	m.status = status
	m.calls++

	return nil
}

type mockHub struct {
	mu     sync.Mutex
	frames []models.LogRecord
}

func (m *mockHub) BroadcastRecord(_ string, rec models.LogRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.frames = append(m.frames, rec)
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func newTestPipeline(t *testing.T, writer RecordWriter, counter *mockCounter, hub Broadcaster, adm *Admission) *Pipeline {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bank := logparse.NewBank()

	return NewPipeline(
		writer, counter,
		logparse.NewDecisionCache(ctx, bank), bank,
		normalize.New(64<<10),
		hub, adm, quietLog(),
	)
}

func TestIngestNDJSON(t *testing.T) {
	writer := &mockWriter{}
	counter := &mockCounter{}
	hub := &mockHub{}
	p := newTestPipeline(t, writer, counter, hub, nil)

	body := []byte(`{"time":"2024-01-15T10:30:45Z","level":"error","message":"db timeout"}
{"time":"2024-01-15T10:30:46Z","level":"info","message":"retry ok"}`)

	ack, err := p.Ingest(context.Background(), "tenant-1", body)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if ack.Received != 2 || ack.Stored != 2 {
		t.Errorf("ack = %+v", ack)
	}

	if len(writer.batches) != 1 || len(writer.batches[0]) != 2 {
		t.Fatalf("batches = %v", writer.batches)
	}

	recs := writer.batches[0]
	if recs[0].Seq != 0 || recs[1].Seq != 1 {
		t.Errorf("seq order: %d, %d", recs[0].Seq, recs[1].Seq)
	}
	if !recs[0].IngestedAt.Equal(recs[1].IngestedAt) {
		t.Error("batch records must share ingested_at")
	}
	if recs[0].Level != models.LevelError || recs[0].Message != "db timeout" {
		t.Errorf("first record = %+v", recs[0])
	}
	if recs[0].TenantID != "tenant-1" {
		t.Errorf("TenantID = %q", recs[0].TenantID)
	}

	if counter.stored != 2 || counter.status != models.TenantActive {
		t.Errorf("counter: stored=%d status=%q", counter.stored, counter.status)
	}

	if len(hub.frames) != 2 {
		t.Errorf("broadcast frames = %d, want 2", len(hub.frames))
	}
}

func TestIngestJSONArray(t *testing.T) {
	writer := &mockWriter{}
	counter := &mockCounter{}
	p := newTestPipeline(t, writer, counter, nil, nil)

	body := []byte(`[{"message":"a","level":"warn"},{"message":"b"}]`)

	ack, err := p.Ingest(context.Background(), "tenant-1", body)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if ack.Stored != 2 {
		t.Errorf("stored = %d, want 2", ack.Stored)
	}

	recs := writer.batches[0]
	if recs[0].Level != models.LevelWarn || recs[0].Message != "a" {
		t.Errorf("first record = %+v", recs[0])
	}
}

func TestIngestBadLinesBecomeErrorRecords(t *testing.T) {
	writer := &mockWriter{}
	counter := &mockCounter{}
	p := newTestPipeline(t, writer, counter, nil, nil)

	// Tenant locked to json-lines by the first batch; garbage after that
	// still produces stored records.
	if _, err := p.Ingest(context.Background(), "tenant-1",
		[]byte(`{"message":"seed","level":"info"}`)); err != nil {
		t.Fatalf("seed ingest: %v", err)
	}

	ack, err := p.Ingest(context.Background(), "tenant-1", []byte("{not json at all"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if ack.Stored != 1 {
		t.Fatalf("stored = %d, want 1", ack.Stored)
	}

	rec := writer.batches[1][0]
	if rec.Level != models.LevelError {
		t.Errorf("parse-failure record level = %s", rec.Level)
	}
	if rec.Metadata["parse_error"] != true {
		t.Errorf("parse_error marker missing: %v", rec.Metadata)
	}

	if counter.status != models.TenantError {
		t.Errorf("all-failed batch should mark tenant error, got %q", counter.status)
	}
}

func TestIngestClientFaults(t *testing.T) {
	writer := &mockWriter{}
	counter := &mockCounter{}
	p := newTestPipeline(t, writer, counter, nil, nil)

	if _, err := p.Ingest(context.Background(), "tenant-1", nil); !errors.Is(err, models.ErrEmptyBody) {
		t.Errorf("empty body err = %v", err)
	}

	if _, err := p.Ingest(context.Background(), "tenant-1", []byte(`[1,2]`)); !errors.Is(err, models.ErrBadFraming) {
		t.Errorf("bad framing err = %v", err)
	}

	if counter.calls != 0 {
		t.Errorf("counters touched on client fault: %d calls", counter.calls)
	}
}

func TestIngestStorageFailureStoresNothing(t *testing.T) {
	writer := &mockWriter{err: errors.New("connection refused")}
	counter := &mockCounter{}
	hub := &mockHub{}
	p := newTestPipeline(t, writer, counter, hub, nil)

	_, err := p.Ingest(context.Background(), "tenant-1", []byte(`{"message":"a"}`))
	if err == nil {
		t.Fatal("expected storage error")
	}

	if counter.calls != 0 {
		t.Error("counters updated despite failed batch")
	}
	if len(hub.frames) != 0 {
		t.Error("broadcast happened despite failed batch")
	}
}

// shortWriter reports fewer rows stored than it was handed.
type shortWriter struct {
	stored int
}

func (w *shortWriter) InsertBatch(_ context.Context, records []models.LogRecord) (int, error) {
	w.stored = len(records) - 1

	return w.stored, nil
}

func TestIngestCounterTracksStoredNotReceived(t *testing.T) {
	writer := &shortWriter{}
	counter := &mockCounter{}
	p := newTestPipeline(t, writer, counter, nil, nil)

	body := []byte(`{"message":"a"}
{"message":"b"}
{"message":"c"}`)

	ack, err := p.Ingest(context.Background(), "tenant-1", body)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if ack.Received != 3 || ack.Stored != 2 {
		t.Fatalf("ack = %+v, want received=3 stored=2", ack)
	}

	// The tenant's running total follows what landed, not what arrived.
	if counter.stored != ack.Stored {
		t.Errorf("counter stored = %d, want %d", counter.stored, ack.Stored)
	}
}

func TestIngestRateLimited(t *testing.T) {
	writer := &mockWriter{}
	counter := &mockCounter{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adm := NewAdmission(ctx, 1, 2) // 1 rec/s, burst 2
	p := newTestPipeline(t, writer, counter, nil, adm)

	if _, err := p.Ingest(ctx, "tenant-1", []byte("line one\nline two")); err != nil {
		t.Fatalf("first batch should pass: %v", err)
	}

	_, err := p.Ingest(ctx, "tenant-1", []byte("line three\nline four"))
	if !errors.Is(err, models.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}

	// Other tenants are unaffected.
	if _, err := p.Ingest(ctx, "tenant-2", []byte("line one")); err != nil {
		t.Errorf("other tenant rejected: %v", err)
	}
}

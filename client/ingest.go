package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// IngestService sends log payloads to the write path.
type IngestService struct {
	c *Client
}

// Raw sends an arbitrary body: NDJSON, a JSON array, or a single JSON object.
// Plain text lines are also accepted; the server detects the format.
func (s *IngestService) Raw(ctx context.Context, body []byte) (*IngestAck, error) {
	var ack IngestAck
	err := s.c.do(ctx, http.MethodPost, "/api/v1/ingest", bytes.NewReader(body), "application/x-ndjson", &ack)
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// Lines joins raw log lines with newlines and sends them.
func (s *IngestService) Lines(ctx context.Context, lines []string) (*IngestAck, error) {
	return s.Raw(ctx, []byte(strings.Join(lines, "\n")))
}

// Objects sends structured records as a JSON array.
func (s *IngestService) Objects(ctx context.Context, records []map[string]any) (*IngestAck, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}

	var ack IngestAck
	if err := s.c.do(ctx, http.MethodPost, "/api/v1/ingest", bytes.NewReader(data), "application/json", &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Test verifies the credential without writing any records.
func (s *IngestService) Test(ctx context.Context) (*TestResult, error) {
	var result TestResult
	if err := s.c.get(ctx, "/api/v1/ingest/test", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

package client

import (
	"context"
	"encoding/json"
	"net/url"
)

// AnalyticsService fetches computed reports.
type AnalyticsService struct {
	c *Client
}

// ReportOptions tune a report request.
type ReportOptions struct {
	// ScopeID narrows the report to a single ingest batch.
	ScopeID string

	// Force bypasses the server-side cache read.
	Force bool
}

// Report returns the raw JSON payload for one report type (see the Report*
// constants). The shape varies by type; use the typed helpers or decode into
// your own struct.
func (s *AnalyticsService) Report(ctx context.Context, typ string, opts *ReportOptions) (json.RawMessage, error) {
	params := url.Values{}
	if opts != nil {
		if opts.ScopeID != "" {
			params.Set("scope_id", opts.ScopeID)
		}
		if opts.Force {
			params.Set("force", "true")
		}
	}

	var payload json.RawMessage
	if err := s.c.get(ctx, "/api/v1/analytics/"+url.PathEscape(typ), params, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

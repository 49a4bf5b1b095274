package client

import "time"

// HealthResponse is the payload of GET /health.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	Subscribers   int     `json:"subscribers"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// IngestAck acknowledges one ingest call.
type IngestAck struct {
	Received int       `json:"received"`
	Stored   int       `json:"stored"`
	TenantID string    `json:"tenant_id"`
	At       time.Time `json:"at"`
}

// TestResult is the payload of GET /ingest/test.
type TestResult struct {
	OK       bool   `json:"ok"`
	Platform string `json:"platform"`
	Status   string `json:"status"`
}

// Connection is one tenant credential as listed by the API. Key material is
// limited to the display prefix.
type Connection struct {
	TenantID      string     `json:"tenant_id"`
	Owner         string     `json:"owner"`
	Name          string     `json:"name"`
	Platform      string     `json:"platform"`
	KeyPrefix     string     `json:"api_key_prefix"`
	Status        string     `json:"status"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`
	TotalReceived int64      `json:"total_received"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CreatedConnection is the one-time creation response. PlaintextKey is only
// ever present here; store it securely.
type CreatedConnection struct {
	Connection
	PlaintextKey string `json:"plaintext_key"`
}

// CreateConnectionRequest is the body of POST /connections.
type CreateConnectionRequest struct {
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	Platform string `json:"platform,omitempty"`
}

// Analytics report types accepted by ReportOptions.
const (
	ReportOverview    = "overview"
	ReportErrors      = "errors"
	ReportAnomalies   = "anomalies"
	ReportPerformance = "performance"
	ReportPatterns    = "patterns"
	ReportInsights    = "insights"
)

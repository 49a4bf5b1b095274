// Package models defines the wire and storage types shared across the service.
package models

import (
	"time"
)

// Level is a canonical log severity after normalization.
type Level string

// Canonical levels, ordered roughly by severity.
const (
	LevelTrace     Level = "TRACE"
	LevelDebug     Level = "DEBUG"
	LevelInfo      Level = "INFO"
	LevelNotice    Level = "NOTICE"
	LevelWarn      Level = "WARN"
	LevelError     Level = "ERROR"
	LevelCritical  Level = "CRITICAL"
	LevelAlert     Level = "ALERT"
	LevelEmergency Level = "EMERGENCY"
	LevelFatal     Level = "FATAL"
)

// Levels lists every canonical level.
var Levels = []Level{
	LevelTrace, LevelDebug, LevelInfo, LevelNotice, LevelWarn,
	LevelError, LevelCritical, LevelAlert, LevelEmergency, LevelFatal,
}

// IsErrorLevel reports whether l counts as an error for analytics purposes.
func (l Level) IsErrorLevel() bool {
	return l == LevelError || l == LevelCritical || l == LevelFatal
}

// Valid reports whether l is one of the canonical levels.
func (l Level) Valid() bool {
	for _, v := range Levels {
		if l == v {
			return true
		}
	}
	return false
}

// ParsedLine is the tagged output of a format parser, before normalization.
// Raw timestamp and level strings are carried through untouched; interpreting
// them is the normalizer's job.
type ParsedLine struct {
	RawTimestamp string
	RawLevel     string
	Message      string
	Source       string
	Service      string
	Metadata     map[string]any
	Raw          string
	ParseError   bool
}

// LogRecord is the canonical record persisted for a tenant. Records are
// immutable once written; (TenantID, IngestedAt, Seq) identifies one uniquely.
type LogRecord struct {
	TenantID   string         `json:"tenant_id"`
	IngestedAt time.Time      `json:"ingested_at"`
	Seq        int            `json:"seq"`
	EventTime  time.Time      `json:"event_time"`
	Level      Level          `json:"level"`
	Message    string         `json:"message"`
	Source     string         `json:"source,omitempty"`
	Service    string         `json:"service,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Raw        string         `json:"-"`
}

// IngestAck is the response body of a successful ingest call.
type IngestAck struct {
	Received int       `json:"received"`
	Stored   int       `json:"stored"`
	TenantID string    `json:"tenant_id"`
	At       time.Time `json:"at"`
}

package normalize_test

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/loglens/loglens/internal/models"
	"github.com/loglens/loglens/internal/normalize"
)

var ingestedAt = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func TestNormalizeTimestamp(t *testing.T) {
	n := normalize.New(64 << 10)

	tests := []struct {
		name    string
		raw     string
		message string
		want    time.Time
		clamped bool
	}{
		{"rfc3339", "2024-01-15T10:30:45Z", "x", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC), false},
		{"offset converted to utc", "2024-01-15T10:30:45+02:00", "x", time.Date(2024, 1, 15, 8, 30, 45, 0, time.UTC), false},
		{"apache access", "10/Oct/2000:13:55:36 -0700", "x", time.Date(2000, 10, 10, 20, 55, 36, 0, time.UTC), false},
		{"nginx", "2024/01/15 10:30:45", "x", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC), false},
		{"syslog no year", "Jan 15 10:30:45", "x", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC), false},
		{"epoch seconds", "1705314645", "x", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC), false},
		{"scan from message", "", "started at 2024-01-15T09:00:00Z ok", time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), false},
		{"unparseable falls back", "gibberish", "no timestamp here", ingestedAt, false},
		{"far future clamped", "2030-01-01T00:00:00Z", "x", ingestedAt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := n.Normalize(models.ParsedLine{RawTimestamp: tt.raw, Message: tt.message}, "generic-timestamped", ingestedAt)
			if !rec.EventTime.Equal(tt.want) {
				t.Errorf("EventTime = %v, want %v", rec.EventTime, tt.want)
			}
			gotClamped := rec.Metadata["timestamp_clamped"] == true
			if gotClamped != tt.clamped {
				t.Errorf("timestamp_clamped = %v, want %v", gotClamped, tt.clamped)
			}
		})
	}
}

func TestNormalizeLevel(t *testing.T) {
	n := normalize.New(64 << 10)

	tests := []struct {
		raw     string
		message string
		want    models.Level
	}{
		{"error", "x", models.LevelError},
		{"ERR", "x", models.LevelError},
		{"3", "x", models.LevelError},
		{"0", "x", models.LevelEmergency},
		{"warning", "x", models.LevelWarn},
		{"Information", "x", models.LevelInfo},
		{"severe", "x", models.LevelCritical},
		{"panic", "x", models.LevelFatal},
		{"", "request failed with exception", models.LevelError},
		{"", "warning: disk low", models.LevelWarn},
		{"", "all quiet", models.LevelInfo},
		{"bogus", "nothing to see", models.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.raw+"/"+tt.message, func(t *testing.T) {
			rec := n.Normalize(models.ParsedLine{RawLevel: tt.raw, Message: tt.message}, "json-lines", ingestedAt)
			if rec.Level != tt.want {
				t.Errorf("Level = %s, want %s", rec.Level, tt.want)
			}
		})
	}
}

func TestNormalizeMessageFallbackAndTruncation(t *testing.T) {
	n := normalize.New(100)

	// No message: serialize parser fields with stable key order.
	rec := n.Normalize(models.ParsedLine{Metadata: map[string]any{"b": 1, "a": 2}}, "json-lines", ingestedAt)
	if rec.Message != `{"a":2,"b":1}` {
		t.Errorf("fallback message = %q", rec.Message)
	}

	// Oversize message truncated with marker.
	long := strings.Repeat("x", 500)
	rec = n.Normalize(models.ParsedLine{Message: long}, "json-lines", ingestedAt)
	if !strings.HasSuffix(rec.Message, "...[truncated]") {
		t.Errorf("expected truncation marker, got %q", rec.Message[len(rec.Message)-20:])
	}
	if len(rec.Message) > 100+len("...[truncated]") {
		t.Errorf("message too long after truncation: %d", len(rec.Message))
	}
}

func TestNormalizeSourceAndService(t *testing.T) {
	n := normalize.New(64 << 10)

	tests := []struct {
		name        string
		parsed      models.ParsedLine
		wantSource  string
		wantService string
	}{
		{
			"parser source wins",
			models.ParsedLine{Source: "ns1/p1", Service: "api"},
			"ns1/p1", "api",
		},
		{
			"file:line from message",
			models.ParsedLine{Message: "panic at server.go:42 in handler"},
			"server.go:42", "",
		},
		{
			"bracketed token from message",
			models.ParsedLine{Message: "[auth-service] login rejected"},
			"auth-service", "auth",
		},
		{
			"service from source suffix",
			models.ParsedLine{Source: "billing-service", Message: "x"},
			"billing-service", "billing",
		},
		{
			"service from ns.svc",
			models.ParsedLine{Source: "prod.checkout", Message: "x"},
			"prod.checkout", "checkout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := n.Normalize(tt.parsed, "generic-timestamped", ingestedAt)
			if rec.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", rec.Source, tt.wantSource)
			}
			if rec.Service != tt.wantService {
				t.Errorf("Service = %q, want %q", rec.Service, tt.wantService)
			}
		})
	}
}

func TestNormalizeMetadataBounds(t *testing.T) {
	n := normalize.New(64 << 10)

	// Depth beyond the limit is flattened to a JSON string.
	deep := map[string]any{}
	cur := deep
	for rep := 0; rep < 15; rep++ {
		next := map[string]any{}
		cur["d"] = next
		cur = next
	}
	cur["leaf"] = "v"

	rec := n.Normalize(models.ParsedLine{Message: "x", Metadata: deep}, "json-lines", ingestedAt)

	depth := 0
	v := any(rec.Metadata["d"])
	for {
		m, ok := v.(map[string]any)
		if !ok {
			break
		}
		depth++
		v = m["d"]
	}
	if _, isString := v.(string); !isString {
		t.Errorf("expected flattened string at the depth limit, got %T (depth %d)", v, depth)
	}

	if rec.Metadata["original_format"] != "json-lines" {
		t.Error("original_format missing from metadata")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := normalize.New(64 << 10)

	parsed := models.ParsedLine{
		RawTimestamp: "2024-01-15T10:30:45Z",
		RawLevel:     "warning",
		Message:      "slow query on orders",
		Source:       "db-service",
		Metadata:     map[string]any{"query_ms": 1500.0},
	}

	first := n.Normalize(parsed, "json-lines", ingestedAt)

	// Feed the canonical record back through in parser shape.
	again := n.Normalize(models.ParsedLine{
		RawTimestamp: first.EventTime.Format(time.RFC3339Nano),
		RawLevel:     string(first.Level),
		Message:      first.Message,
		Source:       first.Source,
		Service:      first.Service,
		Metadata:     first.Metadata,
	}, "json-lines", ingestedAt)

	if !first.EventTime.Equal(again.EventTime) {
		t.Errorf("EventTime changed: %v vs %v", first.EventTime, again.EventTime)
	}
	if first.Level != again.Level {
		t.Errorf("Level changed: %s vs %s", first.Level, again.Level)
	}
	if first.Message != again.Message {
		t.Errorf("Message changed: %q vs %q", first.Message, again.Message)
	}
	if first.Source != again.Source || first.Service != again.Service {
		t.Errorf("Source/Service changed")
	}
	if !reflect.DeepEqual(first.Metadata, again.Metadata) {
		t.Errorf("Metadata changed: %v vs %v", first.Metadata, again.Metadata)
	}
}

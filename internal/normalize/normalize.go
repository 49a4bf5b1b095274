// Package normalize maps parser output into the canonical log record. Every
// field follows a deterministic policy, and normalization is idempotent: a
// record fed back through produces the same result.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/loglens/loglens/internal/models"
)

// maxFutureSkew is how far into the future an event time may sit before it is
// clamped to the ingest time and marked.
const maxFutureSkew = 24 * time.Hour

// Metadata bounds.
const (
	maxMetadataKeys  = 1000
	maxMetadataDepth = 10
)

// truncationMarker is appended to oversize messages.
const truncationMarker = "...[truncated]"

// Source extraction patterns scanned over the message when the parser gave none.
var (
	fileLineRe    = regexp.MustCompile(`\b([\w./-]+\.\w{1,4}):(\d+)\b`)
	classMethodRe = regexp.MustCompile(`\b([A-Z][\w$]*(?:\.[\w$]+)+)\b`)
	bracketRe     = regexp.MustCompile(`\[([^\]\s]+)\]`)
)

// Service extraction patterns over the source string.
var (
	svcSuffixRe = regexp.MustCompile(`^([\w-]+)-(?:service|app|svc)$`)
	nsSvcRe     = regexp.MustCompile(`^([\w-]+)\.([\w-]+)$`)
)

// Normalizer produces canonical records from parsed lines.
type Normalizer struct {
	maxMessageBytes int
}

// New creates a Normalizer with the given message size cap.
func New(maxMessageBytes int) *Normalizer {
	return &Normalizer{maxMessageBytes: maxMessageBytes}
}

// Normalize builds the canonical record for one parsed line. ingestedAt is
// the persistence timestamp assigned by the pipeline; format names the wire
// format the line was parsed as.
func (n *Normalizer) Normalize(parsed models.ParsedLine, format string, ingestedAt time.Time) models.LogRecord {
	meta := boundMetadata(parsed.Metadata)
	if meta == nil {
		meta = map[string]any{}
	}
	meta["original_format"] = format

	message := parsed.Message
	if message == "" {
		message = stableJSON(parsed.Metadata)
	}
	if len(message) > n.maxMessageBytes && !strings.HasSuffix(message, truncationMarker) {
		message = message[:n.maxMessageBytes] + truncationMarker
	}

	eventTime, clamped := n.resolveTimestamp(parsed.RawTimestamp, message, ingestedAt)
	if clamped {
		meta["timestamp_clamped"] = true
	}

	source := parsed.Source
	if source == "" {
		source = extractSource(message)
	}

	service := parsed.Service
	if service == "" {
		service = extractService(source)
	}

	return models.LogRecord{
		IngestedAt: ingestedAt,
		EventTime:  eventTime,
		Level:      normalizeLevel(parsed.RawLevel, message),
		Message:    message,
		Source:     source,
		Service:    service,
		Metadata:   meta,
		Raw:        parsed.Raw,
	}
}

// resolveTimestamp applies the timestamp policy: parser value, then message
// scan, then ingest time. Future-dated values beyond the skew are clamped.
func (n *Normalizer) resolveTimestamp(raw, message string, ingestedAt time.Time) (time.Time, bool) {
	ts := parseTimestamp(raw, ingestedAt)
	if ts.IsZero() {
		ts = scanMessageTimestamp(message, ingestedAt)
	}
	if ts.IsZero() {
		return ingestedAt, false
	}

	if ts.After(ingestedAt.Add(maxFutureSkew)) {
		return ingestedAt, true
	}

	return ts, false
}

// extractSource pulls file:line, Class.method, or a bracketed token from the
// message, in that order.
func extractSource(message string) string {
	if m := fileLineRe.FindStringSubmatch(message); m != nil {
		return m[1] + ":" + m[2]
	}
	if m := classMethodRe.FindString(message); m != "" {
		return m
	}
	if m := bracketRe.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return ""
}

// extractService derives a service name from the source (X-service, X-app,
// ns.svc patterns).
func extractService(source string) string {
	if source == "" {
		return ""
	}
	if m := svcSuffixRe.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	if m := nsSvcRe.FindStringSubmatch(source); m != nil {
		return m[2]
	}
	return ""
}

// stableJSON serializes a map with deterministic key order. encoding/json
// sorts map keys, which is exactly the stability we need.
func stableJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("%v", m)
	}
	return string(b)
}

// boundMetadata enforces the key-count and depth limits. Values past the
// depth limit are flattened to their JSON string form; keys past the count
// limit are dropped and the truncation is marked.
func boundMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	count := 0
	for k, v := range m {
		if count >= maxMetadataKeys {
			out["metadata_truncated"] = true
			break
		}
		out[k] = boundValue(v, 1)
		count++
	}
	return out
}

func boundValue(v any, depth int) any {
	if depth >= maxMetadataDepth {
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}

	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = boundValue(inner, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = boundValue(inner, depth+1)
		}
		return out
	default:
		return v
	}
}

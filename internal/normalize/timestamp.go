package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order against a raw timestamp string.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05,000",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"02/Jan/2006:15:04:05 -0700",      // apache access
	"Mon Jan 02 15:04:05.000000 2006", // apache error 2.4
	"Mon Jan 2 15:04:05 2006",         // apache error legacy
	"Jan _2 15:04:05",                 // syslog 3164 (no year)
	"2006-01-02",
}

// isoishRe finds the first ISO-8601-ish substring inside a message.
var isoishRe = regexp.MustCompile(
	`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)

// epochRe matches unix epoch seconds or milliseconds.
var epochRe = regexp.MustCompile(`^\d{10}(?:\d{3})?(?:\.\d+)?$`)

// parseTimestamp interprets a raw timestamp string as UTC. Layouts without a
// year (syslog) assume the reference year. Returns zero time when nothing fits.
func parseTimestamp(raw string, ref time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	if epochRe.MatchString(raw) {
		return parseEpoch(raw)
	}

	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if ts.Year() == 0 {
			ts = ts.AddDate(ref.Year(), 0, 0)
		}
		return ts.UTC()
	}

	return time.Time{}
}

// parseEpoch interprets a numeric string as epoch seconds or milliseconds.
func parseEpoch(raw string) time.Time {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}
	}
	if f > 1e12 { // milliseconds
		f /= 1000
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// scanMessageTimestamp finds the first ISO-8601-ish substring in the message.
func scanMessageTimestamp(message string, ref time.Time) time.Time {
	m := isoishRe.FindString(message)
	if m == "" {
		return time.Time{}
	}
	return parseTimestamp(m, ref)
}

// Package logparse implements wire-format detection and per-line parsing.
//
// A Parser contributes two detector signals: Match (cheap per-line check) and
// Bonus (format-specific validator over the sample). Detection picks the
// highest-scoring format above the confidence floor, falling back to
// generic-timestamped. Parsers never interpret timestamps; raw strings are
// carried through for the normalizer.
package logparse

import (
	"strings"

	"github.com/loglens/loglens/internal/models"
)

// Format identifies one supported wire format.
type Format string

// Supported formats.
const (
	FormatJSONLines      Format = "json-lines"
	FormatSyslog         Format = "syslog"
	FormatApacheCommon   Format = "apache-access-common"
	FormatApacheCombined Format = "apache-access-combined"
	FormatApacheError    Format = "apache-error"
	FormatNginxAccess    Format = "nginx-access"
	FormatNginxError     Format = "nginx-error"
	FormatDocker         Format = "docker"
	FormatKubernetes     Format = "kubernetes"
	FormatCloudAWS       Format = "cloud-aws"
	FormatCloudAzure     Format = "cloud-azure"
	FormatCloudGCP       Format = "cloud-gcp"
	FormatWindowsEvent   Format = "windows-event"
	FormatGeneric        Format = "generic-timestamped"
)

// maxSampleLines caps how many lines detection examines.
const maxSampleLines = 100

// maxLineBytes caps a single line; longer lines are truncated and marked.
const maxLineBytes = 1 << 20

// confidenceFloor is the minimum score for a format to win detection.
const confidenceFloor = 0.6

// Parser turns one line of a known format into a ParsedLine.
type Parser interface {
	// Format names the format this parser handles.
	Format() Format
	// Match is the cheap per-line detector signal.
	Match(line string) bool
	// Bonus is the format-specific validator fraction over the sample, in [0,1].
	Bonus(lines []string) float64
	// Parse produces a structured line. It never fails: unparseable lines
	// come back with ParseError set and the original text as the message.
	Parse(line string) models.ParsedLine
}

// Detection is the outcome of format detection over a sample.
type Detection struct {
	Format       Format         `json:"format"`
	Confidence   float64        `json:"confidence"`
	MatchedCount int            `json:"matched_count"`
	Total        int            `json:"total"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Bank holds every registered parser, in detection priority order. More
// specific formats come before the JSON catch-all so kubernetes and docker
// lines are not swallowed by json-lines.
type Bank struct {
	parsers []Parser
	generic Parser
}

// NewBank creates the default parser bank.
func NewBank() *Bank {
	generic := &genericParser{}
	return &Bank{
		parsers: []Parser{
			&kubernetesParser{},
			&dockerParser{},
			&cloudAWSParser{},
			&cloudAzureParser{},
			&cloudGCPParser{},
			&jsonParser{},
			&syslogParser{},
			&apacheCombinedParser{},
			&apacheCommonParser{},
			&apacheErrorParser{},
			&nginxAccessParser{},
			&nginxErrorParser{},
			&windowsEventParser{},
		},
		generic: generic,
	}
}

// Detect scores every format over up to maxSampleLines non-empty lines and
// returns the winner, or generic-timestamped when nothing clears the floor.
func (b *Bank) Detect(lines []string) Detection {
	sample := make([]string, 0, maxSampleLines)
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		sample = append(sample, l)
		if len(sample) == maxSampleLines {
			break
		}
	}

	if len(sample) == 0 {
		return Detection{Format: FormatGeneric, Confidence: 0, Total: 0}
	}

	best := Detection{Format: FormatGeneric}
	for _, p := range b.parsers {
		matched := 0
		for _, l := range sample {
			if p.Match(l) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		base := float64(matched) / float64(len(sample))
		score := (base + p.Bonus(sample)) / 2

		if score > best.Confidence {
			best = Detection{
				Format:       p.Format(),
				Confidence:   score,
				MatchedCount: matched,
				Total:        len(sample),
			}
		}
	}

	if best.Confidence >= confidenceFloor {
		return best
	}

	// Fallback: generic wins with its own base rate.
	matched := 0
	for _, l := range sample {
		if b.generic.Match(l) {
			matched++
		}
	}
	return Detection{
		Format:       FormatGeneric,
		Confidence:   float64(matched) / float64(len(sample)),
		MatchedCount: matched,
		Total:        len(sample),
	}
}

// parserFor returns the parser for a previously detected format.
func (b *Bank) parserFor(f Format) Parser {
	for _, p := range b.parsers {
		if p.Format() == f {
			return p
		}
	}
	return b.generic
}

// ParseLine parses one line as the given format, applying the line length cap.
// Empty lines return ok=false and are skipped by the caller.
func (b *Bank) ParseLine(f Format, line string) (models.ParsedLine, bool) {
	if strings.TrimSpace(line) == "" {
		return models.ParsedLine{}, false
	}

	truncated := false
	if len(line) > maxLineBytes {
		line = line[:maxLineBytes]
		truncated = true
	}

	parsed := b.parserFor(f).Parse(line)
	if truncated {
		if parsed.Metadata == nil {
			parsed.Metadata = map[string]any{}
		}
		parsed.Metadata["truncated"] = true
	}

	return parsed, true
}

// errorLine builds the per-line parse failure record. The batch continues;
// the offending text is preserved as the message.
func errorLine(raw string) models.ParsedLine {
	return models.ParsedLine{
		RawLevel:   "ERROR",
		Message:    raw,
		Raw:        raw,
		Metadata:   map[string]any{"parse_error": true},
		ParseError: true,
	}
}

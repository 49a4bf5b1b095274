package logparse

import (
	"regexp"
	"strings"

	"github.com/loglens/loglens/internal/models"
)

// Leading timestamp variants a generic line may start with.
var genericTimestampRe = regexp.MustCompile(
	`^(\d{4}[-/]\d{2}[-/]\d{2}[T ]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?(?:Z|[+-]\d{2}:?\d{2})?` +
		`|[A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2}` +
		`|\d{2}:\d{2}:\d{2}(?:[.,]\d+)?)`)

// Optional level token after the timestamp: [INFO], INFO, or INFO:
var genericLevelRe = regexp.MustCompile(
	`^\s*[\[(]?(TRACE|DEBUG|INFO|NOTICE|WARN|WARNING|ERROR|ERR|CRITICAL|CRIT|FATAL|SEVERE|ALERT|EMERG(?:ENCY)?)[\])]?:?\s*`)

// Bracketed or dotted source tokens, e.g. [worker-3] or com.example.Service:
var genericSourceRe = regexp.MustCompile(`^\s*\[([^\]\s]+)\]\s*|^\s*([\w.$]+\.[A-Z]\w+):?\s+`)

// genericParser is the fallback: a timestamp-prefixed free-text line.
type genericParser struct{}

func (p *genericParser) Format() Format { return FormatGeneric }

func (p *genericParser) Match(line string) bool {
	return genericTimestampRe.MatchString(strings.TrimSpace(line))
}

func (p *genericParser) Bonus(lines []string) float64 {
	good := 0
	for _, l := range lines {
		if p.Match(l) {
			good++
		}
	}
	return float64(good) / float64(len(lines))
}

func (p *genericParser) Parse(line string) models.ParsedLine {
	rest := strings.TrimSpace(line)
	parsed := models.ParsedLine{Raw: line}

	if m := genericTimestampRe.FindString(rest); m != "" {
		parsed.RawTimestamp = m
		rest = strings.TrimSpace(rest[len(m):])
	}

	if m := genericLevelRe.FindStringSubmatch(rest); m != nil {
		parsed.RawLevel = m[1]
		rest = rest[len(m[0]):]
	}

	if m := genericSourceRe.FindStringSubmatch(rest); m != nil {
		if m[1] != "" {
			parsed.Source = m[1]
		} else {
			parsed.Source = m[2]
		}
		rest = rest[len(m[0]):]
	}

	parsed.Message = strings.TrimSpace(rest)
	if parsed.Message == "" {
		parsed.Message = strings.TrimSpace(line)
	}

	return parsed
}

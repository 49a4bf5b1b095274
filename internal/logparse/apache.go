package logparse

import (
	"regexp"
	"strconv"

	"github.com/loglens/loglens/internal/models"
)

// Common Log Format: host ident authuser [timestamp] "request" status bytes
var apacheCommonRe = regexp.MustCompile(
	`^(\S+)\s+(\S+)\s+(\S+)\s+\[([^\]]+)\]\s+"([^"]*)"\s+(\d{3})\s+(\S+)\s*$`)

// Combined adds "referer" "user-agent" after the common fields.
var apacheCombinedRe = regexp.MustCompile(
	`^(\S+)\s+(\S+)\s+(\S+)\s+\[([^\]]+)\]\s+"([^"]*)"\s+(\d{3})\s+(\S+)\s+"([^"]*)"\s+"([^"]*)"`)

// Apache error log, 2.4 style: [timestamp] [module:level] [pid N[:tid N]] [client ip] msg
var apacheErrorRe = regexp.MustCompile(
	`^\[([^\]]+)\]\s+\[(?:(\w+):)?(\w+)\]\s+(?:\[pid\s+(\d+)(?::tid\s+\d+)?\]\s+)?(?:\[client\s+([^\]]+)\]\s+)?(.*)$`)

// requestRe splits "METHOD path HTTP/x.y".
var requestRe = regexp.MustCompile(`^([A-Z]+)\s+(\S+)(?:\s+(HTTP/[\d.]+))?$`)

// statusBonus returns the fraction of lines whose extracted status code lies
// in [100, 599]. Shared by the access-log validators.
func statusBonus(lines []string, re *regexp.Regexp, statusIdx int) float64 {
	good := 0
	for _, l := range lines {
		m := re.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		if code, err := strconv.Atoi(m[statusIdx]); err == nil && code >= 100 && code <= 599 {
			good++
		}
	}
	return float64(good) / float64(len(lines))
}

// parseAccess builds a ParsedLine from access-log submatches.
func parseAccess(line string, m []string, combined bool) models.ParsedLine {
	status, _ := strconv.Atoi(m[6])

	meta := map[string]any{
		"remote_host": m[1],
		"status":      status,
		"bytes":       m[7],
	}
	if m[3] != "-" && m[3] != "" {
		meta["user"] = m[3]
	}
	if combined {
		if m[8] != "-" && m[8] != "" {
			meta["referer"] = m[8]
		}
		if m[9] != "-" && m[9] != "" {
			meta["user_agent"] = m[9]
		}
	}

	if rm := requestRe.FindStringSubmatch(m[5]); rm != nil {
		meta["method"] = rm[1]
		meta["path"] = rm[2]
	}

	parsed := models.ParsedLine{
		RawTimestamp: m[4],
		Message:      m[5] + " " + m[6],
		Source:       m[1],
		Raw:          line,
		Metadata:     meta,
	}

	// 5xx responses surface as errors, 4xx as warnings.
	switch {
	case status >= 500:
		parsed.RawLevel = "ERROR"
	case status >= 400:
		parsed.RawLevel = "WARN"
	}

	return parsed
}

type apacheCommonParser struct{}

func (p *apacheCommonParser) Format() Format { return FormatApacheCommon }

func (p *apacheCommonParser) Match(line string) bool {
	return apacheCommonRe.MatchString(line) && !apacheCombinedRe.MatchString(line)
}

func (p *apacheCommonParser) Bonus(lines []string) float64 {
	return statusBonus(lines, apacheCommonRe, 6)
}

func (p *apacheCommonParser) Parse(line string) models.ParsedLine {
	m := apacheCommonRe.FindStringSubmatch(line)
	if m == nil {
		return errorLine(line)
	}
	return parseAccess(line, m, false)
}

type apacheCombinedParser struct{}

func (p *apacheCombinedParser) Format() Format { return FormatApacheCombined }

func (p *apacheCombinedParser) Match(line string) bool {
	return apacheCombinedRe.MatchString(line)
}

func (p *apacheCombinedParser) Bonus(lines []string) float64 {
	return statusBonus(lines, apacheCombinedRe, 6)
}

func (p *apacheCombinedParser) Parse(line string) models.ParsedLine {
	m := apacheCombinedRe.FindStringSubmatch(line)
	if m == nil {
		return errorLine(line)
	}
	return parseAccess(line, m, true)
}

type apacheErrorParser struct{}

func (p *apacheErrorParser) Format() Format { return FormatApacheError }

func (p *apacheErrorParser) Match(line string) bool {
	m := apacheErrorRe.FindStringSubmatch(line)
	// The error-log timestamp starts with a weekday name; this keeps the
	// pattern from claiming nginx error lines or bare bracketed text.
	return m != nil && len(m[1]) > 10 && m[1][0] >= 'A' && m[1][0] <= 'Z'
}

func (p *apacheErrorParser) Bonus(lines []string) float64 {
	good := 0
	for _, l := range lines {
		m := apacheErrorRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		switch m[3] {
		case "emerg", "alert", "crit", "error", "warn", "notice", "info", "debug", "trace1":
			good++
		}
	}
	return float64(good) / float64(len(lines))
}

func (p *apacheErrorParser) Parse(line string) models.ParsedLine {
	m := apacheErrorRe.FindStringSubmatch(line)
	if m == nil {
		return errorLine(line)
	}

	meta := map[string]any{}
	if m[2] != "" {
		meta["module"] = m[2]
	}
	if m[4] != "" {
		meta["pid"] = m[4]
	}
	if m[5] != "" {
		meta["client"] = m[5]
	}

	return models.ParsedLine{
		RawTimestamp: m[1],
		RawLevel:     m[3],
		Message:      m[6],
		Source:       m[2],
		Raw:          line,
		Metadata:     meta,
	}
}

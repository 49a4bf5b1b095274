package logparse

import (
	"regexp"
	"strconv"

	"github.com/loglens/loglens/internal/models"
)

// nginx access (combined + trailing request time or upstream fields, which is
// what distinguishes it from stock apache combined).
var nginxAccessRe = regexp.MustCompile(
	`^(\S+)\s+(\S+)\s+(\S+)\s+\[([^\]]+)\]\s+"([^"]*)"\s+(\d{3})\s+(\S+)\s+"([^"]*)"\s+"([^"]*)"\s+(?:rt=)?([\d.]+)`)

// nginx error: 2024/01/15 10:30:45 [error] 1234#5678: *90 message
var nginxErrorRe = regexp.MustCompile(
	`^(\d{4}/\d{2}/\d{2}\s+\d{2}:\d{2}:\d{2})\s+\[(\w+)\]\s+(\d+)#(\d+):\s*(?:\*(\d+)\s+)?(.*)$`)

type nginxAccessParser struct{}

func (p *nginxAccessParser) Format() Format { return FormatNginxAccess }

func (p *nginxAccessParser) Match(line string) bool {
	return nginxAccessRe.MatchString(line)
}

func (p *nginxAccessParser) Bonus(lines []string) float64 {
	return statusBonus(lines, nginxAccessRe, 6)
}

func (p *nginxAccessParser) Parse(line string) models.ParsedLine {
	m := nginxAccessRe.FindStringSubmatch(line)
	if m == nil {
		return errorLine(line)
	}

	parsed := parseAccess(line, m[:10], true)
	if rt, err := strconv.ParseFloat(m[10], 64); err == nil {
		parsed.Metadata["request_time"] = rt
	}
	return parsed
}

type nginxErrorParser struct{}

func (p *nginxErrorParser) Format() Format { return FormatNginxError }

func (p *nginxErrorParser) Match(line string) bool {
	return nginxErrorRe.MatchString(line)
}

func (p *nginxErrorParser) Bonus(lines []string) float64 {
	good := 0
	for _, l := range lines {
		m := nginxErrorRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		switch m[2] {
		case "emerg", "alert", "crit", "error", "warn", "notice", "info", "debug":
			good++
		}
	}
	return float64(good) / float64(len(lines))
}

func (p *nginxErrorParser) Parse(line string) models.ParsedLine {
	m := nginxErrorRe.FindStringSubmatch(line)
	if m == nil {
		return errorLine(line)
	}

	meta := map[string]any{
		"pid": m[3],
		"tid": m[4],
	}
	if m[5] != "" {
		meta["connection"] = m[5]
	}

	return models.ParsedLine{
		RawTimestamp: m[1],
		RawLevel:     m[2],
		Message:      m[6],
		Source:       "nginx",
		Raw:          line,
		Metadata:     meta,
	}
}

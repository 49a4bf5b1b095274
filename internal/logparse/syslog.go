package logparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/loglens/loglens/internal/models"
)

// RFC 5424: <PRI>VERSION TIMESTAMP HOSTNAME APP-NAME PROCID MSGID [SD] MSG
var syslog5424Re = regexp.MustCompile(
	`^<(\d{1,3})>(\d)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(?:(\[.*?\])|-)\s*(.*)$`)

// RFC 3164: <PRI>Mmm dd hh:mm:ss HOSTNAME TAG[PID]: MSG (PRI optional in the wild)
var syslog3164Re = regexp.MustCompile(
	`^(?:<(\d{1,3})>)?([A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+(\S+)\s+([^:\[\s]+)(?:\[(\d+)\])?:\s*(.*)$`)

// syslogSeverities maps the numeric severity (pri % 8) to a raw level word.
var syslogSeverities = [8]string{
	"emerg", "alert", "crit", "err", "warning", "notice", "info", "debug",
}

// syslogParser handles a mix of RFC 3164 and RFC 5424 lines.
type syslogParser struct{}

func (p *syslogParser) Format() Format { return FormatSyslog }

func (p *syslogParser) Match(line string) bool {
	return syslog5424Re.MatchString(line) || syslog3164Re.MatchString(line)
}

// Bonus: fraction of matching lines whose PRI value decodes to a valid
// facility/severity pair (0..191).
func (p *syslogParser) Bonus(lines []string) float64 {
	good := 0
	for _, l := range lines {
		var pri string
		if m := syslog5424Re.FindStringSubmatch(l); m != nil {
			pri = m[1]
		} else if m := syslog3164Re.FindStringSubmatch(l); m != nil {
			pri = m[1]
		} else {
			continue
		}

		if pri == "" {
			good++ // PRI-less 3164 is still plausible syslog
			continue
		}
		if n, err := strconv.Atoi(pri); err == nil && n <= 191 {
			good++
		}
	}
	return float64(good) / float64(len(lines))
}

func (p *syslogParser) Parse(line string) models.ParsedLine {
	if m := syslog5424Re.FindStringSubmatch(line); m != nil {
		parsed := models.ParsedLine{
			RawTimestamp: m[3],
			RawLevel:     priSeverity(m[1]),
			Message:      m[9],
			Source:       m[4],
			Service:      m[5],
			Raw:          line,
			Metadata: map[string]any{
				"syslog_version": m[2],
				"procid":         m[6],
				"msgid":          m[7],
			},
		}
		if m[8] != "" {
			parsed.Metadata["structured_data"] = m[8]
		}
		return parsed
	}

	if m := syslog3164Re.FindStringSubmatch(line); m != nil {
		parsed := models.ParsedLine{
			RawTimestamp: m[2],
			RawLevel:     priSeverity(m[1]),
			Message:      m[6],
			Source:       m[3],
			Service:      m[4],
			Raw:          line,
			Metadata:     map[string]any{},
		}
		if m[5] != "" {
			parsed.Metadata["pid"] = m[5]
		}
		return parsed
	}

	return errorLine(line)
}

// priSeverity decodes a syslog PRI string into a severity word, or "".
func priSeverity(pri string) string {
	if pri == "" {
		return ""
	}
	n, err := strconv.Atoi(strings.TrimSpace(pri))
	if err != nil || n > 191 {
		return ""
	}
	return syslogSeverities[n%8]
}

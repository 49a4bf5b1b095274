package logparse

import (
	"regexp"

	"github.com/loglens/loglens/internal/models"
)

// Exported Windows event text, e.g.:
// 2024-01-15 10:30:45 Information Microsoft-Windows-Kernel-General 12 The operating system started
var windowsTextRe = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:\.\d+)?Z?)[\s,]+(Information|Warning|Error|Critical|Verbose)[\s,]+(\S+)[\s,]+(\d+)[\s,]+(.*)$`)

// windowsEventParser handles exported Windows event logs, either the text
// export above or JSON objects carrying EventID / ProviderName.
type windowsEventParser struct{}

func (p *windowsEventParser) Format() Format { return FormatWindowsEvent }

func (p *windowsEventParser) Match(line string) bool {
	if windowsTextRe.MatchString(line) {
		return true
	}
	obj, ok := decodeObject(line)
	if !ok {
		return false
	}
	_, hasID := obj["EventID"]
	_, hasProvider := obj["ProviderName"]
	return hasID && hasProvider
}

func (p *windowsEventParser) Bonus(lines []string) float64 {
	good := 0
	for _, l := range lines {
		if windowsTextRe.MatchString(l) {
			good++
			continue
		}
		obj, ok := decodeObject(l)
		if !ok {
			continue
		}
		if firstString(obj, "TimeCreated", "timeCreated") != "" {
			good++
		}
	}
	return float64(good) / float64(len(lines))
}

func (p *windowsEventParser) Parse(line string) models.ParsedLine {
	if m := windowsTextRe.FindStringSubmatch(line); m != nil {
		return models.ParsedLine{
			RawTimestamp: m[1],
			RawLevel:     m[2],
			Message:      m[5],
			Source:       m[3],
			Raw:          line,
			Metadata:     map[string]any{"event_id": m[4]},
		}
	}

	obj, ok := decodeObject(line)
	if !ok {
		return errorLine(line)
	}

	parsed := models.ParsedLine{
		RawTimestamp: firstString(obj, "TimeCreated", "timeCreated", "time"),
		RawLevel:     firstString(obj, "Level", "LevelDisplayName"),
		Message:      firstString(obj, "Message", "message", "RenderedDescription"),
		Source:       firstString(obj, "ProviderName", "LogName"),
		Service:      firstString(obj, "MachineName", "Computer"),
		Raw:          line,
		Metadata:     map[string]any{},
	}

	for _, k := range []string{"EventID", "LogName", "Task", "Keywords", "RecordID"} {
		if v, ok := obj[k]; ok {
			parsed.Metadata[k] = v
		}
	}

	return parsed
}

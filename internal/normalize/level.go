package normalize

import (
	"strings"

	"github.com/loglens/loglens/internal/models"
)

// levelTable maps lowercase raw level tokens to canonical levels. It covers
// syslog numerics (0-7), syslog names, common word variants, and vendor
// spellings.
var levelTable = map[string]models.Level{
	// syslog numeric severities
	"0": models.LevelEmergency,
	"1": models.LevelAlert,
	"2": models.LevelCritical,
	"3": models.LevelError,
	"4": models.LevelWarn,
	"5": models.LevelNotice,
	"6": models.LevelInfo,
	"7": models.LevelDebug,
	// syslog names
	"emerg":     models.LevelEmergency,
	"emergency": models.LevelEmergency,
	"alert":     models.LevelAlert,
	"crit":      models.LevelCritical,
	"critical":  models.LevelCritical,
	"err":       models.LevelError,
	"error":     models.LevelError,
	"warning":   models.LevelWarn,
	"warn":      models.LevelWarn,
	"notice":    models.LevelNotice,
	"info":      models.LevelInfo,
	"debug":     models.LevelDebug,
	// common words and vendor variants
	"information": models.LevelInfo,
	"informational": models.LevelInfo,
	"severe":   models.LevelCritical,
	"fatal":    models.LevelFatal,
	"panic":    models.LevelFatal,
	"trace":    models.LevelTrace,
	"verbose":  models.LevelDebug,
	"fine":     models.LevelDebug,
	"finer":    models.LevelTrace,
	"finest":   models.LevelTrace,
	"wrn":      models.LevelWarn,
	"inf":      models.LevelInfo,
	"dbg":      models.LevelDebug,
}

// messageKeywords are scanned (in order) when the raw level is unknown.
var messageKeywords = []struct {
	word  string
	level models.Level
}{
	{"error", models.LevelError},
	{"exception", models.LevelError},
	{"failed", models.LevelError},
	{"failure", models.LevelError},
	{"warn", models.LevelWarn},
	{"warning", models.LevelWarn},
	{"info", models.LevelInfo},
	{"debug", models.LevelDebug},
	{"critical", models.LevelCritical},
	{"fatal", models.LevelFatal},
}

// normalizeLevel resolves the canonical level from a raw token, falling back
// to a keyword scan over the message, then INFO.
func normalizeLevel(rawLevel, message string) models.Level {
	if rawLevel != "" {
		if lvl, ok := levelTable[strings.ToLower(strings.TrimSpace(rawLevel))]; ok {
			return lvl
		}
		// Raw token may already be canonical (idempotent path).
		if lvl := models.Level(strings.ToUpper(rawLevel)); lvl.Valid() {
			return lvl
		}
	}

	lower := strings.ToLower(message)
	for _, kw := range messageKeywords {
		if strings.Contains(lower, kw.word) {
			return kw.level
		}
	}

	return models.LevelInfo
}

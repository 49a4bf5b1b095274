package logparse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/loglens/loglens/internal/models"
)

// timestampKeys are the object keys treated as a timestamp signal.
var timestampKeys = []string{"timestamp", "time", "@timestamp", "ts", "datetime", "date"}

// messageKeys are the object keys treated as a message signal.
var messageKeys = []string{"message", "msg", "text", "content", "body", "description", "log"}

// levelKeys are the object keys a JSON-shaped line may carry a level under.
var levelKeys = []string{"level", "severity", "loglevel", "log_level", "lvl", "priority"}

// decodeObject parses a line as a single JSON object.
func decodeObject(line string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// firstString returns the first present key's value rendered as a string.
func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			return s
		case float64, bool:
			return fmt.Sprintf("%v", s)
		}
	}
	return ""
}

// hasAnyKey reports whether the object has at least one of the keys.
func hasAnyKey(obj map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

// jsonParser handles newline-delimited JSON objects with free-form schemas.
type jsonParser struct{}

func (p *jsonParser) Format() Format { return FormatJSONLines }

func (p *jsonParser) Match(line string) bool {
	_, ok := decodeObject(line)
	return ok
}

// Bonus: fraction of lines that decode to an object carrying both a
// timestamp-like key and a message-like key.
func (p *jsonParser) Bonus(lines []string) float64 {
	good := 0
	for _, l := range lines {
		obj, ok := decodeObject(l)
		if !ok {
			continue
		}
		if hasAnyKey(obj, timestampKeys) && hasAnyKey(obj, messageKeys) {
			good++
		}
	}
	return float64(good) / float64(len(lines))
}

func (p *jsonParser) Parse(line string) models.ParsedLine {
	obj, ok := decodeObject(line)
	if !ok {
		return errorLine(line)
	}
	return parseJSONObject(obj, line)
}

// consumedKeys tracks which keys the shared JSON field extraction consumes so
// the residue lands in metadata.
func parseJSONObject(obj map[string]any, raw string) models.ParsedLine {
	parsed := models.ParsedLine{
		RawTimestamp: firstString(obj, timestampKeys...),
		RawLevel:     firstString(obj, levelKeys...),
		Message:      firstString(obj, messageKeys...),
		Source:       firstString(obj, "source", "logger", "component", "module", "class", "file", "function"),
		Service:      firstString(obj, "service", "app", "application", "microservice", "container", "pod", "namespace"),
		Raw:          raw,
	}

	consumed := map[string]bool{}
	markConsumed := func(keys []string) {
		for _, k := range keys {
			if _, ok := obj[k]; ok {
				consumed[k] = true
				return
			}
		}
	}
	markConsumed(timestampKeys)
	markConsumed(levelKeys)
	markConsumed(messageKeys)
	markConsumed([]string{"source", "logger", "component", "module", "class", "file", "function"})
	markConsumed([]string{"service", "app", "application", "microservice", "container", "pod", "namespace"})

	meta := map[string]any{}
	for k, v := range obj {
		if !consumed[k] {
			meta[k] = v
		}
	}
	if len(meta) > 0 {
		parsed.Metadata = meta
	}

	enrichKubernetes(obj, &parsed)

	return parsed
}

// enrichKubernetes promotes a fluentd-style "kubernetes" sub-object into
// source/service and a whitelisted metadata entry. Lives on the shared path
// because such lines are plain JSON first: a batch where only some lines
// carry the sub-object detects as json-lines, and those lines still need the
// namespace/pod identity.
func enrichKubernetes(obj map[string]any, parsed *models.ParsedLine) {
	k8s, ok := obj["kubernetes"].(map[string]any)
	if !ok {
		return
	}

	ns := firstString(k8s, "namespace_name", "namespace")
	pod := firstString(k8s, "pod_name", "pod")
	container := firstString(k8s, "container_name", "container")

	if parsed.Source == "" && ns != "" && pod != "" {
		parsed.Source = ns + "/" + pod
	}
	if parsed.Service == "" {
		if container != "" {
			parsed.Service = container
		} else if ns != "" {
			parsed.Service = ns
		}
	}

	// Replace the raw sub-object with the whitelisted fields.
	if parsed.Metadata == nil {
		parsed.Metadata = map[string]any{}
	}
	promoted := map[string]any{}
	for _, k := range []string{"namespace_name", "namespace", "pod_name", "pod", "container_name", "container", "host", "labels"} {
		if v, ok := k8s[k]; ok {
			promoted[k] = v
		}
	}
	parsed.Metadata["kubernetes"] = promoted
}

// ParseObject treats a decoded JSON value as a one-element json-lines batch.
// Used by the ingest framer when the body is a single object or an array.
func (b *Bank) ParseObject(f Format, obj map[string]any) models.ParsedLine {
	raw, err := json.Marshal(obj)
	if err != nil {
		return errorLine(fmt.Sprintf("%v", obj))
	}

	parsed, ok := b.ParseLine(f, string(raw))
	if !ok {
		return errorLine(string(raw))
	}
	return parsed
}

package logparse

import (
	"github.com/loglens/loglens/internal/models"
)

// kubernetesParser handles JSON lines carrying a "kubernetes" metadata object
// (fluentd/fluent-bit enriched shape).
type kubernetesParser struct{}

func (p *kubernetesParser) Format() Format { return FormatKubernetes }

func (p *kubernetesParser) Match(line string) bool {
	obj, ok := decodeObject(line)
	if !ok {
		return false
	}
	_, has := obj["kubernetes"]
	return has
}

func (p *kubernetesParser) Bonus(lines []string) float64 {
	good := 0
	for _, l := range lines {
		obj, ok := decodeObject(l)
		if !ok {
			continue
		}
		k8s, ok := obj["kubernetes"].(map[string]any)
		if !ok {
			continue
		}
		if firstString(k8s, "namespace_name", "namespace") != "" || firstString(k8s, "pod_name", "pod") != "" {
			good++
		}
	}
	return float64(good) / float64(len(lines))
}

func (p *kubernetesParser) Parse(line string) models.ParsedLine {
	obj, ok := decodeObject(line)
	if !ok {
		return errorLine(line)
	}

	// Shared JSON extraction already performs the kubernetes enrichment.
	return parseJSONObject(obj, line)
}

// dockerParser handles the docker json-file log driver shape:
// {"log":"...","stream":"stdout","time":"..."}.
type dockerParser struct{}

func (p *dockerParser) Format() Format { return FormatDocker }

func (p *dockerParser) Match(line string) bool {
	obj, ok := decodeObject(line)
	if !ok {
		return false
	}
	_, hasLog := obj["log"]
	_, hasStream := obj["stream"]
	return hasLog && hasStream
}

func (p *dockerParser) Bonus(lines []string) float64 {
	good := 0
	for _, l := range lines {
		obj, ok := decodeObject(l)
		if !ok {
			continue
		}
		stream := firstString(obj, "stream")
		if (stream == "stdout" || stream == "stderr") && firstString(obj, "time") != "" {
			good++
		}
	}
	return float64(good) / float64(len(lines))
}

func (p *dockerParser) Parse(line string) models.ParsedLine {
	obj, ok := decodeObject(line)
	if !ok {
		return errorLine(line)
	}

	stream := firstString(obj, "stream")
	parsed := models.ParsedLine{
		RawTimestamp: firstString(obj, "time"),
		Message:      firstString(obj, "log"),
		Raw:          line,
		Metadata:     map[string]any{"stream": stream},
	}

	// stderr without an explicit level leans toward error output.
	if stream == "stderr" {
		parsed.RawLevel = "ERROR"
	}

	if attrs, ok := obj["attrs"].(map[string]any); ok {
		parsed.Metadata["attrs"] = attrs
		parsed.Service = firstString(attrs, "tag", "name")
	}

	return parsed
}

package logparse

import (
	"github.com/loglens/loglens/internal/models"
)

// cloudAWSParser handles CloudTrail / CloudWatch Logs JSON shapes.
type cloudAWSParser struct{}

func (p *cloudAWSParser) Format() Format { return FormatCloudAWS }

func (p *cloudAWSParser) Match(line string) bool {
	obj, ok := decodeObject(line)
	if !ok {
		return false
	}
	if _, ok := obj["eventSource"]; ok {
		return true
	}
	if _, ok := obj["eventVersion"]; ok {
		return true
	}
	_, hasTS := obj["@timestamp"]
	_, hasMsg := obj["@message"]
	return hasTS && hasMsg
}

func (p *cloudAWSParser) Bonus(lines []string) float64 {
	good := 0
	for _, l := range lines {
		obj, ok := decodeObject(l)
		if !ok {
			continue
		}
		if firstString(obj, "eventTime", "@timestamp") != "" {
			good++
		}
	}
	return float64(good) / float64(len(lines))
}

func (p *cloudAWSParser) Parse(line string) models.ParsedLine {
	obj, ok := decodeObject(line)
	if !ok {
		return errorLine(line)
	}

	parsed := models.ParsedLine{
		RawTimestamp: firstString(obj, "eventTime", "@timestamp", "timestamp", "time"),
		Message:      firstString(obj, "@message", "eventName", "message"),
		Source:       firstString(obj, "eventSource", "@log_group", "logGroup"),
		Service:      firstString(obj, "awsRegion", "eventSource"),
		Raw:          line,
		Metadata:     map[string]any{},
	}

	for _, k := range []string{"eventID", "eventType", "awsRegion", "sourceIPAddress", "userAgent", "errorCode", "errorMessage"} {
		if v, ok := obj[k]; ok {
			parsed.Metadata[k] = v
		}
	}
	if firstString(obj, "errorCode") != "" {
		parsed.RawLevel = "ERROR"
	}

	return parsed
}

// cloudAzureParser handles Azure Monitor resource log JSON shapes.
type cloudAzureParser struct{}

func (p *cloudAzureParser) Format() Format { return FormatCloudAzure }

func (p *cloudAzureParser) Match(line string) bool {
	obj, ok := decodeObject(line)
	if !ok {
		return false
	}
	_, hasRes := obj["resourceId"]
	_, hasOp := obj["operationName"]
	return hasRes || hasOp
}

func (p *cloudAzureParser) Bonus(lines []string) float64 {
	good := 0
	for _, l := range lines {
		obj, ok := decodeObject(l)
		if !ok {
			continue
		}
		if firstString(obj, "time", "timeStamp") != "" && firstString(obj, "resourceId") != "" {
			good++
		}
	}
	return float64(good) / float64(len(lines))
}

func (p *cloudAzureParser) Parse(line string) models.ParsedLine {
	obj, ok := decodeObject(line)
	if !ok {
		return errorLine(line)
	}

	parsed := models.ParsedLine{
		RawTimestamp: firstString(obj, "time", "timeStamp", "timestamp"),
		RawLevel:     firstString(obj, "level", "severityLevel"),
		Message:      firstString(obj, "operationName", "message", "resultDescription"),
		Source:       firstString(obj, "resourceId"),
		Service:      firstString(obj, "category"),
		Raw:          line,
		Metadata:     map[string]any{},
	}

	for _, k := range []string{"operationName", "resultType", "resultSignature", "correlationId", "category", "location"} {
		if v, ok := obj[k]; ok {
			parsed.Metadata[k] = v
		}
	}

	return parsed
}

// cloudGCPParser handles Cloud Logging LogEntry JSON shapes.
type cloudGCPParser struct{}

func (p *cloudGCPParser) Format() Format { return FormatCloudGCP }

func (p *cloudGCPParser) Match(line string) bool {
	obj, ok := decodeObject(line)
	if !ok {
		return false
	}
	if _, ok := obj["logName"]; ok {
		return true
	}
	_, hasInsert := obj["insertId"]
	_, hasSev := obj["severity"]
	return hasInsert && hasSev
}

func (p *cloudGCPParser) Bonus(lines []string) float64 {
	good := 0
	for _, l := range lines {
		obj, ok := decodeObject(l)
		if !ok {
			continue
		}
		if firstString(obj, "timestamp", "receiveTimestamp") != "" && firstString(obj, "severity") != "" {
			good++
		}
	}
	return float64(good) / float64(len(lines))
}

func (p *cloudGCPParser) Parse(line string) models.ParsedLine {
	obj, ok := decodeObject(line)
	if !ok {
		return errorLine(line)
	}

	msg := firstString(obj, "textPayload", "message")
	if msg == "" {
		if jp, ok := obj["jsonPayload"].(map[string]any); ok {
			msg = firstString(jp, messageKeys...)
		}
	}

	parsed := models.ParsedLine{
		RawTimestamp: firstString(obj, "timestamp", "receiveTimestamp"),
		RawLevel:     firstString(obj, "severity"),
		Message:      msg,
		Source:       firstString(obj, "logName"),
		Raw:          line,
		Metadata:     map[string]any{},
	}

	if res, ok := obj["resource"].(map[string]any); ok {
		parsed.Metadata["resource"] = res
		if labels, ok := res["labels"].(map[string]any); ok {
			parsed.Service = firstString(labels, "service_name", "container_name", "module_id")
		}
	}
	for _, k := range []string{"insertId", "trace", "spanId", "labels", "httpRequest"} {
		if v, ok := obj[k]; ok {
			parsed.Metadata[k] = v
		}
	}

	return parsed
}

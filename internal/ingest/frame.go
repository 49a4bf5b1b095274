package ingest

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/loglens/loglens/internal/models"
)

// Framing names how the request body carried its records.
type Framing string

// Recognized framings.
const (
	FramingLines  Framing = "lines"       // NDJSON or plain text, one record per line
	FramingArray  Framing = "json-array"  // one JSON array of record objects
	FramingObject Framing = "json-object" // one JSON record object
)

// Frame is a decoded request body: either raw lines or decoded JSON objects,
// never both.
type Frame struct {
	Framing Framing
	Lines   []string
	Objects []map[string]any
}

// Count returns the number of candidate records in the frame.
func (f Frame) Count() int {
	if len(f.Objects) > 0 {
		return len(f.Objects)
	}

	return len(f.Lines)
}

// DecodeBody interprets a request body. Invalid UTF-8 is replaced rather than
// rejected. Line framing is tried first; bodies that open a JSON array or a
// multi-line JSON object are decoded whole. Returns models.ErrEmptyBody or
// models.ErrBadFraming.
func DecodeBody(body []byte) (Frame, error) {
	if !utf8.Valid(body) {
		body = bytes.ToValidUTF8(body, []byte("�"))
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return Frame{}, models.ErrEmptyBody
	}

	switch text[0] {
	case '[':
		return decodeArray(text)
	case '{':
		return decodeObjectish(text)
	default:
		return Frame{Framing: FramingLines, Lines: splitLines(text)}, nil
	}
}

// decodeArray handles a body that opens a JSON array.
func decodeArray(text string) (Frame, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(text), &elems); err != nil {
		return Frame{}, models.ErrBadFraming
	}

	if len(elems) == 0 {
		return Frame{}, models.ErrEmptyBody
	}

	objects := make([]map[string]any, 0, len(elems))

	for _, elem := range elems {
		var obj map[string]any
		if err := json.Unmarshal(elem, &obj); err != nil {
			// Non-object array elements cannot be records.
			return Frame{}, models.ErrBadFraming
		}

		objects = append(objects, obj)
	}

	return Frame{Framing: FramingArray, Objects: objects}, nil
}

// decodeObjectish handles a body that opens a JSON object: NDJSON when the
// first line stands alone as JSON, otherwise one pretty-printed object.
func decodeObjectish(text string) (Frame, error) {
	lines := splitLines(text)

	if json.Valid([]byte(lines[0])) {
		return Frame{Framing: FramingLines, Lines: lines}, nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return Frame{Framing: FramingObject, Objects: []map[string]any{obj}}, nil
	}

	// A lone malformed line is still line framing; the parser stores it as an
	// error record. Multi-line bodies here are broken pretty-printed JSON.
	if len(lines) == 1 {
		return Frame{Framing: FramingLines, Lines: lines}, nil
	}

	return Frame{}, models.ErrBadFraming
}

// splitLines splits on newlines and drops blank lines.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))

	for _, line := range raw {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		lines = append(lines, line)
	}

	return lines
}

package ingest

import (
	"errors"
	"testing"

	"github.com/loglens/loglens/internal/models"
)

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantFraming Framing
		wantCount   int
		wantErr     error
	}{
		{
			"ndjson",
			"{\"msg\":\"a\"}\n{\"msg\":\"b\"}\n",
			FramingLines, 2, nil,
		},
		{
			"plain text lines",
			"Jan 15 10:30:45 host app: one\nJan 15 10:30:46 host app: two",
			FramingLines, 2, nil,
		},
		{
			"blank lines skipped",
			"line one\n\n\nline two\n",
			FramingLines, 2, nil,
		},
		{
			"json array",
			`[{"msg":"a"},{"msg":"b"},{"msg":"c"}]`,
			FramingArray, 3, nil,
		},
		{
			"single json object one line",
			`{"msg":"a"}`,
			FramingLines, 1, nil,
		},
		{
			"pretty printed object",
			"{\n  \"msg\": \"a\",\n  \"level\": \"info\"\n}",
			FramingObject, 1, nil,
		},
		{
			"empty body",
			"",
			"", 0, models.ErrEmptyBody,
		},
		{
			"whitespace only",
			"  \n\t\n",
			"", 0, models.ErrEmptyBody,
		},
		{
			"empty array",
			"[]",
			"", 0, models.ErrEmptyBody,
		},
		{
			"broken array",
			`[{"msg":"a"},`,
			"", 0, models.ErrBadFraming,
		},
		{
			"array of scalars",
			`[1, 2, 3]`,
			"", 0, models.ErrBadFraming,
		},
		{
			"broken multiline object",
			"{\n  \"msg\": \"a\"",
			"", 0, models.ErrBadFraming,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := DecodeBody([]byte(tt.body))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}

			if err != nil {
				return
			}

			if frame.Framing != tt.wantFraming {
				t.Errorf("Framing = %q, want %q", frame.Framing, tt.wantFraming)
			}
			if frame.Count() != tt.wantCount {
				t.Errorf("Count = %d, want %d", frame.Count(), tt.wantCount)
			}
		})
	}
}

func TestDecodeBodyReplacesInvalidUTF8(t *testing.T) {
	frame, err := DecodeBody([]byte("hello \xff\xfe world"))
	if err != nil {
		t.Fatalf("err = %v", err)
	}

	if len(frame.Lines) != 1 {
		t.Fatalf("lines = %d", len(frame.Lines))
	}

	for _, r := range frame.Lines[0] {
		if r == 0xFFFD {
			return
		}
	}

	t.Errorf("expected replacement rune in %q", frame.Lines[0])
}

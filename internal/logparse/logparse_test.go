package logparse_test

import (
	"strings"
	"testing"

	"github.com/loglens/loglens/internal/logparse"
)

func TestDetect(t *testing.T) {
	bank := logparse.NewBank()

	tests := []struct {
		name  string
		lines []string
		want  logparse.Format
	}{
		{
			"json lines",
			[]string{
				`{"time":"2024-01-15T10:30:45Z","level":"error","message":"db timeout"}`,
				`{"time":"2024-01-15T10:30:46Z","level":"info","message":"ok"}`,
			},
			logparse.FormatJSONLines,
		},
		{
			"kubernetes enriched",
			[]string{
				`{"time":"2024-01-15T10:30:45Z","message":"x","kubernetes":{"namespace_name":"ns1","pod_name":"p1"}}`,
				`{"time":"2024-01-15T10:30:46Z","message":"y","kubernetes":{"namespace_name":"ns1","pod_name":"p2"}}`,
			},
			logparse.FormatKubernetes,
		},
		{
			"docker json-file",
			[]string{
				`{"log":"hello\n","stream":"stdout","time":"2024-01-15T10:30:45.123Z"}`,
				`{"log":"oops\n","stream":"stderr","time":"2024-01-15T10:30:46.456Z"}`,
			},
			logparse.FormatDocker,
		},
		{
			"syslog 3164",
			[]string{
				`<34>Jan 15 10:30:45 host1 sshd[123]: Failed password for root`,
				`<13>Jan 15 10:30:46 host1 cron[456]: job started`,
			},
			logparse.FormatSyslog,
		},
		{
			"apache combined",
			[]string{
				`127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /index.html HTTP/1.0" 200 2326 "http://ref" "Mozilla/4.08"`,
				`127.0.0.1 - - [10/Oct/2000:13:55:37 -0700] "POST /api HTTP/1.1" 500 120 "-" "curl/7.1"`,
			},
			logparse.FormatApacheCombined,
		},
		{
			"apache common",
			[]string{
				`127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /index.html HTTP/1.0" 200 2326`,
				`10.0.0.2 - - [10/Oct/2000:13:55:37 -0700] "GET /a HTTP/1.0" 404 209`,
			},
			logparse.FormatApacheCommon,
		},
		{
			"nginx error",
			[]string{
				`2024/01/15 10:30:45 [error] 1234#5678: *90 connect() failed while connecting to upstream`,
				`2024/01/15 10:30:46 [warn] 1234#5678: low worker connections`,
			},
			logparse.FormatNginxError,
		},
		{
			"gcp log entries",
			[]string{
				`{"timestamp":"2024-01-15T10:30:45Z","severity":"ERROR","insertId":"a1","logName":"projects/p/logs/run","textPayload":"boom"}`,
				`{"timestamp":"2024-01-15T10:30:46Z","severity":"INFO","insertId":"a2","logName":"projects/p/logs/run","textPayload":"ok"}`,
			},
			logparse.FormatCloudGCP,
		},
		{
			"plain text falls back to generic",
			[]string{
				`2024-01-15 10:30:45 INFO something happened`,
				`totally unstructured line`,
			},
			logparse.FormatGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := bank.Detect(tt.lines)
			if det.Format != tt.want {
				t.Errorf("Detect() = %s (conf %.2f), want %s", det.Format, det.Confidence, tt.want)
			}
		})
	}
}

func TestDetectSkipsEmptyLines(t *testing.T) {
	bank := logparse.NewBank()
	det := bank.Detect([]string{"", "  ", `{"time":"2024-01-15T10:30:45Z","message":"x"}`, ""})
	if det.Total != 1 {
		t.Errorf("Total = %d, want 1 (empty lines skipped)", det.Total)
	}
	if det.Format != logparse.FormatJSONLines {
		t.Errorf("Format = %s, want json-lines", det.Format)
	}
}

func TestParseLineEmptySkipped(t *testing.T) {
	bank := logparse.NewBank()
	if _, ok := bank.ParseLine(logparse.FormatJSONLines, "   "); ok {
		t.Error("whitespace-only line should be skipped, not parsed")
	}
}

func TestParseLineBadJSONBecomesErrorRecord(t *testing.T) {
	bank := logparse.NewBank()
	parsed, ok := bank.ParseLine(logparse.FormatJSONLines, "not-json")
	if !ok {
		t.Fatal("non-empty line must produce a record")
	}
	if !parsed.ParseError {
		t.Error("expected ParseError to be set")
	}
	if parsed.Metadata["parse_error"] != true {
		t.Error("expected metadata.parse_error=true")
	}
	if !strings.Contains(parsed.Message, "not-json") {
		t.Errorf("message %q should contain the original text", parsed.Message)
	}
	if parsed.RawLevel != "ERROR" {
		t.Errorf("RawLevel = %q, want ERROR", parsed.RawLevel)
	}
}

func TestParseLineTruncatesOversize(t *testing.T) {
	bank := logparse.NewBank()
	line := "2024-01-15 10:30:45 INFO " + strings.Repeat("x", 2<<20)

	parsed, ok := bank.ParseLine(logparse.FormatGeneric, line)
	if !ok {
		t.Fatal("expected a record")
	}
	if parsed.Metadata["truncated"] != true {
		t.Error("expected metadata.truncated=true")
	}
	if len(parsed.Message) > 1<<20 {
		t.Errorf("message length %d exceeds the 1 MiB cap", len(parsed.Message))
	}
}

func TestJSONLinesBatchKeepsKubernetesIdentity(t *testing.T) {
	bank := logparse.NewBank()
	lines := []string{
		`{"time":"2024-01-15T10:30:45Z","level":"error","message":"db timeout","kubernetes":{"namespace_name":"ns1","pod_name":"p1"}}`,
		`{"time":"2024-01-15T10:30:46Z","level":"info","message":"ok"}`,
		`{"time":"2024-01-15T10:30:47Z","level":"warn","message":"slow"}`,
	}

	// Only one of three lines carries the kubernetes sub-object, so plain
	// json-lines wins detection.
	det := bank.Detect(lines)
	if det.Format != logparse.FormatJSONLines {
		t.Fatalf("Format = %s, want json-lines", det.Format)
	}

	first, ok := bank.ParseLine(det.Format, lines[0])
	if !ok {
		t.Fatal("expected a record for the first line")
	}
	if first.Source != "ns1/p1" {
		t.Errorf("Source = %q, want ns1/p1", first.Source)
	}

	k8s, ok := first.Metadata["kubernetes"].(map[string]any)
	if !ok {
		t.Fatal("expected promoted kubernetes metadata")
	}
	if k8s["namespace_name"] != "ns1" || k8s["pod_name"] != "p1" {
		t.Errorf("promoted kubernetes = %v", k8s)
	}

	for i, line := range lines[1:] {
		parsed, ok := bank.ParseLine(det.Format, line)
		if !ok {
			t.Fatalf("line %d: expected a record", i+1)
		}
		if parsed.Source != "" {
			t.Errorf("line %d: Source = %q, want empty", i+1, parsed.Source)
		}
	}
}

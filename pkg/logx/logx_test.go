package logx

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"DEBUG", LevelDebug},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLevelFiltersMessages(t *testing.T) {
	buf := capture(t)

	Debug("hidden")
	Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message emitted at info level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("info message not emitted")
	}
}

func TestWithFieldsEmitsStructuredJSON(t *testing.T) {
	buf := capture(t)

	WithFields(Fields{"job_id": "abc", "queue": "default"}).Info("enqueued")

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if rec["job_id"] != "abc" || rec["queue"] != "default" {
		t.Errorf("fields missing from record: %v", rec)
	}
	if rec["message"] != "enqueued" {
		t.Errorf("message = %v", rec["message"])
	}
}

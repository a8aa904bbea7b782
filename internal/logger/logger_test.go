package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_WritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "deployer", nil)

	log.Info(context.Background(), "contract deployed", "address", "0xABC")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["service"] != "deployer" {
		t.Errorf("service = %v, want deployer", rec["service"])
	}
	if rec["msg"] != "contract deployed" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["address"] != "0xABC" {
		t.Errorf("address = %v", rec["address"])
	}
	if file, _ := rec["file"].(string); !strings.HasPrefix(file, "logger_test.go:") {
		t.Errorf("file = %q, want logger_test.go:<line>", file)
	}
}

func TestLogger_RespectsMinLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "deployer", nil)

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}

	log.Warn(context.Background(), "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn record, got %q", buf.String())
	}
}

func TestLogger_AddsTraceID(t *testing.T) {
	var buf bytes.Buffer
	traceFn := func(ctx context.Context) string { return "abc123" }
	log := New(&buf, LevelInfo, "deployer", traceFn)

	log.Error(context.Background(), "boom")

	if !strings.Contains(buf.String(), `"trace_id":"abc123"`) {
		t.Fatalf("expected trace_id in %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

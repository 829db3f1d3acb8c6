package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		env  string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Setenv("LOG_LEVEL", tt.env)
		if got := LogLevel(); got != tt.want {
			t.Errorf("LOG_LEVEL=%q: expected %v, got %v", tt.env, tt.want, got)
		}
	}
}

func TestNewLogger_Attributes(t *testing.T) {
	t.Setenv("LOG_LEVEL", "INFO")
	t.Setenv("LOG_FORMAT", "json")

	var buf bytes.Buffer
	logger := WithFlowName(WithCompilationID(NewLogger(&buf), "c-1"), "demo")
	logger.Info("compiled")

	out := buf.String()
	for _, want := range []string{`"compilation_id":"c-1"`, `"flow_name":"demo"`, `"msg":"compiled"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %s should contain %s", out, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger for empty context")
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("expected logger from context")
	}
}

func TestObserveCompilation(t *testing.T) {
	ObserveCompilation(SourceWorker, time.Millisecond, "", "CycleDetected")
	ObserveCompilation(SourceWorker, time.Millisecond, "fn main() {\n}\n", "")
	ObserveCacheLookup(true)
	ObserveReaped(1)
	ObserveHTTPRequest("GET", 200)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}

	for _, want := range []string{
		"flust_compilations_total",
		"flust_compile_duration_seconds",
		"flust_generated_lines",
		"flust_compile_cache_lookups_total",
		"flust_compilations_reaped_total",
		"flust_api_http_requests_total",
	} {
		if !names[want] {
			t.Errorf("metric %s is not registered", want)
		}
	}
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{200: "2xx", 201: "2xx", 304: "3xx", 404: "4xx", 422: "4xx", 500: "5xx"}
	for status, want := range cases {
		if got := statusClass(status); got != want {
			t.Errorf("statusClass(%d) = %s, want %s", status, got, want)
		}
	}
}

package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line as JSON: %v\nLine: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_IncludesStoreFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).WithStore(StoreMeta{
		Name:   "tempcache",
		Root:   "/tmp/tempcache",
		Prefix: "fib",
	})

	logger.Info(context.Background(), "hello")

	entries := decodeLogLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e["store.name"] != "tempcache" {
		t.Errorf("store.name = %v", e["store.name"])
	}
	if e["store.root"] != "/tmp/tempcache" {
		t.Errorf("store.root = %v", e["store.root"])
	}
	if e["store.prefix"] != "fib" {
		t.Errorf("store.prefix = %v", e["store.prefix"])
	}
	if e["level"] != "info" || e["msg"] != "hello" {
		t.Errorf("unexpected level/msg: %v", e)
	}
	if _, ok := e["timestamp"].(string); !ok {
		t.Error("expected timestamp field")
	}
}

func TestLogger_OmitsEmptyPrefix(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).WithStore(StoreMeta{Name: "x"}).Info(context.Background(), "m")

	e := decodeLogLines(t, &buf)[0]
	if _, ok := e["store.prefix"]; ok {
		t.Error("store.prefix should be omitted when empty")
	}
}

func TestLogger_WithStoreDoesNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerWithWriter("info", &buf)
	_ = parent.WithStore(StoreMeta{Name: "child"})

	parent.Info(context.Background(), "parent")

	e := decodeLogLines(t, &buf)[0]
	if _, ok := e["store.name"]; ok {
		t.Error("parent logger picked up child attributes")
	}
}

func TestLogger_ErrorValuesRendered(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).Warn(context.Background(), "load failed",
		Field{Key: "error", Value: errors.New("unexpected EOF")},
	)

	e := decodeLogLines(t, &buf)[0]
	if e["error"] != "unexpected EOF" {
		t.Errorf("error = %v, want %q", e["error"], "unexpected EOF")
	}
	if e["level"] != "warn" {
		t.Errorf("level = %v", e["level"])
	}
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("debug", &buf).Debug(context.Background(), "stored",
		Field{Key: "value", Value: "cached payload"},
		Field{Key: "token", Value: "abc"},
		Field{Key: "path", Value: "/tmp/x.tmp"},
	)

	out := buf.String()
	if strings.Contains(out, "cached payload") || strings.Contains(out, "abc") {
		t.Errorf("sensitive values leaked: %s", out)
	}
	e := decodeLogLines(t, &buf)[0]
	if e["value"] != "[REDACTED]" || e["token"] != "[REDACTED]" {
		t.Errorf("expected redaction, got %v", e)
	}
	if e["path"] != "/tmp/x.tmp" {
		t.Errorf("path = %v", e["path"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"debug", "info", "warn", "error"}},
		{"info", []string{"info", "warn", "error"}},
		{"warn", []string{"warn", "error"}},
		{"error", []string{"error"}},
		{"", []string{"info", "warn", "error"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLoggerWithWriter(tt.level, &buf)
			ctx := context.Background()
			l.Debug(ctx, "d")
			l.Info(ctx, "i")
			l.Warn(ctx, "w")
			l.Error(ctx, "e")

			entries := decodeLogLines(t, &buf)
			if len(entries) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(entries), len(tt.want))
			}
			for i, e := range entries {
				if e["level"] != tt.want[i] {
					t.Errorf("entry %d level = %v, want %s", i, e["level"], tt.want[i])
				}
			}
		})
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	ctx := context.Background()
	l.Info(ctx, "x")
	l.WithStore(StoreMeta{Name: "y"}).Error(ctx, "z")
}

func TestLogger_KeyOrder(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).WithStore(StoreMeta{Name: "n", Root: "/r"}).Info(context.Background(), "m",
		Field{Key: "path", Value: "/r/a.tmp"},
		Field{Key: "op", Value: "load"},
	)

	line := buf.String()
	order := []string{`"timestamp"`, `"level"`, `"msg"`, `"store.name"`, `"store.root"`, `"path"`, `"op"`}
	last := -1
	for _, key := range order {
		i := strings.Index(line, key)
		if i <= last {
			t.Fatalf("key %s out of order in %s", key, line)
		}
		last = i
	}
}

func TestLogger_LaterFieldReplacesEarlier(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).WithStore(StoreMeta{Name: "n", Root: "/r"}).Info(context.Background(), "m",
		Field{Key: "op", Value: "load"},
		Field{Key: "op", Value: "save"},
		Field{Key: "store.root", Value: "/other"},
	)

	if n := strings.Count(buf.String(), `"op"`); n != 1 {
		t.Fatalf("op appears %d times: %s", n, buf.String())
	}
	e := decodeLogLines(t, &buf)[0]
	if e["op"] != "save" || e["store.root"] != "/other" {
		t.Errorf("unexpected entry: %v", e)
	}
}

func TestLogger_TraceCorrelation(t *testing.T) {
	tid, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	sid, _ := trace.SpanIDFromHex("0102030405060708")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: tid,
		SpanID:  sid,
	}))

	var buf bytes.Buffer
	l := NewLoggerWithWriter("info", &buf)
	l.Info(ctx, "with span")
	l.Info(context.Background(), "without span")

	entries := decodeLogLines(t, &buf)
	if entries[0]["trace_id"] != tid.String() || entries[0]["span_id"] != sid.String() {
		t.Errorf("missing trace correlation: %v", entries[0])
	}
	if _, ok := entries[1]["trace_id"]; ok {
		t.Errorf("unexpected trace_id: %v", entries[1])
	}
}

func TestLogger_DropsUnencodableRecord(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("info", &buf)
	l.Info(context.Background(), "bad", Field{Key: "ch", Value: make(chan int)})
	l.Info(context.Background(), "good")

	entries := decodeLogLines(t, &buf)
	if len(entries) != 1 || entries[0]["msg"] != "good" {
		t.Errorf("entries = %v", entries)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, name := range []string{"debug", "info", "warn", "error"} {
		if got := ParseLogLevel(name).String(); got != name {
			t.Errorf("ParseLogLevel(%q) = %s", name, got)
		}
	}
	if ParseLogLevel("verbose") != LevelInfo {
		t.Error("unknown level should map to info")
	}
	if LogLevel(42).String() != "info" {
		t.Error("out of range level should print as info")
	}
}

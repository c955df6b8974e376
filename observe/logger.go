package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel orders log records by severity.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// ParseLogLevel maps a level name to its LogLevel. Unknown names and the
// empty string map to LevelInfo.
func ParseLogLevel(s string) LogLevel {
	if i := slices.Index(levelNames[:], s); i >= 0 {
		return LogLevel(i)
	}
	return LevelInfo
}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return levelNames[LevelInfo]
	}
	return levelNames[l]
}

// jsonLogger writes one JSON object per line. Every line starts with
// timestamp, level and msg, followed by the store attributes, the trace
// correlation of ctx and then the call fields in the order given. A later
// key replaces an earlier one in place.
type jsonLogger struct {
	min   LogLevel
	out   io.Writer
	mu    *sync.Mutex
	store []Field
	now   func() time.Time
}

// NewLogger returns a JSON line logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter returns a JSON line logger writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &jsonLogger{
		min: ParseLogLevel(level),
		out: w,
		mu:  &sync.Mutex{},
		now: time.Now,
	}
}

// WithStore returns a child logger that stamps every line with the store's
// identity. Children share the parent's writer lock so lines never interleave.
func (l *jsonLogger) WithStore(meta StoreMeta) Logger {
	attrs := []Field{
		{Key: "store.name", Value: meta.Name},
		{Key: "store.root", Value: meta.Root},
	}
	if meta.Prefix != "" {
		attrs = append(attrs, Field{Key: "store.prefix", Value: meta.Prefix})
	}

	child := *l
	child.store = attrs
	return &child
}

func (l *jsonLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, LevelDebug, msg, fields)
}

func (l *jsonLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, LevelInfo, msg, fields)
}

func (l *jsonLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, LevelWarn, msg, fields)
}

func (l *jsonLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, LevelError, msg, fields)
}

func (l *jsonLogger) write(ctx context.Context, level LogLevel, msg string, fields []Field) {
	if level < l.min {
		return
	}

	rec := make([]Field, 0, 5+len(l.store)+len(fields))
	rec = append(rec,
		Field{Key: "timestamp", Value: l.now().UTC().Format(time.RFC3339Nano)},
		Field{Key: "level", Value: level.String()},
		Field{Key: "msg", Value: msg},
	)
	rec = append(rec, l.store...)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		rec = append(rec,
			Field{Key: "trace_id", Value: sc.TraceID().String()},
			Field{Key: "span_id", Value: sc.SpanID().String()},
		)
	}
	for _, f := range fields {
		rec = setField(rec, f.Key, renderValue(f))
	}

	line, ok := encodeRecord(rec)
	if !ok {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(line)
}

// setField replaces the value of key in rec, or appends it.
func setField(rec []Field, key string, v any) []Field {
	if i := slices.IndexFunc(rec, func(f Field) bool { return f.Key == key }); i >= 0 {
		rec[i].Value = v
		return rec
	}
	return append(rec, Field{Key: key, Value: v})
}

func renderValue(f Field) any {
	if isRedactedField(f.Key) {
		return "[REDACTED]"
	}
	if err, ok := f.Value.(error); ok {
		return err.Error()
	}
	return f.Value
}

// encodeRecord renders rec as a JSON object plus newline. A record holding
// a value JSON cannot encode is dropped.
func encodeRecord(rec []Field) ([]byte, bool) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range rec {
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, false
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, false
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString("}\n")
	return buf.Bytes(), true
}

func isRedactedField(key string) bool {
	return slices.Contains(RedactedFields, key)
}

var _ Logger = (*jsonLogger)(nil)

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// TestLogger records every entry as one JSON line so tests can check what a
// writer or a conversion reported. Loggers derived with With share the
// recording.
type TestLogger struct {
	mu     *sync.Mutex
	buf    *bytes.Buffer
	level  Level
	fields []any
}

// NewTestLogger returns a recording logger and the buffer it writes to.
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &TestLogger{mu: &sync.Mutex{}, buf: buf, level: level}, buf
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.record(LevelDebug, "DEBUG", msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any) { t.record(LevelInfo, "INFO", msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any) { t.record(LevelWarn, "WARN", msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.record(LevelError, "ERROR", msg, fields) }

func (t *TestLogger) With(fields ...any) Logger {
	return &TestLogger{
		mu:     t.mu,
		buf:    t.buf,
		level:  t.level,
		fields: append(append([]any(nil), t.fields...), fields...),
	}
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return t.level <= level
}

func (t *TestLogger) record(level Level, name, msg string, fields []any) {
	if level < t.level {
		return
	}
	entry := map[string]any{"level": name, "message": msg}
	kv := append(append([]any(nil), t.fields...), fields...)
	for i := 0; i+1 < len(kv); i += 2 {
		v := kv[i+1]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[fmt.Sprint(kv[i])] = v
	}
	line, err := json.Marshal(entry)
	if err != nil {
		line = []byte(fmt.Sprintf(`{"level":%q,"message":%q}`, name, msg))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(line)
	t.buf.WriteByte('\n')
}

// Entries decodes the recorded lines. Numbers come back as float64.
func (t *TestLogger) Entries() []map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(t.buf.String()), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) == nil {
			out = append(out, entry)
		}
	}
	return out
}

// Messages returns the entries whose message equals msg.
func (t *TestLogger) Messages(msg string) []map[string]any {
	var out []map[string]any
	for _, e := range t.Entries() {
		if e["message"] == msg {
			out = append(out, e)
		}
	}
	return out
}

// ContainsMessage reports whether any entry has the message msg.
func (t *TestLogger) ContainsMessage(msg string) bool {
	return len(t.Messages(msg)) > 0
}

// ContainsField reports whether any entry carries key with value.
func (t *TestLogger) ContainsField(key string, value any) bool {
	for _, e := range t.Entries() {
		if v, ok := e[key]; ok && v == value {
			return true
		}
	}
	return false
}

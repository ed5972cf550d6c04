package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/YuminosukeSato/foldfile/pkg/errors"
)

// TestLoggerInterface tests the TestLogger implementation of Logger
func TestLoggerInterface(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationSplit)
	testLogger.Warn("warning message", TensorNameKey, "clusters")
	testLogger.Error("error message", ErrorKey, fmt.Errorf("test error"))

	if buffer.String() == "" {
		t.Fatal("Expected log output, got empty string")
	}

	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		if !testLogger.ContainsMessage(msg) {
			t.Errorf("%q not found in output", msg)
		}
	}

	if !testLogger.ContainsField("key1", "value1") {
		t.Error("Expected field key1=value1 not found")
	}
	if !testLogger.ContainsField("number", 42.0) { // JSON unmarshaling converts numbers to float64
		t.Error("Expected field number=42 not found")
	}
	if !testLogger.ContainsField(ErrorKey, "test error") {
		t.Error("Expected error field to hold the error message")
	}
}

// TestLoggerWith tests the With method for context-aware logging
func TestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	foldLogger := testLogger.With(
		ComponentKey, "store.writer",
		FoldIndexKey, 3,
	)
	foldLogger.Info("Fold written", FoldEventsKey, 15)

	assert.True(t, testLogger.ContainsField(ComponentKey, "store.writer"))
	assert.True(t, testLogger.ContainsField(FoldIndexKey, 3.0))
	assert.True(t, testLogger.ContainsField(FoldEventsKey, 15.0))
}

// TestLoggerEnabled tests the Enabled method
func TestLoggerEnabled(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	ctx := context.Background()

	assert.True(t, testLogger.Enabled(ctx, LevelInfo))
	assert.True(t, testLogger.Enabled(ctx, LevelError))
	assert.False(t, testLogger.Enabled(ctx, LevelDebug))

	testLogger.Debug("this should not appear")
	testLogger.Info("this should appear")

	assert.False(t, testLogger.ContainsMessage("this should not appear"))
	assert.True(t, testLogger.ContainsMessage("this should appear"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)
	defer SetOutput(nopWriter{})

	logger := GetLoggerWithName("store.writer").With(StorePathKey, "train.h5")
	logger.Debug("hidden")
	logger.Info("Fold written", FoldIndexKey, 1, FoldEventsKey, 15)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Fold written", entry["message"])
	assert.Equal(t, "store.writer", entry[ComponentKey])
	assert.Equal(t, "train.h5", entry[StorePathKey])
	assert.Equal(t, 1.0, entry[FoldIndexKey])
	assert.Equal(t, 15.0, entry[FoldEventsKey])

	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), LevelWarn))
}

func TestZerologLoggerErrorStacktrace(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelDebug)
	defer SetOutput(nopWriter{})

	err := ferrors.NewIOError("open source", "events.jsonl", fmt.Errorf("no such file"))
	GetLogger().Error("Conversion failed", ErrorKey, err)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0]["level"])
	assert.Contains(t, entries[0][ErrorKey], "no such file")
	assert.NotEmpty(t, entries[0][StacktraceKey])
}

func TestWarningRouter(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)
	InstallWarningRouter()
	defer func() {
		ferrors.SetZerologWarnFunc(nil)
		SetOutput(nopWriter{})
	}()

	ferrors.Warn(ferrors.NewStratificationWarning(1, 1, 2))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "warnings", entries[0][ComponentKey])
	warning, ok := entries[0]["warning"].(map[string]interface{})
	require.True(t, ok, "warning should be logged as an object")
	assert.Equal(t, "StratificationWarning", warning["type"])
	assert.Equal(t, 2.0, warning["n_folds"])
}

func TestSetupRejectsUnknownSettings(t *testing.T) {
	err := Setup("loud", "json")
	var verr *ferrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "logging.level", verr.ParamName)

	err = Setup("info", "xml")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "logging.format", verr.ParamName)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	ferrors "github.com/YuminosukeSato/foldfile/pkg/errors"
)

// ZerologLogger implements Logger on top of a zerolog.Logger.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) {
	l.emit(l.zl.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) {
	l.emit(l.zl.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) {
	l.emit(l.zl.Warn(), msg, fields)
}

// Error implements Logger.Error.
func (l *ZerologLogger) Error(msg string, fields ...any) {
	l.emit(l.zl.Error(), msg, fields)
}

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		if err, ok := fields[i+1].(error); ok {
			ctx = ctx.Str(key, err.Error())
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.zl.GetLevel() <= toZerologLevel(level)
}

func (l *ZerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		switch v := fields[i+1].(type) {
		case zerolog.LogObjectMarshaler:
			e = e.Object(key, v)
			if err, ok := v.(error); ok {
				if st := extractStacktrace(err); st != "" {
					e = e.Str(StacktraceKey, st)
				}
			}
		case error:
			e = e.Str(key, v.Error())
			if st := extractStacktrace(v); st != "" {
				e = e.Str(StacktraceKey, st)
			}
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// zerologProvider is the package-level LoggerProvider.
type zerologProvider struct {
	mu     sync.RWMutex
	out    io.Writer
	format string
	level  Level
	root   zerolog.Logger
}

var defaultProvider = newZerologProvider(os.Stderr)

func newZerologProvider(out io.Writer) *zerologProvider {
	p := &zerologProvider{out: out, format: "json", level: LevelInfo}
	p.rebuild()
	return p
}

func (p *zerologProvider) rebuild() {
	w := p.out
	if p.format == "console" {
		w = zerolog.ConsoleWriter{Out: p.out, TimeFormat: time.RFC3339}
	}
	p.root = zerolog.New(w).Level(toZerologLevel(p.level)).With().Timestamp().Logger()
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *zerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &ZerologLogger{zl: p.root}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &ZerologLogger{zl: p.root.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *zerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.rebuild()
}

func (p *zerologProvider) setOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = w
	p.rebuild()
}

func (p *zerologProvider) setFormat(format string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.format = format
	p.rebuild()
}

// GetLogger returns the default zerolog-backed logger.
func GetLogger() Logger {
	return defaultProvider.GetLogger()
}

// GetLoggerWithName returns the default logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	return defaultProvider.GetLoggerWithName(name)
}

// SetLevel sets the minimum level of loggers obtained afterwards.
func SetLevel(level Level) {
	defaultProvider.SetLevel(level)
}

// SetOutput redirects loggers obtained afterwards to w.
func SetOutput(w io.Writer) {
	defaultProvider.setOutput(w)
}

// SetFormat selects "json" (default) or "console" output.
func SetFormat(format string) {
	defaultProvider.setFormat(format)
}

// Setup configures the default provider from textual settings and routes
// pkg/errors warnings to it.
func Setup(level, format string) error {
	lvl, ok := ParseLevel(level)
	if !ok {
		return ferrors.NewValidationError("logging.level", "unknown log level", level)
	}
	switch format {
	case "", "json", "console":
	default:
		return ferrors.NewValidationError("logging.format", "must be json or console", format)
	}
	if format == "" {
		format = "json"
	}
	defaultProvider.mu.Lock()
	defaultProvider.level = lvl
	defaultProvider.format = format
	defaultProvider.rebuild()
	defaultProvider.mu.Unlock()

	InstallWarningRouter()
	return nil
}

// InstallWarningRouter sends pkg/errors.Warn to the default logger at WARN level.
func InstallWarningRouter() {
	ferrors.SetZerologWarnFunc(func(w error) {
		l := GetLoggerWithName("warnings")
		if obj, ok := w.(zerolog.LogObjectMarshaler); ok {
			l.Warn(w.Error(), "warning", obj)
			return
		}
		l.Warn(w.Error())
	})
}

package log

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// zerologLogger adapts zerolog.Logger to Logger.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog logger.
func NewZerologLogger(zl zerolog.Logger) Logger {
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	l.emit(l.zl.Debug(), msg, fields)
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	l.emit(l.zl.Info(), msg, fields)
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	l.emit(l.zl.Warn(), msg, fields)
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	e := l.zl.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = e.Err(err)
			if m, ok := err.(zerolog.LogObjectMarshaler); ok {
				e = e.Object("error_detail", m)
			}
			fields = fields[1:]
		}
	}
	l.emit(e, msg, fields)
}

func (l *zerologLogger) With(fields ...any) Logger {
	return &zerologLogger{zl: l.zl.With().Fields(normalizeFields(fields)).Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

func (l *zerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	e.Fields(normalizeFields(fields)).Msg(msg)
}

// normalizeFields drops a dangling key and stringifies non-string keys.
func normalizeFields(fields []any) []interface{} {
	if len(fields)%2 == 1 {
		fields = fields[:len(fields)-1]
	}
	out := make([]interface{}, 0, len(fields))
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		out = append(out, key, fields[i+1])
	}
	return out
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

// zerologProvider is the process-wide LoggerProvider.
type zerologProvider struct {
	mu     sync.RWMutex
	base   zerolog.Logger
	level  Level
	output io.Writer
	format string
}

var provider = newZerologProvider(os.Stderr, "console", LevelInfo)

func newZerologProvider(w io.Writer, format string, level Level) *zerologProvider {
	p := &zerologProvider{output: w, format: format, level: level}
	p.rebuild()
	return p
}

func (p *zerologProvider) rebuild() {
	var w io.Writer = p.output
	if strings.EqualFold(p.format, "console") {
		w = zerolog.ConsoleWriter{Out: p.output, TimeFormat: time.RFC3339}
	}
	p.base = zerolog.New(w).Level(toZerologLevel(p.level)).With().Timestamp().Logger()
}

func (p *zerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base}
}

func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger()}
}

func (p *zerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.rebuild()
}

func (p *zerologProvider) setOutput(w io.Writer, format string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
	p.format = format
	p.rebuild()
}

// GetLogger returns the default logger.
func GetLogger() Logger {
	return provider.GetLogger()
}

// GetLoggerWithName returns a logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	return provider.GetLoggerWithName(name)
}

// SetLevel sets the minimum level for loggers obtained afterwards.
func SetLevel(level Level) {
	provider.SetLevel(level)
}

// SetOutput redirects loggers obtained afterwards. format is "console" or "json".
func SetOutput(w io.Writer, format string) {
	provider.setOutput(w, format)
}

// SetupLogger configures the default provider and routes library warnings
// through it.
func SetupLogger(level, format string) {
	provider.setOutput(os.Stderr, format)
	provider.SetLevel(ParseLevel(level))

	ssErrors.SetZerologWarnFunc(func(w error) {
		e := provider.GetLogger().(*zerologLogger).zl.Warn()
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			e = e.Object("warning", m)
		}
		e.Msg(w.Error())
	})
}

// Package logging provides the structured JSON logger shared by the tuning
// service and the CLI, plus the bridge that lets the numeric packages log
// through zap onto the same output.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"
)

// LogLevel is the severity of a log entry.
type LogLevel string

const (
	DebugLevel LogLevel = "DEBUG"
	InfoLevel  LogLevel = "INFO"
	WarnLevel  LogLevel = "WARN"
	ErrorLevel LogLevel = "ERROR"
	// FatalLevel logs the entry and then exits the process.
	FatalLevel LogLevel = "FATAL"
)

var levelRank = map[LogLevel]int{
	DebugLevel: 0,
	InfoLevel:  1,
	WarnLevel:  2,
	ErrorLevel: 3,
	FatalLevel: 4,
}

// Logger writes JSON log entries with a minimum level and a set of bound
// fields. Loggers are immutable; WithFields derives new ones.
type Logger struct {
	level  LogLevel
	output io.Writer
	fields map[string]interface{}
}

// New creates a Logger writing entries at or above level to output.
func New(level LogLevel, output io.Writer) *Logger {
	return &Logger{
		level:  level,
		output: output,
		fields: make(map[string]interface{}),
	}
}

// WithFields returns a Logger that adds the given fields to every entry.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{level: l.level, output: l.output, fields: merged}
}

// WithField returns a Logger with one extra bound field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithError returns a Logger with the error field set.
func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err.Error())
}

func (l *Logger) shouldLog(level LogLevel) bool {
	rank, ok := levelRank[level]
	if !ok {
		return false
	}
	current, ok := levelRank[l.level]
	if !ok {
		return false
	}
	return rank >= current
}

func (l *Logger) log(level LogLevel, msg string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file, line = "???", 0
	} else if parts := strings.Split(file, "/"); len(parts) > 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}

	entry := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"message":   msg,
		"caller":    fmt.Sprintf("%s:%d", file, line),
	}
	for k, v := range l.fields {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = v
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.output, "%s [%s] %s: %+v\n",
			time.Now().Format(time.RFC3339), level, msg, fields)
		return
	}
	data = append(data, '\n')
	_, _ = l.output.Write(data)

	if level == FatalLevel {
		os.Exit(1)
	}
}

func first(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs a message at DebugLevel.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(DebugLevel, msg, first(fields))
}

// Info logs a message at InfoLevel.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(InfoLevel, msg, first(fields))
}

// Warn logs a message at WarnLevel.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(WarnLevel, msg, first(fields))
}

// Error logs a message at ErrorLevel.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(ErrorLevel, msg, first(fields))
}

// Fatal logs a message at FatalLevel and exits.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.log(FatalLevel, msg, first(fields))
}

type ctxLoggerKey struct{}

// CtxLogger is the request-scoped logger carried through a context.
type CtxLogger struct {
	*Logger
}

// FromContext returns the logger stored in ctx, or a default stderr logger.
func FromContext(ctx context.Context) *CtxLogger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*CtxLogger); ok {
		return logger
	}
	return &CtxLogger{New(InfoLevel, os.Stderr)}
}

// WithContext returns a context carrying the logger.
func (l *CtxLogger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}

package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter implements zapcore.Core on top of Logger so the optimization
// packages, which log through zap, share the service's JSON output.
type ZapAdapter struct {
	logger *Logger
}

// NewZapAdapter creates a zapcore.Core that forwards entries to logger.
func NewZapAdapter(logger *Logger) *ZapAdapter {
	return &ZapAdapter{logger: logger}
}

func mapLevel(level zapcore.Level) LogLevel {
	switch level {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.InfoLevel:
		return InfoLevel
	case zapcore.WarnLevel:
		return WarnLevel
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Enabled implements zapcore.Core.
func (a *ZapAdapter) Enabled(level zapcore.Level) bool {
	return a.logger.shouldLog(mapLevel(level))
}

func getFieldValue(field zapcore.Field) interface{} {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		return field.Integer
	case zapcore.BoolType:
		return field.Integer == 1
	case zapcore.ErrorType:
		return field.Interface
	default:
		return field.Interface
	}
}

// With implements zapcore.Core.
func (a *ZapAdapter) With(fields []zapcore.Field) zapcore.Core {
	f := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		f[field.Key] = getFieldValue(field)
	}
	return &ZapAdapter{logger: a.logger.WithFields(f)}
}

// Check implements zapcore.Core.
func (a *ZapAdapter) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(ent.Level) {
		return ce.AddCore(ent, a)
	}
	return ce
}

// Write implements zapcore.Core.
func (a *ZapAdapter) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	f := make(map[string]interface{}, len(fields)+1)
	if ent.Caller.Defined {
		f["caller"] = ent.Caller.String()
	}
	for _, field := range fields {
		f[field.Key] = getFieldValue(field)
	}

	if ent.Level == zapcore.FatalLevel {
		a.logger.Fatal(ent.Message, f)
		return nil
	}
	a.logger.log(mapLevel(ent.Level), ent.Message, f)
	return nil
}

// Sync implements zapcore.Core.
func (a *ZapAdapter) Sync() error {
	return nil
}

// NewZapLogger creates a *zap.Logger backed by logger.
func NewZapLogger(logger *Logger) *zap.Logger {
	return zap.New(NewZapAdapter(logger))
}

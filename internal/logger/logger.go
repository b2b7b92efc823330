// Package logger wraps zap with the object-style helpers used across the pipeline.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging surface injected into runtime components.
// Each call logs obj as a single structured field named key.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// S is the process-wide logger installed by Init.
var S *zap.SugaredLogger

// Init installs a JSON logger on stdout at level (info when unrecognized) and
// returns a Logger bound to it. fields are attached to every entry.
func Init(level string, fields ...zap.Field) (Logger, error) {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		lvl,
	)
	Use(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel), zap.Fields(fields...)))
	return ZapLogger{}, nil
}

// Use replaces the process-wide logger.
func Use(l *zap.Logger) {
	if l == nil {
		S = nil
		return
	}
	S = l.Sugar()
}

// Close flushes buffered entries.
func Close() error {
	if S == nil {
		return nil
	}
	return S.Sync()
}

func logObj(lvl zapcore.Level, msg, key string, obj interface{}) {
	if S == nil {
		return
	}
	l := S.Desugar()
	if ce := l.Check(lvl, msg); ce != nil {
		ce.Write(zap.Any(key, obj))
	}
}

func InfoObj(msg, key string, obj interface{})  { logObj(zapcore.InfoLevel, msg, key, obj) }
func DebugObj(msg, key string, obj interface{}) { logObj(zapcore.DebugLevel, msg, key, obj) }
func WarnObj(msg, key string, obj interface{})  { logObj(zapcore.WarnLevel, msg, key, obj) }
func ErrorObj(msg, key string, obj interface{}) { logObj(zapcore.ErrorLevel, msg, key, obj) }

// ZapLogger forwards to the package-level helpers.
type ZapLogger struct{}

func (ZapLogger) InfoObj(msg, key string, obj interface{})  { InfoObj(msg, key, obj) }
func (ZapLogger) DebugObj(msg, key string, obj interface{}) { DebugObj(msg, key, obj) }
func (ZapLogger) WarnObj(msg, key string, obj interface{})  { WarnObj(msg, key, obj) }
func (ZapLogger) ErrorObj(msg, key string, obj interface{}) { ErrorObj(msg, key, obj) }

// NopLogger discards everything.
type NopLogger struct{}

func (*NopLogger) InfoObj(string, string, interface{})  {}
func (*NopLogger) DebugObj(string, string, interface{}) {}
func (*NopLogger) WarnObj(string, string, interface{})  {}
func (*NopLogger) ErrorObj(string, string, interface{}) {}

// Ensure returns log or a NopLogger when log is nil.
func Ensure(log Logger) Logger {
	if log == nil {
		return &NopLogger{}
	}
	return log
}

package logging

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ContextKey is the type of the context keys the logger extracts fields from
type ContextKey string

const (
	// RequestIDKey carries the per-request correlation id
	RequestIDKey ContextKey = "request_id"
	// IdentityKey carries the caller identity used for rate limiting
	IdentityKey ContextKey = "identity"
	// DedupKey carries the enrichment dedup key being processed
	DedupKey ContextKey = "dedup_key"
)

var contextKeys = []ContextKey{RequestIDKey, IdentityKey, DedupKey}

var zapLevels = map[LogLevel]zapcore.Level{
	DebugLevel: zapcore.DebugLevel,
	InfoLevel:  zapcore.InfoLevel,
	WarnLevel:  zapcore.WarnLevel,
	ErrorLevel: zapcore.ErrorLevel,
}

// ZapAdapter implements Logger on top of a *zap.Logger
type ZapAdapter struct {
	zl *zap.Logger
}

// NewZapLogger builds a console-encoded zap logger from config
func NewZapLogger(config LogConfig) (Logger, error) {
	layout := config.TimeFormat
	if layout == "" {
		layout = time.RFC3339
	}

	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(layout),
		EncodeDuration: zapcore.MillisDurationEncoder,
	})

	sink := zapcore.AddSync(os.Stdout)
	if config.Output != nil {
		sink = zapcore.Lock(zapcore.AddSync(config.Output))
	}

	level, ok := zapLevels[config.Level]
	if !ok {
		level = zapcore.InfoLevel
	}

	zl := zap.New(zapcore.NewCore(enc, sink, level))
	if config.Name != "" {
		zl = zl.Named(config.Name)
	}
	return &ZapAdapter{zl: zl}, nil
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	return &ZapAdapter{zl: zap.NewNop()}
}

func (z *ZapAdapter) Debug(msg string, fields ...Field) { z.zl.Debug(msg, toZap(fields)...) }

func (z *ZapAdapter) Info(msg string, fields ...Field) { z.zl.Info(msg, toZap(fields)...) }

func (z *ZapAdapter) Warn(msg string, fields ...Field) { z.zl.Warn(msg, toZap(fields)...) }

// Error renders err under the "error" key when it is non-nil
func (z *ZapAdapter) Error(msg string, err error, fields ...Field) {
	zf := toZap(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	z.zl.Error(msg, zf...)
}

func (z *ZapAdapter) WithFields(fields ...Field) Logger {
	if len(fields) == 0 {
		return z
	}
	return &ZapAdapter{zl: z.zl.With(toZap(fields)...)}
}

// WithContext attaches the request id, identity and dedup key carried by ctx
func (z *ZapAdapter) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return z
	}

	var zf []zap.Field
	for _, key := range contextKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			zf = append(zf, zap.String(string(key), v))
		}
	}
	if len(zf) == 0 {
		return z
	}
	return &ZapAdapter{zl: z.zl.With(zf...)}
}

// Sync flushes buffered entries
func (z *ZapAdapter) Sync() error {
	return z.zl.Sync()
}

func toZap(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// NewDefaultLogger builds from DefaultLogConfig and panics on failure
func NewDefaultLogger() Logger {
	l, err := NewZapLogger(DefaultLogConfig())
	if err != nil {
		panic(fmt.Sprintf("logging: default logger: %v", err))
	}
	return l
}

// InitGlobalLogger initializes the global logger from a level string and an
// optional log file. An empty file name logs to stdout. The returned closer
// releases the file, if any.
func InitGlobalLogger(levelStr, logFile string) (io.Closer, error) {
	level := ParseLevel(levelStr)

	var output io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		output = file
		closer = file
	}

	logger, err := NewZapLogger(LogConfig{
		Level:      level,
		Output:     output,
		TimeFormat: time.RFC3339,
	})
	if err != nil {
		closer.Close()
		return nil, err
	}

	SetGlobalLogger(logger)

	logger.Info("Logger initialized", String("level", level.String()), String("log_file", logFile))
	return closer, nil
}

// MustSync flushes the global logger before exit and drops sync errors
func MustSync() {
	if zapLogger, ok := GetGlobalLogger().(*ZapAdapter); ok {
		_ = zapLogger.Sync()
	}
}

// WithContext scopes the global logger to ctx
func WithContext(ctx context.Context) Logger {
	return GetGlobalLogger().WithContext(ctx)
}

func WithFields(fields ...Field) Logger {
	return GetGlobalLogger().WithFields(fields...)
}

// Err renders err under the same key ZapAdapter.Error uses
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

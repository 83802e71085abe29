// Package logger wraps zerolog with context-carried loggers, buffered output
// and request IDs. All modules log through this package.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey string

const (
	// RequestIDKey is the context key for the request ID.
	RequestIDKey contextKey = "request_id"
	// LoggerKey is the context key for the per-request logger.
	LoggerKey contextKey = "logger"
)

var (
	globalLogger zerolog.Logger
	globalWriter *SmartWriter
)

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output io.Writer
}

// InitWithFile initializes the logger with rotating file output and,
// optionally, mirrored console output.
func InitWithFile(filename, level, format string, enableConsole bool) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		panic(err)
	}

	logFile := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	var output io.Writer = logFile
	if enableConsole {
		output = io.MultiWriter(os.Stdout, logFile)
	}

	Init(Config{Level: level, Format: format, Output: output})
}

// Init initializes the global logger.
func Init(cfg Config) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Buffered writer: periodic flush, immediate flush on error/fatal.
	sw := NewSmartWriter(output, time.Second)
	globalWriter = sw
	output = sw

	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		short := file
		count := 0
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				count++
				short = file[i+1:]
				if count == 2 {
					break
				}
			}
		}
		return fmt.Sprintf("%s:%d", short, line)
	}

	if cfg.Format == "console" {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "2006-01-02 15:04:05.000",
			FormatLevel: func(i interface{}) string {
				return strings.ToUpper(fmt.Sprintf("%-7s", i))
			},
		}
		globalLogger = zerolog.New(consoleWriter).With().Timestamp().Caller().Logger()
	} else {
		globalLogger = zerolog.New(output).With().Timestamp().Caller().Logger()
	}
}

// Flush forces all buffered logs to the underlying writer.
func Flush() {
	if globalWriter != nil {
		_ = globalWriter.Sync()
	}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithRequestID returns a context carrying the request ID and a logger
// annotated with it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	l := globalLogger.With().Str("request_id", requestID).Logger()
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	return context.WithValue(ctx, LoggerKey, &l)
}

// FromContext extracts the logger from ctx, falling back to the global logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &globalLogger
	}
	if l, ok := ctx.Value(LoggerKey).(*zerolog.Logger); ok && l != nil {
		return l
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		l := globalLogger.With().Str("request_id", requestID).Logger()
		return &l
	}
	return &globalLogger
}

// GetRequestID extracts the request ID from ctx.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithFields returns a context whose logger carries the extra fields.
func WithFields(ctx context.Context, fields map[string]interface{}) context.Context {
	event := FromContext(ctx).With()
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	l := event.Logger()
	return context.WithValue(ctx, LoggerKey, &l)
}

// Debug logs a debug message with the context logger.
func Debug(ctx context.Context) *zerolog.Event { return FromContext(ctx).Debug() }

// Info logs an info message with the context logger.
func Info(ctx context.Context) *zerolog.Event { return FromContext(ctx).Info() }

// Warn logs a warning with the context logger.
func Warn(ctx context.Context) *zerolog.Event { return FromContext(ctx).Warn() }

// Error logs an error with the context logger.
func Error(ctx context.Context) *zerolog.Event { return FromContext(ctx).Error() }

// Fatal logs a fatal message and exits.
func Fatal(ctx context.Context) *zerolog.Event { return FromContext(ctx).Fatal() }

// Global variants for call sites without a context.

func DebugGlobal() *zerolog.Event { return globalLogger.Debug() }
func InfoGlobal() *zerolog.Event  { return globalLogger.Info() }
func WarnGlobal() *zerolog.Event  { return globalLogger.Warn() }
func ErrorGlobal() *zerolog.Event { return globalLogger.Error() }
func FatalGlobal() *zerolog.Event { return globalLogger.Fatal() }

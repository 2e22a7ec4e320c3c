package domain

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents logging severity
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// ParseLogLevel converts a level name to a LogLevel. Unknown names map to info.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error", "fatal":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) toZerolog() zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  LogLevel
	Format string // json or console
	Output io.Writer
}

// Logger provides leveled, structured logging on top of zerolog.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a new console logger writing to stderr
func NewLogger(level LogLevel) *Logger {
	return NewLoggerWithConfig(LogConfig{Level: level, Format: "console"})
}

// NewLoggerWithConfig creates a logger from the given configuration
func NewLoggerWithConfig(cfg LogConfig) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	var zl zerolog.Logger
	if cfg.Format == "json" {
		zl = zerolog.New(output)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		})
	}

	zl = zl.Level(cfg.Level.toZerolog()).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// NopLogger returns a logger that discards everything
func NopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Debug logs debug-level messages
func (l *Logger) Debug(format string, v ...interface{}) {
	l.zl.Debug().Msgf(format, v...)
}

// Info logs info-level messages
func (l *Logger) Info(format string, v ...interface{}) {
	l.zl.Info().Msgf(format, v...)
}

// Warn logs warning-level messages
func (l *Logger) Warn(format string, v ...interface{}) {
	l.zl.Warn().Msgf(format, v...)
}

// Error logs error-level messages
func (l *Logger) Error(format string, v ...interface{}) {
	l.zl.Error().Msgf(format, v...)
}

// WithPrefix returns a new logger tagged with a component name
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", prefix).Logger()}
}

// With returns a new logger carrying an extra field
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// Report logs the extraction diagnostics as structured fields.
func (l *Logger) Report(r Report) {
	evt := l.zl.Info().
		Str("run_id", r.RunID).
		Str("source", r.Source).
		Int("pages", r.Pages).
		Int("lines_scanned", r.LinesScanned).
		Int("employees", r.EmployeeCount).
		Int("anomalies", r.AnomalyCount()).
		Int("warnings", r.WarningCount()).
		Int("rejected_tokens", len(r.Rejections)).
		Dur("duration", r.Duration)
	if r.Period != nil {
		evt = evt.Str("period", r.Period.Period.String()).
			Str("strategy", string(r.Period.Strategy)).
			Int("period_page", r.Period.Page)
	}
	evt.Msgf("extraction report for %s", r.Source)
}

// DefaultLogger is the default logger instance
var DefaultLogger = NewLogger(LogLevelInfo)

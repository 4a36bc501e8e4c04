package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with application-specific methods
type Logger struct {
	zerolog.Logger
}

// New creates a new Logger instance writing to stdout
func New(level string, format string) *Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter creates a Logger writing to w
func NewWithWriter(w io.Writer, level string, format string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger

	if format == "text" || format == "console" {
		output := zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
		logger = zerolog.New(output).Level(lvl).With().Timestamp().Caller().Logger()
	} else {
		logger = zerolog.New(w).Level(lvl).With().Timestamp().Caller().Logger()
	}

	return &Logger{Logger: logger}
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithRequestID returns a new logger with the request ID attached
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With().Str("request_id", requestID).Logger(),
	}
}

// WithOwnerID returns a new logger with the owning user ID attached
func (l *Logger) WithOwnerID(ownerID string) *Logger {
	return &Logger{
		Logger: l.With().Str("owner_id", ownerID).Logger(),
	}
}

// WithBatchID returns a new logger scoped to one send batch
func (l *Logger) WithBatchID(batchID string) *Logger {
	return &Logger{
		Logger: l.With().Str("batch_id", batchID).Logger(),
	}
}

// WithComponent returns a new logger with the component name attached
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.With().Str("component", component).Logger(),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, statusCode int, duration time.Duration, clientIP string) {
	l.Info().
		Str("method", method).
		Str("path", path).
		Int("status", statusCode).
		Dur("duration", duration).
		Str("client_ip", clientIP).
		Msg("HTTP request")
}

// Delivery logs one dispatch attempt
func (l *Logger) Delivery(emailKey, status, message string, duration time.Duration) {
	event := l.Info()
	if status != "Delivered" {
		event = l.Warn()
	}
	event.
		Str("email_key", emailKey).
		Str("status", status).
		Str("message", message).
		Dur("duration", duration).
		Msg("delivery attempt")
}

package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// ContextKey type for context keys
type ContextKey string

// LoggerContextKey is the context key for the request-scoped logger.
const LoggerContextKey ContextKey = "logger"

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the logger stored by WithLogger, or a default logger
// tagged "unknown".
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger writes the request, query and failure records shared by
// the HTTP layer and the query service.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// RequestRecord describes one served HTTP request.
type RequestRecord struct {
	Method     string
	Path       string
	RawQuery   string
	UserAgent  string
	ClientIP   string
	StatusCode int
	Duration   time.Duration
}

// LogRequest logs a served request. 4xx responses log at warn and 5xx at
// error so failed queries stand out.
func (sl *StructuredLogger) LogRequest(ctx context.Context, rec RequestRecord) {
	level := slog.LevelInfo
	switch {
	case rec.StatusCode >= http.StatusInternalServerError:
		level = slog.LevelError
	case rec.StatusCode >= http.StatusBadRequest:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(rec.Method, rec.Path, rec.RawQuery, rec.UserAgent).
		WithHTTPResponse(rec.StatusCode, rec.Duration.Milliseconds(), rec.StatusCode < http.StatusBadRequest).
		WithClientIP(rec.ClientIP).
		WithComponent(sl.logger.Component())

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogQuery logs a completed KPI query
func (sl *StructuredLogger) LogQuery(ctx context.Context, name, year string, rows int, cacheHit bool, durationMs int64) {
	fields := NewFields().
		WithQuery(name, year, rows, cacheHit).
		WithOperation(OpQuery).
		ToSlice()

	fields = append(fields, FieldDuration, durationMs)

	sl.logger.DebugContext(ctx, "Query executed", fields...)
}

// LogError logs err with the operation that produced it. fields may be nil.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	sl.logger.ErrorContext(ctx, msg, fields.WithError(err).WithOperation(operation).ToSlice()...)
}

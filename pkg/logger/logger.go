package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	// Get log level from environment
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	// Create handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Create handler based on environment
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Use text handler for development (more readable)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Use JSON handler for production (structured)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	// Create logger
	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
	}
}

// NewWithWriter creates a JSON logger writing to w
func NewWithWriter(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

// NewNop creates a logger that discards everything
func NewNop() *Logger {
	return NewWithWriter(io.Discard, slog.LevelError)
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// WithUserID adds user ID to logger context
func (l *Logger) WithUserID(userID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("user_id", userID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// WithFields adds multiple fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Purchase flow logging methods

// LogSessionStarted logs when a purchase session is created or renewed
func (l *Logger) LogSessionStarted(ctx context.Context, sessionID, eventID, userID string, renewed bool) {
	l.Logger.InfoContext(ctx,
		"Purchase Session Started",
		slog.String("session_id", sessionID),
		slog.String("event_id", eventID),
		slog.String("user_id", userID),
		slog.Bool("renewed", renewed),
	)
}

// LogSeatsLocked logs a successful external seat lock
func (l *Logger) LogSeatsLocked(ctx context.Context, userID string, externalEventID int64, seats int) {
	l.Logger.InfoContext(ctx,
		"Seats Locked",
		slog.String("user_id", userID),
		slog.Int64("external_event_id", externalEventID),
		slog.Int("seats", seats),
	)
}

// LogSaleRecorded logs when a sale is persisted before external confirmation
func (l *Logger) LogSaleRecorded(ctx context.Context, saleID, eventID, userID string, total float64) {
	l.Logger.InfoContext(ctx,
		"Sale Recorded",
		slog.String("sale_id", saleID),
		slog.String("event_id", eventID),
		slog.String("user_id", userID),
		slog.Float64("total", total),
	)
}

// LogSaleConfirmed logs when the external system accepts a sale
func (l *Logger) LogSaleConfirmed(ctx context.Context, saleID string, confirmationID int64, attempts int) {
	l.Logger.InfoContext(ctx,
		"Sale Confirmed",
		slog.String("sale_id", saleID),
		slog.Int64("confirmation_id", confirmationID),
		slog.Int("attempts", attempts),
	)
}

// LogSalePending logs a sale left pending after a rejected or failed confirmation
func (l *Logger) LogSalePending(ctx context.Context, saleID string, attempts int, note string) {
	l.Logger.WarnContext(ctx,
		"Sale Pending",
		slog.String("sale_id", saleID),
		slog.Int("attempts", attempts),
		slog.String("note", note),
	)
}

// LogCatalogSynced logs the outcome of a catalog sync run
func (l *Logger) LogCatalogSynced(ctx context.Context, created, updated, deactivated, failed int, duration time.Duration) {
	l.Logger.InfoContext(ctx,
		"Catalog Synced",
		slog.Int("created", created),
		slog.Int("updated", updated),
		slog.Int("deactivated", deactivated),
		slog.Int("failed", failed),
		slog.Duration("duration", duration),
	)
}

// LogNotificationHandled logs a change-feed notification after dispatch
func (l *Logger) LogNotificationHandled(ctx context.Context, kind string, externalEventID int64, source string) {
	l.Logger.InfoContext(ctx,
		"Notification Handled",
		slog.String("kind", kind),
		slog.Int64("external_event_id", externalEventID),
		slog.String("source", source),
	)
}

// Security logging methods

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// LogExternalCall logs a call to the inventory system or the proxy
func (l *Logger) LogExternalCall(ctx context.Context, target, operation string, duration time.Duration, err error) {
	if err != nil {
		l.Logger.WarnContext(ctx,
			"External Call Failed",
			slog.String("target", target),
			slog.String("operation", operation),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return
	}
	l.Logger.DebugContext(ctx,
		"External Call",
		slog.String("target", target),
		slog.String("operation", operation),
		slog.Duration("duration", duration),
	)
}

// Helper methods for common patterns

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.InfoContext(ctx, msg, args...)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// DebugWithContext logs a debug message with context
func (l *Logger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.DebugContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

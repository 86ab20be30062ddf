package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// AuditEvent is a security event as written to the structured log
type AuditEvent struct {
	EventType string
	Severity  string
	AccountID string
	IPAddress string
	UserAgent string
	Timestamp time.Time
	Metadata  map[string]interface{}
}

// AuditLogger writes security events to the process log
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogSecurityEvent logs a security event at a level matching its severity
func (al *AuditLogger) LogSecurityEvent(ctx context.Context, event AuditEvent) {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("event_type", event.EventType),
		slog.String("severity", event.Severity),
		slog.String("timestamp", ts.UTC().Format(time.RFC3339)),
	}

	if event.AccountID != "" {
		attrs = append(attrs, slog.String("account_id", event.AccountID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}

	// Stable key order keeps log lines diffable
	keys := make([]string, 0, len(event.Metadata))
	for key := range event.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		attrs = append(attrs, slog.String(key, fmt.Sprint(event.Metadata[key])))
	}

	al.logger.LogAttrs(ctx, levelFor(event.Severity), "audit", attrs...)
}

func levelFor(severity string) slog.Level {
	switch severity {
	case "LOW":
		return slog.LevelInfo
	case "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

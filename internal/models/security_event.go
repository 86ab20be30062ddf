package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies a security event
type EventType string

const (
	EventLoginSuccess       EventType = "login_success"
	EventLoginFailed        EventType = "login_failed"
	EventRateLimitExceeded  EventType = "rate_limit_exceeded"
	EventInvalidToken       EventType = "invalid_token"
	EventSuspiciousActivity EventType = "suspicious_activity"
)

// Severity ranks security events for monitoring
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ParseSeverity is the inverse of String. Unknown labels map to critical.
func ParseSeverity(label string) Severity {
	for s := SeverityLow; s <= SeverityCritical; s++ {
		if s.String() == label {
			return s
		}
	}
	return SeverityCritical
}

// SeverityFor is the fixed severity mapping for an event type
func SeverityFor(t EventType) Severity {
	switch t {
	case EventLoginSuccess:
		return SeverityLow
	case EventLoginFailed:
		return SeverityMedium
	case EventRateLimitExceeded, EventInvalidToken:
		return SeverityHigh
	case EventSuspiciousActivity:
		return SeverityCritical
	}
	// Unknown types are treated as the most severe so they are never ignored
	return SeverityCritical
}

// EventMetadata holds additional context for security events
type EventMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (m *EventMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(EventMetadata)
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return ErrBadRequest
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*m = EventMetadata(decoded)
	return nil
}

// Value implements driver.Valuer for JSONB
func (m EventMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(map[string]interface{}(m))
}

// SecurityEvent is an append-only record of an authentication decision
type SecurityEvent struct {
	ID        string
	Type      EventType
	Severity  Severity
	AccountID string
	IPAddress string
	UserAgent string
	Metadata  EventMetadata
	CreatedAt time.Time
}

// NewSecurityEvent builds an event with the severity of its type
func NewSecurityEvent(t EventType, at time.Time) SecurityEvent {
	return SecurityEvent{
		Type:      t,
		Severity:  SeverityFor(t),
		CreatedAt: at,
		Metadata:  EventMetadata{},
	}
}

// WithRequest attaches request metadata
func (e SecurityEvent) WithRequest(meta RequestMetadata) SecurityEvent {
	e.IPAddress = meta.IPAddress
	e.UserAgent = meta.UserAgent
	return e
}

// WithAccount attaches the account the event concerns
func (e SecurityEvent) WithAccount(accountID string) SecurityEvent {
	e.AccountID = accountID
	return e
}

// With sets a metadata key
func (e SecurityEvent) With(key string, value interface{}) SecurityEvent {
	md := make(EventMetadata, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	e.Metadata = md
	return e
}

// Escalate raises the severity by one level, capped at critical
func (e SecurityEvent) Escalate() SecurityEvent {
	if e.Severity < SeverityCritical {
		e.Severity++
	}
	return e
}

package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/BradenHooton/adminauth/pkg/logger"
	"github.com/google/uuid"
)

// DefaultEventBufferSize bounds the queue between Emit and the writer
const DefaultEventBufferSize = 1024

const appendTimeout = 5 * time.Second

// ErrSinkClosed is returned by Close when called twice
var ErrSinkClosed = errors.New("security event sink already closed")

// EventStore appends security events durably
type EventStore interface {
	Append(ctx context.Context, event models.SecurityEvent) error
}

// AlertNotifier is told about events an operator should see quickly
type AlertNotifier interface {
	Notify(ctx context.Context, event models.SecurityEvent) error
}

// SecurityEventSink records security events without blocking requests.
// One writer goroutine appends events in the order they were emitted.
type SecurityEventSink struct {
	store  EventStore
	audit  *logger.AuditLogger
	alerts AlertNotifier
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan models.SecurityEvent
	done   chan struct{}
}

// NewSecurityEventSink starts the writer. alerts may be nil.
func NewSecurityEventSink(store EventStore, audit *logger.AuditLogger, alerts AlertNotifier, bufferSize int, log *slog.Logger) *SecurityEventSink {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	s := &SecurityEventSink{
		store:  store,
		audit:  audit,
		alerts: alerts,
		logger: log,
		queue:  make(chan models.SecurityEvent, bufferSize),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Emit writes event to the audit log and queues it for storage. It never
// blocks and never fails; a full queue drops the stored copy.
func (s *SecurityEventSink) Emit(ctx context.Context, event models.SecurityEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	s.audit.LogSecurityEvent(ctx, toAuditEvent(event))

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.logger.Warn("security event emitted after shutdown, not stored",
			slog.String("event_type", string(event.Type)))
		return
	}

	select {
	case s.queue <- event:
	default:
		s.logger.Error("security event queue full, event not stored",
			slog.String("event_type", string(event.Type)),
			slog.String("severity", event.Severity.String()))
	}
}

// ReportInvalidToken records a rejected session token
func (s *SecurityEventSink) ReportInvalidToken(ctx context.Context, meta models.RequestMetadata, reason string) {
	s.Emit(ctx, models.NewSecurityEvent(models.EventInvalidToken, time.Now()).
		WithRequest(meta).
		With("reason", reason))
}

// ReportRateLimited records a request rejected by a rate limit outside the
// login flow
func (s *SecurityEventSink) ReportRateLimited(ctx context.Context, meta models.RequestMetadata, accountID, policy string, retryAfterSeconds int) {
	s.Emit(ctx, models.NewSecurityEvent(models.EventRateLimitExceeded, time.Now()).
		WithRequest(meta).
		WithAccount(accountID).
		With("policy", policy).
		With("retry_after_seconds", retryAfterSeconds))
}

// Close stops accepting events and waits for the queue to drain or ctx to end
func (s *SecurityEventSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SecurityEventSink) run() {
	defer close(s.done)
	for event := range s.queue {
		s.write(event)
	}
}

func (s *SecurityEventSink) write(event models.SecurityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	if err := s.store.Append(ctx, event); err != nil {
		s.logger.Error("failed to store security event",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.Type)),
			slog.Any("error", err))
	}

	if s.alerts != nil && shouldAlert(event) {
		if err := s.alerts.Notify(ctx, event); err != nil {
			s.logger.Error("failed to send security alert",
				slog.String("event_id", event.ID),
				slog.Any("error", err))
		}
	}
}

// shouldAlert selects high severity events and account locks
func shouldAlert(event models.SecurityEvent) bool {
	if event.Severity >= models.SeverityHigh {
		return true
	}
	locked, _ := event.Metadata["locked"].(bool)
	return locked
}

func toAuditEvent(event models.SecurityEvent) logger.AuditEvent {
	return logger.AuditEvent{
		EventType: string(event.Type),
		Severity:  event.Severity.String(),
		AccountID: event.AccountID,
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
		Timestamp: event.CreatedAt,
		Metadata:  event.Metadata,
	}
}

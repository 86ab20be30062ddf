package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/adminauth/internal/database"
	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SecurityEventRepository is the append-only store for security events
type SecurityEventRepository struct {
	pool *pgxpool.Pool
}

func NewSecurityEventRepository(db *database.DB) *SecurityEventRepository {
	return &SecurityEventRepository{pool: db.Pool}
}

func (r *SecurityEventRepository) Append(ctx context.Context, event models.SecurityEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Metadata == nil {
		event.Metadata = models.EventMetadata{}
	}

	var accountID *string
	if event.AccountID != "" {
		accountID = &event.AccountID
	}

	query := `
		INSERT INTO security_events (id, event_type, severity, account_id, ip_address, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID, string(event.Type), event.Severity.String(), accountID,
		event.IPAddress, event.UserAgent, event.Metadata, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append security event: %w", database.MapPostgresError(err))
	}

	return nil
}

// ListByAccount returns the newest events concerning an account
func (r *SecurityEventRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]models.SecurityEvent, error) {
	query := `
		SELECT id, event_type, severity, COALESCE(account_id::text, ''), ip_address, user_agent, metadata, created_at
		FROM security_events
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}

	return scanSecurityEventRows(rows)
}

func scanSecurityEventRows(rows pgx.Rows) ([]models.SecurityEvent, error) {
	defer rows.Close()

	events := make([]models.SecurityEvent, 0)
	for rows.Next() {
		var event models.SecurityEvent
		var eventType, severity string
		err := rows.Scan(
			&event.ID, &eventType, &severity, &event.AccountID,
			&event.IPAddress, &event.UserAgent, &event.Metadata, &event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		event.Type = models.EventType(eventType)
		event.Severity = models.ParseSeverity(severity)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating security event rows: %w", err)
	}

	return events, nil
}

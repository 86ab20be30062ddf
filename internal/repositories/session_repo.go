package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/adminauth/internal/database"
	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository keeps the server-side record of every issued token
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (token_id, account_id, created_at, expires_at, is_active, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		session.TokenID, session.AccountID, session.CreatedAt, session.ExpiresAt,
		session.IsActive, session.IPAddress, session.UserAgent,
	)
	return database.MapPostgresError(err)
}

// Deactivate marks a session unusable. Unknown token ids are not an error.
func (r *SessionRepository) Deactivate(ctx context.Context, tokenID string) error {
	query := `UPDATE sessions SET is_active = FALSE WHERE token_id = $1`

	_, err := r.pool.Exec(ctx, query, tokenID)
	return database.MapPostgresError(err)
}

// IsActive reports whether a session exists, is active and expires after now
func (r *SessionRepository) IsActive(ctx context.Context, tokenID string, now time.Time) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM sessions WHERE token_id = $1 AND is_active AND expires_at > $2
	)`

	var active bool
	if err := r.pool.QueryRow(ctx, query, tokenID, now).Scan(&active); err != nil {
		return false, database.MapPostgresError(err)
	}

	return active, nil
}

// DeactivateExpired flags every session past its expiry (call periodically)
func (r *SessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE sessions SET is_active = FALSE WHERE is_active AND expires_at <= $1`

	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}

package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/adminauth/internal/database"
	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, email, name, role, password_hash, status,
	failed_login_attempts, locked_until, last_login, created_at, updated_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var status string

	err := scanner.Scan(
		&account.ID, &account.Email, &account.Name, &account.Role,
		&account.PasswordHash, &status, &account.FailedLoginAttempts,
		&account.LockedUntil, &account.LastLogin,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	account.Status = models.AccountStatus(status)

	return &account, nil
}

// FindActiveByEmail returns the account with the given normalized email.
// Inactive and suspended accounts are reported as ErrNotFound.
func (r *AccountRepository) FindActiveByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		FROM accounts WHERE LOWER(email) = $1 AND status = $2`

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		models.NormalizeEmail(email), models.AccountStatusActive))
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.Role == "" {
		account.Role = "admin"
	}
	if account.Status == "" {
		account.Status = models.AccountStatusActive
	}

	now := time.Now()
	query := `
		INSERT INTO accounts (id, email, name, role, password_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING ` + accountColumns

	created, err := scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, models.NormalizeEmail(account.Email), account.Name,
		account.Role, account.PasswordHash, string(account.Status), now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return created, nil
}

// IncrementFailedAttempts bumps the counter in one statement and returns
// the new value, so concurrent failures never lose an increment.
func (r *AccountRepository) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE accounts
		SET failed_login_attempts = failed_login_attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_attempts
	`

	var attempts int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		return 0, database.MapPostgresError(err)
	}

	return attempts, nil
}

// UpdateFailedAttempts persists the counter and optional lock fields.
// The counter never moves backwards, so a late write from a slower
// concurrent failure keeps the higher value. A nil status leaves the
// stored status unchanged.
func (r *AccountRepository) UpdateFailedAttempts(ctx context.Context, id string, attempts int, lockedUntil *time.Time, status *models.AccountStatus) error {
	query := `
		UPDATE accounts
		SET failed_login_attempts = GREATEST(failed_login_attempts, $2),
		    locked_until = $3,
		    status = COALESCE($4, status),
		    updated_at = NOW()
		WHERE id = $1
	`

	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	tag, err := r.pool.Exec(ctx, query, id, attempts, lockedUntil, statusArg)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// UpdateLoginSuccess clears the failure state and records the login time
func (r *AccountRepository) UpdateLoginSuccess(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE accounts
		SET failed_login_attempts = 0, locked_until = NULL, last_login = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

package database

import (
	"errors"

	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes we translate into domain errors
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
)

// MapPostgresError converts driver errors into models sentinels so callers
// never branch on pgx types
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return models.ErrConflict
		case pgForeignKeyViolation, pgNotNullViolation, pgCheckViolation:
			return models.ErrBadRequest
		}
	}

	return err
}

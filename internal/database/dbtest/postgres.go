// Package dbtest starts a disposable PostgreSQL for integration tests.
package dbtest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/adminauth/internal/database"
	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/BradenHooton/adminauth/pkg/auth"
)

// TestDB manages a PostgreSQL testcontainer with the schema applied
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	DB        *database.DB
}

// Setup starts postgres, connects and runs the embedded migrations
func Setup(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("adminauth"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetLogger(log.New(nil, "", 0))

	db := database.New(pool, nil)
	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &TestDB{Container: container, Pool: pool, DB: db}, nil
}

// Teardown stops the container and closes the pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	for _, table := range []string{"security_events", "sessions", "accounts"} {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	return nil
}

// SeedAccount inserts an account with a bcrypt hash of password
func (db *TestDB) SeedAccount(ctx context.Context, email, password string, status models.AccountStatus) (*models.Account, error) {
	hash, err := auth.HashPasswordWithCost(password, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO accounts (email, name, role, password_hash, status)
		VALUES ($1, 'Seeded Admin', 'admin', $2, $3)
		RETURNING id, email, status
	`

	var account models.Account
	var st string
	if err := db.Pool.QueryRow(ctx, query, models.NormalizeEmail(email), hash, string(status)).
		Scan(&account.ID, &account.Email, &st); err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}
	account.Status = models.AccountStatus(st)
	account.PasswordHash = hash

	return &account, nil
}

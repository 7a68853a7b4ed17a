package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"syncactivity/internal/config"
)

//go:embed schema.sql
var schema string

func Connect(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("Connected to database")
	return db, nil
}

// Migrate applies the idempotent schema. Every statement uses IF NOT EXISTS so it
// is safe to run on each start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// TxRunner wraps database transactions so services can group writes without
// owning a *sqlx.DB themselves.
type TxRunner struct {
	db *sqlx.DB
}

func NewTxRunner(db *sqlx.DB) *TxRunner {
	return &TxRunner{db: db}
}

// RunInTx commits when fn returns nil and rolls back otherwise.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

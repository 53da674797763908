package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresKV struct {
	DB *sql.DB
}

func NewPostgresKV(db *sql.DB) *PostgresKV {
	return &PostgresKV{DB: db}
}

func (r *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := r.DB.QueryRowContext(ctx, "SELECT value FROM session_store WHERE key = $1", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (r *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO session_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, string(value))
	return err
}

func (r *PostgresKV) Delete(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM session_store WHERE key = $1", key)
	return err
}

func (r *PostgresKV) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS session_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		"CREATE INDEX IF NOT EXISTS session_store_updated_at_idx ON session_store (updated_at)",
	}
	for _, stmt := range statements {
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema `%s`: %w", stmt, err)
		}
	}
	return nil
}

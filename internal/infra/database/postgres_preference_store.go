// internal/infra/database/postgres_preference_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"training_reminder_bot/internal/domain/preference"
)

const preferencesSchema = `CREATE TABLE IF NOT EXISTS preferences (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresPreferenceStore implements preference.Store on a single
// key/value table.
type PostgresPreferenceStore struct {
	db *sql.DB
}

func NewPostgresPreferenceStore(db *sql.DB) *PostgresPreferenceStore {
	return &PostgresPreferenceStore{db: db}
}

// EnsureSchema creates the preferences table if it does not exist.
func (r *PostgresPreferenceStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, preferencesSchema); err != nil {
		return fmt.Errorf("error creating preferences table: %w", err)
	}
	return nil
}

func (r *PostgresPreferenceStore) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM preferences WHERE key = $1`
	var value string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", preference.ErrNotFound
		}
		return "", fmt.Errorf("error getting preference %s: %w", key, err)
	}
	return value, nil
}

func (r *PostgresPreferenceStore) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO preferences (key, value, updated_at)
               VALUES ($1, $2, NOW())
               ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("error setting preference %s: %w", key, err)
	}
	return nil
}

func (r *PostgresPreferenceStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM preferences WHERE key = $1`
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("error deleting preference %s: %w", key, err)
	}
	return nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq" // PostgreSQL driver
)

const (
	// A single writer persists a handful of keys; keep the pool small.
	defaultMaxOpenConns    = 4
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 30 * time.Minute
	defaultPingTimeout     = 5 * time.Second

	applicationName = "training_reminder_bot"
)

// NewPostgresConnection opens the preference database and verifies it is
// reachable within defaultPingTimeout.
func NewPostgresConnection(ctx context.Context, dataSourceName string) (*sql.DB, error) {
	dsn, err := connString(dataSourceName)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// connString accepts both URL and key=value DSNs and tags the session with
// the application name unless the DSN already sets one.
func connString(dataSourceName string) (string, error) {
	dsn := strings.TrimSpace(dataSourceName)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		converted, err := pq.ParseURL(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		dsn = converted
	}
	if !strings.Contains(dsn, "application_name=") {
		dsn = strings.TrimSpace(dsn + " application_name=" + applicationName)
	}
	return dsn, nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"

	"remindbot/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLite opens a SQLite database file. A single connection serialises
// writers, which also keeps ":memory:" databases shared between callers.
func NewSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" || path[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Get().WithField("path", path).Info("Connection to database successful!")
	return db, nil
}

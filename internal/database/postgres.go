package database

import (
	"context"
	"fmt"
	"time"

	"remindbot/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgres opens and pings a pgx pool for a postgres:// connection URL.
func NewPostgres(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Two loops share the pool; a handful of connections is plenty.
	config.MaxConns = 5
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Get().Info("Connection to database successful!")
	return pool, nil
}

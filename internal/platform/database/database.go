// Package database manages the PostgreSQL pool backing the bookbot stores.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grammarhour/bookbot/internal/platform/config"
)

// DB wraps a pgx connection pool shared by the progress, bookmark and
// attempt stores.
type DB struct {
	Pool *pgxpool.Pool
}

// ParseURL validates a PostgreSQL connection URL.
func ParseURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// New creates a connection pool from the app's database settings and verifies
// it with a ping. Pool sizing and connection lifetimes come from the config;
// nonpositive lifetime values leave the pgx defaults in place.
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	if cfg.MaxConns < 1 {
		return nil, fmt.Errorf("database max conns must be at least 1, got %d", cfg.MaxConns)
	}
	if cfg.MinConns > cfg.MaxConns {
		return nil, fmt.Errorf("database min conns %d exceeds max conns %d", cfg.MinConns, cfg.MaxConns)
	}

	poolCfg, err := ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	if cfg.ConnLifetimeMinutes > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnLifetimeMinutes) * time.Minute
	}
	if cfg.ConnIdleMinutes > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnIdleMinutes) * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

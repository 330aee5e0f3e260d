// Package db builds the shared connection pool for the nesting database.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	driverName = "pgx"
	// maxOpenConns matches the source system's pool capacity.
	maxOpenConns = 8
	// AcquireTimeout bounds connection acquisition; the upstream pool
	// blocks indefinitely, so every caller derives a deadline from this.
	AcquireTimeout = 10 * time.Second
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Config holds the database connection parameters. DSN, when set, wins over
// the individual fields.
type Config struct {
	DSN      string
	Host     string
	Name     string
	User     string
	Password string
}

// ConfigFromEnv reads SNDB_DSN or the SNDB_HOST/SNDB_NAME/SNDB_USER/SNDB_PWD
// quartet from the process environment.
func ConfigFromEnv() Config {
	return Config{
		DSN:      os.Getenv("SNDB_DSN"),
		Host:     os.Getenv("SNDB_HOST"),
		Name:     os.Getenv("SNDB_NAME"),
		User:     os.Getenv("SNDB_USER"),
		Password: os.Getenv("SNDB_PWD"),
	}
}

// Open builds the bounded connection pool and verifies connectivity.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		if cfg.Host == "" || cfg.Name == "" {
			return nil, fmt.Errorf("database config incomplete: host and name required")
		}
		u := url.URL{
			Scheme: "postgres",
			Host:   cfg.Host,
			Path:   "/" + cfg.Name,
		}
		if cfg.User != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		}
		dsn = u.String()
	}
	openMu.Lock()
	pool, err := sqlOpen(driverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool.SetMaxOpenConns(maxOpenConns)
	pool.SetMaxIdleConns(maxOpenConns)
	pingCtx, cancel := context.WithTimeout(ctx, AcquireTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// WithAcquire derives a context bounded by AcquireTimeout for a single
// pool operation.
func WithAcquire(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, AcquireTimeout)
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

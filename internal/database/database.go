package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/novostroy/novostroy-api/internal/config"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Open connects to the configured database, waits until it answers and applies migrations.
func Open(ctx context.Context, cfg config.Database) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch cfg.Type {
	case TypePostgres:
		db, err = openPostgreSQL(cfg)
	case TypeSQLite, "":
		db, err = openSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := pingWithRetry(ctx, db, cfg.MaxRetries, time.Duration(cfg.RetryDelay)*time.Second); err != nil {
		db.Close()
		return nil, err
	}

	if err := RunMigrations(ctx, db, cfg.Type); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("database ready", "type", dialectOf(cfg.Type))
	return db, nil
}

func openPostgreSQL(cfg config.Database) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
		db.SetMaxIdleConns(cfg.MaxConns / 2)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func openSQLite(cfg config.Database) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", cfg.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// sqlite serialises writers anyway
	db.SetMaxOpenConns(1)
	return db, nil
}

func pingWithRetry(ctx context.Context, db *sql.DB, retries int, delay time.Duration) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		slog.Warn("database not ready", "attempt", attempt+1, "error", err)
		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("failed to ping database: %w", err)
}

func dialectOf(dbType string) string {
	if dbType == TypePostgres {
		return TypePostgres
	}
	return TypeSQLite
}

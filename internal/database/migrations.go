package database

import (
	"context"
	"database/sql"
	"embed"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// goose keeps its base FS and dialect in package state.
var migrateMu sync.Mutex

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations for dbType.
func RunMigrations(ctx context.Context, db *sql.DB, dbType string) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	dir, dialect := "migrations/sqlite", goose.DialectSQLite3
	if dbType == TypePostgres {
		dir, dialect = "migrations/postgres", goose.DialectPostgres
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(string(dialect)); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, dir)
}

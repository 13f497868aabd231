package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// goose guarda dialecto y FS en estado global.
var gooseMu sync.Mutex

// MigratePostgres aplica las migraciones pendientes usando el pool de pgx.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	conn := stdlib.OpenDBFromPool(pool)
	defer conn.Close()
	return migrate(ctx, conn, "postgres", "migrations/postgres")
}

// MigrateSQLite aplica las migraciones pendientes sobre la base SQLite.
func MigrateSQLite(ctx context.Context, conn *sql.DB) error {
	return migrate(ctx, conn, "sqlite3", "migrations/sqlite")
}

func migrate(ctx context.Context, conn *sql.DB, dialect, dir string) error {
	sub, err := fs.Sub(migrationFiles, dir)
	if err != nil {
		return fmt.Errorf("migrations %s: %w", dir, err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, conn, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

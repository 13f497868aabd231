package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"forum-api/internal/config"
	"forum-api/internal/db"
	"forum-api/internal/repository"
)

type store struct {
	users repository.UserRepository
	posts repository.PostRepository
	ping  func(ctx context.Context) error
	close func()
}

// openStore abre el backend elegido por STORE_DRIVER y aplica las migraciones.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.MigrateSQLite(ctx, conn); err != nil {
			conn.Close()
			return nil, err
		}
		logger.Info("sqlite store ready", zap.String("path", cfg.SQLitePath))
		return &store{
			users: repository.NewSqliteUserRepository(conn),
			posts: repository.NewSqlitePostRepository(conn),
			ping:  conn.PingContext,
			close: func() { conn.Close() },
		}, nil
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("postgres store ready")
		return &store{
			users: repository.NewPgUserRepository(pool),
			posts: repository.NewPgPostRepository(pool),
			ping:  func(ctx context.Context) error { return db.Ping(ctx, pool) },
			close: pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

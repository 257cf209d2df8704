package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slot_booking/internal/config"
	"github.com/Freeeeeet/slot_booking/internal/repository"
	"github.com/Freeeeeet/slot_booking/internal/repository/memory"
	"github.com/Freeeeeet/slot_booking/internal/repository/sqlite"
)

// OpenStorage connects the configured backend and brings its schema up to date.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		return openPostgres(ctx, cfg.DBDSN, logger)
	case config.StorageSQLite:
		return openSQLite(ctx, cfg.SQLitePath, logger)
	case config.StorageMemory:
		logger.Warn("Using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
}

func openPostgres(ctx context.Context, dsn string, logger *zap.Logger) (repository.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Connected to PostgreSQL")

	migrator := NewPostgresMigrator(pool, logger)
	defer migrator.Close()
	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return repository.NewPostgresStore(pool), nil
}

func openSQLite(ctx context.Context, path string, logger *zap.Logger) (repository.Store, error) {
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	logger.Info("Opened SQLite database", zap.String("path", path))

	if err := NewSQLiteMigrator(store.DB(), logger).Run(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Freeeeeet/slot_booking/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Migrator обёртка над goose
type Migrator struct {
	db      *sql.DB
	ownsDB  bool
	dialect goose.Dialect
	logger  *zap.Logger
}

// NewPostgresMigrator создаёт мигратор поверх пула pgx
func NewPostgresMigrator(pool *pgxpool.Pool, logger *zap.Logger) *Migrator {
	// Goose работает с *sql.DB, поэтому создаём его из конфига пула
	return &Migrator{
		db:      stdlib.OpenDBFromPool(pool),
		ownsDB:  true,
		dialect: goose.DialectPostgres,
		logger:  logger,
	}
}

// NewSQLiteMigrator создаёт мигратор для уже открытой SQLite базы
func NewSQLiteMigrator(db *sql.DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:      db,
		dialect: goose.DialectSQLite3,
		logger:  logger,
	}
}

// Run применяет все pending миграции
func (mg *Migrator) Run(ctx context.Context) error {
	mg.logger.Info("Applying database migrations", zap.String("dialect", string(mg.dialect)))

	version, err := migrations.Up(ctx, mg.db, mg.dialect)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	mg.logger.Info("Migrations applied successfully", zap.Int64("version", version))
	return nil
}

// Close закрывает соединение мигратора
func (mg *Migrator) Close() error {
	// Закрываем sql.DB, но не пул (он управляется в main)
	if mg.ownsDB && mg.db != nil {
		return mg.db.Close()
	}
	return nil
}

package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// NewProvider returns a goose provider over the embedded migrations for dialect.
func NewProvider(db *sql.DB, dialect goose.Dialect) (*goose.Provider, error) {
	var dir string
	switch dialect {
	case goose.DialectPostgres:
		dir = PostgresDir
	case goose.DialectSQLite3:
		dir = SQLiteDir
	default:
		return nil, fmt.Errorf("unsupported migration dialect %q", dialect)
	}

	sub, err := fs.Sub(FS, dir)
	if err != nil {
		return nil, fmt.Errorf("open migrations dir: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db, sub)
	if err != nil {
		return nil, fmt.Errorf("create goose provider: %w", err)
	}
	return provider, nil
}

// Up applies all pending migrations and returns the resulting version.
func Up(ctx context.Context, db *sql.DB, dialect goose.Dialect) (int64, error) {
	provider, err := NewProvider(db, dialect)
	if err != nil {
		return 0, err
	}

	if _, err := provider.Up(ctx); err != nil {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}

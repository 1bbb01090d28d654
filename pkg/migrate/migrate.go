package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

// Up applies all pending migrations from the embedded set.
func Up(ctx context.Context, db *sql.DB) error {
	return run(ctx, db, func() error {
		return goose.UpContext(ctx, db, migrationsDir)
	})
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB) error {
	return run(ctx, db, func() error {
		return goose.DownContext(ctx, db, migrationsDir)
	})
}

// Status prints the migration ledger to stdout (goose internal).
func Status(ctx context.Context, db *sql.DB) error {
	return run(ctx, db, func() error {
		return goose.StatusContext(ctx, db, migrationsDir)
	})
}

func run(_ context.Context, db *sql.DB, fn func() error) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	goose.SetBaseFS(embeddedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := fn(); err != nil {
		return fmt.Errorf("goose: %w", err)
	}
	return nil
}

package db

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var embedMigrations embed.FS

// Migrate brings the schema up to date.
func Migrate(conn *sql.DB, dialect Dialect) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect.GooseDialect()); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(conn, dialect.migrationsDir()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

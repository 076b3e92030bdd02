package store

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"aegis-log/core/utils"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embeddedMigrations embed.FS

func ApplyMigrations(ctx context.Context, h *Handle, logger *utils.Logger) error {
	dialect, dir := "sqlite3", "migrations/sqlite"
	if h.Dialect() == DialectPostgres {
		dialect, dir = "postgres", "migrations/postgres"
	}
	goose.SetBaseFS(embeddedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, h.DB, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, h.DB)
	if err == nil {
		logger.Printf("DB schema at version %d", version)
	}
	return nil
}

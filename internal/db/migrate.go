package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/2beens/partnerdesk/internal/db/migrations"

	"github.com/pressly/goose/v3"
	log "github.com/sirupsen/logrus"
)

const MigrationsTable = "goose_db_version"

var gooseUpContext = func(ctx context.Context, sqlDB *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, sqlDB, dir, opts...)
}

// Migrate creates the directory tables (partners, feedback, services).
// The Users table is owned by the accounts store and is not managed here.
func Migrate(ctx context.Context, sqlDB *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetTableName(MigrationsTable)
	goose.SetLogger(log.StandardLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

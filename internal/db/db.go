package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName       = "sqlite"
	InMemory         = ":memory:"
	defaultBusyMilli = 5000
)

type OpenParams struct {
	Path        string
	BusyTimeout time.Duration
}

// Open opens the SQLite file at params.Path. The pool is limited to a single
// connection: callers must not use the *sql.DB while holding a transaction.
func Open(ctx context.Context, params OpenParams) (*sql.DB, error) {
	if params.Path == "" {
		return nil, fmt.Errorf("db path not set")
	}

	busy := defaultBusyMilli
	if params.BusyTimeout > 0 {
		busy = int(params.BusyTimeout.Milliseconds())
	}

	pragmas := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", busy),
		"_pragma=foreign_keys(1)",
	}
	if params.Path != InMemory {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	dsn := params.Path + "?" + strings.Join(pragmas, "&")

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", params.Path, err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", params.Path, err)
	}

	return sqlDB, nil
}

// QuoteIdent quotes a table or column name for use in SQL text.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := Open(context.Background(), OpenParams{Path: InMemory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestOpen(t *testing.T) {
	_, err := Open(context.Background(), OpenParams{})
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "pd.db")
	sqlDB, err := Open(context.Background(), OpenParams{Path: path})
	require.NoError(t, err)
	defer func() { _ = sqlDB.Close() }()

	var mode string
	require.NoError(t, sqlDB.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, sqlDB.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"Users"`, QuoteIdent("Users"))
	assert.Equal(t, `"Main Travel Database"`, QuoteIdent("Main Travel Database"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
	assert.Equal(t, `""""""`, QuoteIdent(`""`))
	assert.Equal(t, `""`, QuoteIdent(""))
}

func TestQuoteIdent_RoundTrip(t *testing.T) {
	sqlDB := openTestDB(t)
	ctx := context.Background()

	name := `weird "table"; DROP`
	_, err := sqlDB.ExecContext(ctx, "CREATE TABLE "+QuoteIdent(name)+" (v TEXT)")
	require.NoError(t, err)
	_, err = sqlDB.ExecContext(ctx, "INSERT INTO "+QuoteIdent(name)+" (v) VALUES (?)", "x")
	require.NoError(t, err)

	var got string
	require.NoError(t, sqlDB.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table'").Scan(&got))
	assert.Equal(t, name, got)
}

func TestWithTx(t *testing.T) {
	sqlDB := openTestDB(t)
	ctx := context.Background()
	_, err := sqlDB.ExecContext(ctx, "CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)

	count := func() int {
		var n int
		require.NoError(t, sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n))
		return n
	}

	err = WithTx(ctx, sqlDB, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO t (v) VALUES (1)")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count())

	boom := errors.New("boom")
	err = WithTx(ctx, sqlDB, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO t (v) VALUES (2)"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, count())

	assert.Panics(t, func() {
		_ = WithTx(ctx, sqlDB, nil, func(ctx context.Context, tx DBTX) error {
			_, _ = tx.ExecContext(ctx, "INSERT INTO t (v) VALUES (3)")
			panic("yolo")
		})
	})
	assert.Equal(t, 1, count())
}

func TestMigrate(t *testing.T) {
	sqlDB := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, sqlDB))
	// second run is a no-op
	require.NoError(t, Migrate(ctx, sqlDB))

	for _, table := range []string{"Main Travel Database", "Feedback Database", "Service Database"} {
		var n int
		err := sqlDB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}
}

func TestMigrate_Error(t *testing.T) {
	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, sqlDB *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("migrations broken")
	}
	defer func() { gooseUpContext = orig }()

	err := Migrate(context.Background(), openTestDB(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations broken")
}

package tables

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/partnerdesk/internal/db"
	"github.com/2beens/partnerdesk/internal/telemetry/tracing"
	"github.com/2beens/partnerdesk/pkg"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	columnsCacheExpireSeconds = 60
	DefaultRowsLimit          = 50
	MaxRowsLimit              = 500

	accountsTable = "users"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrInvalidInput  = errors.New("invalid input")
)

type Column struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	NotNull    bool    `json:"not_null"`
	Default    *string `json:"default,omitempty"`
	PrimaryKey int     `json:"primary_key"`
}

// Generated reports whether SQLite fills the column itself (INTEGER rowid alias).
func (c Column) Generated() bool {
	return c.PrimaryKey == 1 && strings.EqualFold(c.Type, "INTEGER")
}

type Page struct {
	Table   string           `json:"table"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// Browser gives read access to the user tables and lets admins add rows.
// The accounts table and SQLite/migration bookkeeping are never exposed.
type Browser struct {
	db          *sql.DB
	hiddenTable map[string]bool
	cache       *freecache.Cache
}

func NewBrowser(sqlDB *sql.DB, cacheSizeMB int) *Browser {
	megabyte := 1024 * 1024
	if cacheSizeMB <= 0 {
		cacheSizeMB = 1
	}
	return &Browser{
		db: sqlDB,
		hiddenTable: map[string]bool{
			accountsTable:                        true,
			strings.ToLower(db.MigrationsTable): true,
		},
		cache: freecache.NewCache(cacheSizeMB * megabyte),
	}
}

func (b *Browser) visible(name string) bool {
	lower := strings.ToLower(name)
	return !b.hiddenTable[lower] && !strings.HasPrefix(lower, "sqlite_")
}

func (b *Browser) ListTables(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		if b.visible(name) {
			tables = append(tables, name)
		}
	}
	return tables, rows.Err()
}

func (b *Browser) ensureVisible(ctx context.Context, table string) error {
	if !b.visible(table) {
		return ErrTableNotFound
	}
	var found int
	err := b.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&found)
	if err != nil {
		return fmt.Errorf("check table %s: %w", table, err)
	}
	if found == 0 {
		return ErrTableNotFound
	}
	return nil
}

func (b *Browser) Columns(ctx context.Context, table string) (_ []Column, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tables.columns")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("table", table))

	if err := b.ensureVisible(ctx, table); err != nil {
		return nil, err
	}

	cacheKey := []byte("columns::" + table)
	if cached, cacheErr := b.cache.Get(cacheKey); cacheErr == nil {
		var columns []Column
		unmarshalErr := json.Unmarshal(cached, &columns)
		if unmarshalErr == nil {
			return columns, nil
		}
		log.Errorf("tables: unmarshal cached columns of %s: %s", table, unmarshalErr)
	}

	columns, err := b.tableInfo(ctx, table)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(columns); err == nil {
		if err := b.cache.Set(cacheKey, raw, columnsCacheExpireSeconds); err != nil {
			log.Warnf("tables: cache columns of %s: %s", table, err)
		}
	}

	return columns, nil
}

func (b *Browser) tableInfo(ctx context.Context, table string) ([]Column, error) {
	rows, err := b.db.QueryContext(ctx, "PRAGMA table_info("+db.QuoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			cid        int
			col        Column
			colType    sql.NullString
			notNull    int
			defaultVal sql.NullString
		)
		if err := rows.Scan(&cid, &col.Name, &colType, &notNull, &defaultVal, &col.PrimaryKey); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		col.Type = colType.String
		col.NotNull = notNull == 1
		if defaultVal.Valid {
			col.Default = &defaultVal.String
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (b *Browser) Rows(ctx context.Context, table string, limit, offset int) (_ *Page, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tables.rows")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("table", table))

	if err := b.ensureVisible(ctx, table); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRowsLimit
	}
	limit = min(limit, MaxRowsLimit)
	offset = max(offset, 0)

	rows, err := b.db.QueryContext(ctx,
		"SELECT * FROM "+db.QuoteIdent(table)+" LIMIT ? OFFSET ?", limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("select rows of %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("row columns of %s: %w", table, err)
	}

	page := &Page{
		Table:   table,
		Columns: columns,
		Rows:    []map[string]any{},
		Limit:   limit,
		Offset:  offset,
	}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row of %s: %w", table, err)
		}

		row := make(map[string]any, len(columns))
		for i, name := range columns {
			if raw, ok := values[i].([]byte); ok {
				row[name] = string(raw)
				continue
			}
			row[name] = values[i]
		}
		page.Rows = append(page.Rows, row)
	}
	return page, rows.Err()
}

// Insert adds one row. Keys must name existing columns; generated key columns
// are rejected and empty strings are stored as NULL.
func (b *Browser) Insert(ctx context.Context, table string, values map[string]string) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tables.insert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("table", table))

	columns, err := b.Columns(ctx, table)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: no values given", ErrInvalidInput)
	}

	var (
		names        []string
		placeholders []string
		args         []any
	)
	// column order keeps the statement text stable
	known := make(map[string]bool, len(values))
	for _, col := range columns {
		value, ok := values[col.Name]
		if !ok {
			continue
		}
		known[col.Name] = true
		if col.Generated() {
			return 0, fmt.Errorf("%w: column %q is generated", ErrInvalidInput, col.Name)
		}
		names = append(names, db.QuoteIdent(col.Name))
		placeholders = append(placeholders, "?")
		if value == "" {
			args = append(args, nil)
		} else {
			args = append(args, value)
		}
	}
	for name := range values {
		if !known[name] {
			return 0, fmt.Errorf("%w: unknown column %q", ErrInvalidInput, name)
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		db.QuoteIdent(table), strings.Join(names, ", "), strings.Join(placeholders, ", "),
	)

	var id int64
	err = db.WithTx(ctx, b.db, nil, func(ctx context.Context, tx db.DBTX) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if pkg.IsConstraintError(err) {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		if err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}

	log.Debugf("tables: row %d added to [%s]", id, table)
	return id, nil
}

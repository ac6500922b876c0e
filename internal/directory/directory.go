package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/2beens/partnerdesk/internal/db"
)

const (
	partnersTable = "Main Travel Database"
	feedbackTable = "Feedback Database"
	servicesTable = "Service Database"
)

// Directory answers read-only searches over the partner, feedback and
// service tables.
type Directory struct {
	db *sql.DB
}

func New(sqlDB *sql.DB) *Directory {
	return &Directory{db: sqlDB}
}

// nullText scans a nullable TEXT column; NULL reads as "".
type nullText struct {
	sql.NullString
}

func (n nullText) get() string {
	if !n.Valid {
		return ""
	}
	return n.String
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// distinct returns the sorted non-empty values of column, optionally narrowed
// by an equality filter.
func (d *Directory) distinct(ctx context.Context, column, whereColumn, whereValue string) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL AND %s != ''`,
		db.QuoteIdent(column), db.QuoteIdent(partnersTable), db.QuoteIdent(column), db.QuoteIdent(column),
	)
	var args []any
	if whereValue != "" {
		query += fmt.Sprintf(` AND %s = ?`, db.QuoteIdent(whereColumn))
		args = append(args, whereValue)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct %s: %w", column, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Sort(values)
	return values, nil
}

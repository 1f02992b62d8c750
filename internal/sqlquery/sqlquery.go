// Package sqlquery runs SQL against a database/sql driver and materializes
// result sets as tables.
package sqlquery

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goingest/internal/table"
)

// DB is a thin wrapper over sqlx.DB. The caller owns it and must Close it.
type DB struct {
	db *sqlx.DB
}

// Open connects with the named driver and verifies the connection. The
// driver must be registered by the caller (for example by importing
// modernc.org/sqlite for "sqlite").
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return &DB{db: db}, nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, driver string) *DB {
	return &DB{db: sqlx.NewDb(db, driver)}
}

func (d *DB) Close() error { return d.db.Close() }

// Query runs q and returns every row. NULL becomes the empty string, byte
// slices are read as text and times are formatted as RFC 3339.
func (d *DB) Query(ctx context.Context, q string, args ...any) (table.Table, error) {
	start := time.Now()
	rows, err := d.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return table.Table{}, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return table.Table{}, fmt.Errorf("columns: %w", err)
	}
	var out [][]string
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return table.Table{}, fmt.Errorf("scan row %d: %w", len(out), err)
		}
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i] = FormatValue(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return table.Table{}, fmt.Errorf("iterate rows: %w", err)
	}
	log.Debug().Int("rows", len(out)).Int("columns", len(cols)).Dur("took", time.Since(start)).Msg("query done")
	return table.New(cols, out), nil
}

// Exec runs a statement and returns the number of affected rows when the
// driver reports it, or -1.
func (d *DB) Exec(ctx context.Context, q string, args ...any) (int64, error) {
	res, err := d.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return -1, nil
	}
	return n, nil
}

// ExecScript runs each semicolon-terminated statement of script in order,
// stopping at the first failure.
func (d *DB) ExecScript(ctx context.Context, script string) error {
	for i, stmt := range SplitStatements(script) {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}

// FormatValue renders a scanned column value as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// SplitStatements splits on semicolons outside single-quoted strings and
// drops empty statements and "--" line comments.
func SplitStatements(script string) []string {
	var out []string
	var b strings.Builder
	inQuote := false
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case !inQuote && c == '-' && i+1 < len(script) && script[i+1] == '-':
			for i < len(script) && script[i] != '\n' {
				i++
			}
			b.WriteByte('\n')
		case !inQuote && c == ';':
			flush()
		default:
			b.WriteByte(c)
		}
	}
	flush()
	return out
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// BreakpointTable is the table every breakpoint database carries. Its column
// layout belongs to whoever wrote the database and is read at runtime.
const BreakpointTable = "breakpointobservation"

const loadBreakpointsSQL = "select * from " + BreakpointTable

var (
	ErrNoTable       = errors.New("table not found")
	ErrUnknownColumn = errors.New("unknown column")
)

// Open opens the database at path read-only. A missing file is an error; the
// driver is never allowed to create one.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("db path is required")
	}

	db, err := sql.Open("sqlite", readOnlyDSN(path))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return db, nil
}

func readOnlyDSN(path string) string {
	escape := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")
	return "file:" + escape.Replace(path) + "?mode=ro"
}

// RecordSet is a fully materialized query result.
type RecordSet struct {
	Columns []string
	Rows    [][]any
}

func (rs *RecordSet) Len() int {
	return len(rs.Rows)
}

// Maps returns the rows keyed by column name.
func (rs *RecordSet) Maps() []map[string]any {
	result := make([]map[string]any, 0, len(rs.Rows))
	for _, values := range rs.Rows {
		row := make(map[string]any, len(rs.Columns))
		for i, col := range rs.Columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}
	return result
}

// LoadBreakpoints reads the whole breakpoint table into memory.
func LoadBreakpoints(ctx context.Context, db *sql.DB) (*RecordSet, error) {
	rows, err := db.QueryContext(ctx, loadBreakpointsSQL)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", BreakpointTable, err)
	}
	defer rows.Close()

	rs, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", BreakpointTable, err)
	}
	return rs, nil
}

func CountBreakpoints(ctx context.Context, db *sql.DB) (int64, error) {
	var count int64
	row := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(BreakpointTable))
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", BreakpointTable, err)
	}
	return count, nil
}

// Columns returns the column names of table in schema order.
func Columns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTable, table)
	}
	return cols, nil
}

type SelectOptions struct {
	Columns []string
	Limit   *int
	Offset  *int
}

// SelectBreakpoints returns a page of the breakpoint table in scan order.
// Requested columns are checked against the live schema.
func SelectBreakpoints(ctx context.Context, db *sql.DB, opts SelectOptions) (*RecordSet, error) {
	allowed, err := Columns(ctx, db, BreakpointTable)
	if err != nil {
		return nil, err
	}
	cols, err := validateColumns(allowed, opts.Columns)
	if err != nil {
		return nil, err
	}

	selectCols := "*"
	if len(cols) > 0 {
		selectCols = strings.Join(cols, ", ")
	}

	var args []any
	limitSQL := ""
	if opts.Limit != nil || opts.Offset != nil {
		limit := -1
		if opts.Limit != nil {
			limit = *opts.Limit
		}
		limitSQL = " LIMIT ?"
		args = append(args, limit)
		if opts.Offset != nil {
			limitSQL += " OFFSET ?"
			args = append(args, *opts.Offset)
		}
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s", selectCols, quoteIdent(BreakpointTable), limitSQL)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collect(rows)
}

func validateColumns(allowed []string, columns []string) ([]string, error) {
	if len(columns) == 0 {
		return nil, nil
	}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, col := range allowed {
		allowedSet[col] = struct{}{}
	}

	result := make([]string, 0, len(columns))
	for _, col := range columns {
		if _, ok := allowedSet[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, col)
		}
		result = append(result, quoteIdent(col))
	}
	return result, nil
}

func quoteIdent(name string) string {
	return "\"" + strings.ReplaceAll(name, "\"", "\"\"") + "\""
}

func collect(rows *sql.Rows) (*RecordSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &RecordSet{Columns: cols, Rows: make([][]any, 0)}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, values)
	}
	return rs, rows.Err()
}

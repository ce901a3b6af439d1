// Package testdb builds throwaway breakpoint databases for tests.
package testdb

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const createBreakpoints = `CREATE TABLE breakpointobservation (
	id INTEGER PRIMARY KEY,
	chr TEXT NOT NULL,
	start INTEGER NOT NULL,
	"end" INTEGER NOT NULL,
	sample TEXT,
	depth REAL,
	raw BLOB
)`

// WithBreakpoints writes a database holding n breakpoint rows and returns its
// path.
func WithBreakpoints(tb testing.TB, n int) string {
	tb.Helper()
	return build(tb, func(db *sql.DB) {
		exec(tb, db, createBreakpoints)
		for i := 0; i < n; i++ {
			_, err := db.Exec(
				`INSERT INTO breakpointobservation (chr, start, "end", sample, depth, raw) VALUES (?, ?, ?, ?, ?, ?)`,
				fmt.Sprintf("chr%d", i%22+1), 1000*i, 1000*i+150, fmt.Sprintf("S%03d", i), float64(i)/2, []byte{byte(i)},
			)
			require.NoError(tb, err)
		}
	})
}

// WithoutBreakpoints writes a valid database that has no breakpoint table.
func WithoutBreakpoints(tb testing.TB) string {
	tb.Helper()
	return build(tb, func(db *sql.DB) {
		exec(tb, db, `CREATE TABLE genes (name TEXT)`)
	})
}

func build(tb testing.TB, fill func(*sql.DB)) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "breakpoints.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(tb, err)
	defer db.Close()
	fill(db)
	return path
}

func exec(tb testing.TB, db *sql.DB, stmt string) {
	tb.Helper()
	_, err := db.Exec(stmt)
	require.NoError(tb, err, "exec %q", stmt)
}

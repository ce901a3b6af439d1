package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schism/internal/testdb"
)

func intPtr(v int) *int { return &v }

func TestOpen_MissingFileIsNotCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	_, err := Open(context.Background(), path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "read-only open must not create %s", path)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	require.Error(t, err)
}

func TestOpen_IsReadOnly(t *testing.T) {
	sqlDB, err := Open(context.Background(), testdb.WithBreakpoints(t, 1))
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = sqlDB.Exec(`DELETE FROM breakpointobservation`)
	require.Error(t, err)
}

func TestLoadBreakpoints(t *testing.T) {
	sqlDB, err := Open(context.Background(), testdb.WithBreakpoints(t, 7))
	require.NoError(t, err)
	defer sqlDB.Close()

	rs, err := LoadBreakpoints(context.Background(), sqlDB)
	require.NoError(t, err)

	assert.Equal(t, 7, rs.Len())
	assert.Equal(t, []string{"id", "chr", "start", "end", "sample", "depth", "raw"}, rs.Columns)
	assert.Equal(t, "chr1", rs.Rows[0][1])
	assert.Equal(t, []byte{6}, rs.Rows[6][6])
}

func TestLoadBreakpoints_EmptyTable(t *testing.T) {
	sqlDB, err := Open(context.Background(), testdb.WithBreakpoints(t, 0))
	require.NoError(t, err)
	defer sqlDB.Close()

	rs, err := LoadBreakpoints(context.Background(), sqlDB)
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
	assert.Len(t, rs.Columns, 7)
}

func TestLoadBreakpoints_MissingTable(t *testing.T) {
	sqlDB, err := Open(context.Background(), testdb.WithoutBreakpoints(t))
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = LoadBreakpoints(context.Background(), sqlDB)
	require.Error(t, err)
	assert.Contains(t, err.Error(), BreakpointTable)
}

func TestLoadBreakpoints_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite database, just some text padding it out"), 0o644))

	sqlDB, openErr := Open(context.Background(), path)
	var loadErr error
	if openErr == nil {
		defer sqlDB.Close()
		_, loadErr = LoadBreakpoints(context.Background(), sqlDB)
	}
	assert.True(t, (openErr == nil) != (loadErr == nil), "open=%v load=%v", openErr, loadErr)
	if loadErr != nil {
		assert.Contains(t, loadErr.Error(), "not a database")
	}
}

func TestRecordSetMaps(t *testing.T) {
	rs := &RecordSet{
		Columns: []string{"chr", "start"},
		Rows:    [][]any{{"chr1", int64(10)}, {"chrX", int64(20)}},
	}

	maps := rs.Maps()
	require.Len(t, maps, 2)
	assert.Equal(t, map[string]any{"chr": "chrX", "start": int64(20)}, maps[1])
}

func TestCountBreakpoints(t *testing.T) {
	sqlDB, err := Open(context.Background(), testdb.WithBreakpoints(t, 12))
	require.NoError(t, err)
	defer sqlDB.Close()

	count, err := CountBreakpoints(context.Background(), sqlDB)
	require.NoError(t, err)
	assert.EqualValues(t, 12, count)
}

func TestColumns_MissingTable(t *testing.T) {
	sqlDB, err := Open(context.Background(), testdb.WithoutBreakpoints(t))
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = Columns(context.Background(), sqlDB, BreakpointTable)
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestSelectBreakpoints(t *testing.T) {
	sqlDB, err := Open(context.Background(), testdb.WithBreakpoints(t, 10))
	require.NoError(t, err)
	defer sqlDB.Close()
	ctx := context.Background()

	tests := []struct {
		name     string
		opts     SelectOptions
		wantLen  int
		wantCols []string
	}{
		{name: "all", opts: SelectOptions{}, wantLen: 10, wantCols: []string{"id", "chr", "start", "end", "sample", "depth", "raw"}},
		{name: "projection", opts: SelectOptions{Columns: []string{"chr", "end"}}, wantLen: 10, wantCols: []string{"chr", "end"}},
		{name: "limit", opts: SelectOptions{Limit: intPtr(3)}, wantLen: 3},
		{name: "offset only", opts: SelectOptions{Offset: intPtr(8)}, wantLen: 2},
		{name: "limit and offset", opts: SelectOptions{Limit: intPtr(4), Offset: intPtr(9)}, wantLen: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := SelectBreakpoints(ctx, sqlDB, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, rs.Len())
			if tt.wantCols != nil {
				assert.Equal(t, tt.wantCols, rs.Columns)
			}
		})
	}
}

func TestSelectBreakpoints_UnknownColumn(t *testing.T) {
	sqlDB, err := Open(context.Background(), testdb.WithBreakpoints(t, 1))
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = SelectBreakpoints(context.Background(), sqlDB, SelectOptions{Columns: []string{`chr"; DROP TABLE x; --`}})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestReadOnlyDSN(t *testing.T) {
	assert.Equal(t, "file:/data/bp.db?mode=ro", readOnlyDSN("/data/bp.db"))
	assert.Equal(t, "file:/data/a%3fb%23c%25.db?mode=ro", readOnlyDSN("/data/a?b#c%.db"))
}

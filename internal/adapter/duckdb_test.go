package adapter

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryAdapter(t *testing.T) *DuckDBAdapter {
	t.Helper()

	a := NewDuckDBAdapter()
	require.NoError(t, a.Connect(context.Background(), Config{Path: ":memory:"}))
	t.Cleanup(func() { _ = a.Close() })

	return a
}

func TestConnectAndQuery(t *testing.T) {
	a := newMemoryAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Exec(ctx, "CREATE TABLE t (n INTEGER)"))
	require.NoError(t, a.Exec(ctx, "INSERT INTO t VALUES (1), (2), (3)"))

	var sum int64
	require.NoError(t, a.QueryRow(ctx, "SELECT SUM(n) FROM t").Scan(&sum))
	assert.Equal(t, int64(6), sum)
}

func TestExecWithoutConnection(t *testing.T) {
	a := NewDuckDBAdapter()
	err := a.Exec(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")
}

func TestTxRollsBackOnError(t *testing.T) {
	a := newMemoryAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Exec(ctx, "CREATE TABLE t (n INTEGER)"))

	err := a.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO t VALUES (1)"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "INSERT INTO missing_table VALUES (1)")
		return err
	})
	require.Error(t, err)

	var n int64
	require.NoError(t, a.QueryRow(ctx, "SELECT COUNT(*) FROM t").Scan(&n))
	assert.Zero(t, n, "failed transaction leaves no partial writes")
}

func TestTxCommits(t *testing.T) {
	a := newMemoryAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Exec(ctx, "CREATE TABLE t (n INTEGER)"))
	require.NoError(t, a.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO t VALUES (1), (2)")
		return err
	}))

	var n int64
	require.NoError(t, a.QueryRow(ctx, "SELECT COUNT(*) FROM t").Scan(&n))
	assert.Equal(t, int64(2), n)
}

func TestLoadCSV(t *testing.T) {
	a := newMemoryAdapter(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,Ann\n2,Ben\n"), 0o644))

	require.NoError(t, a.LoadCSV(ctx, nil, "staging.people", path, false))

	ok, err := a.TableExists(ctx, "staging.people")
	require.NoError(t, err)
	assert.True(t, ok)

	var n int64
	require.NoError(t, a.QueryRow(ctx, "SELECT COUNT(*) FROM staging.people").Scan(&n))
	assert.Equal(t, int64(2), n)
}

func TestLoadCSVReplaces(t *testing.T) {
	a := newMemoryAdapter(t)
	ctx := context.Background()

	dir := t.TempDir()
	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "second.csv")
	require.NoError(t, os.WriteFile(first, []byte("id\n1\n2\n3\n"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("id\n1\n"), 0o644))

	require.NoError(t, a.LoadCSV(ctx, nil, "staging.t", first, false))
	require.NoError(t, a.LoadCSV(ctx, nil, "staging.t", second, false))

	var n int64
	require.NoError(t, a.QueryRow(ctx, "SELECT COUNT(*) FROM staging.t").Scan(&n))
	assert.Equal(t, int64(1), n, "reload replaces, never appends")
}

func TestLoadCSVQuotedPath(t *testing.T) {
	a := newMemoryAdapter(t)
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "o'brien data")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,Ann\n"), 0o644))

	require.NoError(t, a.LoadCSV(ctx, nil, "staging.people", path, false))

	var n int64
	require.NoError(t, a.QueryRow(ctx, "SELECT COUNT(*) FROM staging.people").Scan(&n))
	assert.Equal(t, int64(1), n)
}

func TestLoadCSVInTransaction(t *testing.T) {
	a := newMemoryAdapter(t)
	ctx := context.Background()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	require.NoError(t, os.WriteFile(good, []byte("id\n1\n2\n"), 0o644))

	err := a.Tx(ctx, func(tx *sql.Tx) error {
		if err := a.LoadCSV(ctx, tx, "staging.good", good, false); err != nil {
			return err
		}
		return a.LoadCSV(ctx, tx, "staging.bad", filepath.Join(dir, "absent.csv"), false)
	})
	require.Error(t, err)

	// The failed unit rolled back wholesale: the first load is gone too.
	ok, err := a.TableExists(ctx, "staging.good")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadCSVIgnoreErrors(t *testing.T) {
	a := newMemoryAdapter(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,Ann\n2,Ben,EXTRA\n3,Cyd\n"), 0o644))

	// Strict load rejects the inconsistent row.
	require.Error(t, a.LoadCSV(ctx, nil, "staging.strict", path, false))

	// Lenient load drops it and keeps the rest.
	require.NoError(t, a.LoadCSV(ctx, nil, "staging.lenient", path, true))
	var n int64
	require.NoError(t, a.QueryRow(ctx, "SELECT COUNT(*) FROM staging.lenient").Scan(&n))
	assert.Equal(t, int64(2), n)

	// The dropped record is accounted for in the reject table.
	var rejected int64
	require.NoError(t, a.QueryRow(ctx,
		"SELECT COUNT(DISTINCT line) FROM "+RejectTable("staging.lenient")).Scan(&rejected))
	assert.Equal(t, int64(1), rejected)

	// A clean reload resets the reject accounting.
	good := filepath.Join(t.TempDir(), "good.csv")
	require.NoError(t, os.WriteFile(good, []byte("id,name\n1,Ann\n"), 0o644))
	require.NoError(t, a.LoadCSV(ctx, nil, "staging.lenient", good, true))
}

func TestRejectTable(t *testing.T) {
	assert.Equal(t, "staging_orders_rejects", RejectTable("staging.orders"))
	assert.Equal(t, "t_rejects", RejectTable("t"))
}

func TestTableExists(t *testing.T) {
	a := newMemoryAdapter(t)
	ctx := context.Background()

	ok, err := a.TableExists(ctx, "main.nothing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Exec(ctx, "CREATE SCHEMA mart"))
	require.NoError(t, a.Exec(ctx, "CREATE TABLE mart.dim_customers (id INTEGER)"))

	ok, err = a.TableExists(ctx, "mart.dim_customers")
	require.NoError(t, err)
	assert.True(t, ok)

	// Unqualified names probe the main schema.
	ok, err = a.TableExists(ctx, "dim_customers")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadOnlyConnection(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "warehouse.duckdb")

	writer := NewDuckDBAdapter()
	require.NoError(t, writer.Connect(ctx, Config{Path: path}))
	require.NoError(t, writer.Exec(ctx, "CREATE TABLE t (n INTEGER)"))
	require.NoError(t, writer.Close())

	reader := NewDuckDBAdapter()
	require.NoError(t, reader.Connect(ctx, Config{Path: path, ReadOnly: true}))
	defer func() { _ = reader.Close() }()

	ok, err := reader.TableExists(ctx, "t")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Error(t, reader.Exec(ctx, "INSERT INTO t VALUES (1)"))
}

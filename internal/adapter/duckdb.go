package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// DuckDBAdapter implements the Adapter interface for DuckDB.
type DuckDBAdapter struct {
	db     *sql.DB
	config Config
}

// NewDuckDBAdapter creates a new DuckDB adapter instance.
func NewDuckDBAdapter() *DuckDBAdapter {
	return &DuckDBAdapter{}
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *DuckDBAdapter) Connect(ctx context.Context, cfg Config) error {
	dsn := cfg.Path
	if dsn == "" {
		dsn = ":memory:"
	}

	params := url.Values{}
	if cfg.ReadOnly {
		params.Set("access_mode", "read_only")
	}
	for k, v := range cfg.Options {
		params.Set(k, v)
	}
	if len(params) > 0 {
		dsn = dsn + "?" + params.Encode()
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// The warehouse is owned by a single logical connection per run.
	db.SetMaxOpenConns(1)

	a.db = db
	a.config = cfg

	return nil
}

// Close closes the DuckDB connection.
func (a *DuckDBAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (a *DuckDBAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if a.db == nil {
		return fmt.Errorf("database connection not established")
	}

	if _, err := a.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}

	return nil
}

// Query executes a SQL statement that returns rows.
func (a *DuckDBAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*Rows, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := a.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}

	return &Rows{Rows: rows}, nil
}

// QueryRow executes a SQL statement expected to return at most one row.
func (a *DuckDBAdapter) QueryRow(ctx context.Context, sqlStr string, args ...any) *sql.Row {
	return a.db.QueryRowContext(ctx, sqlStr, args...)
}

// Tx runs fn inside a transaction. The transaction is rolled back if fn
// returns an error, so partial writes are never visible.
func (a *DuckDBAdapter) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if a.db == nil {
		return fmt.Errorf("database connection not established")
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LoadCSV loads data from a CSV file into a table using read_csv with
// automatic schema detection. The table's schema is created if needed.
func (a *DuckDBAdapter) LoadCSV(ctx context.Context, ex Execer, table, path string, ignoreErrors bool) error {
	if a.db == nil {
		return fmt.Errorf("database connection not established")
	}
	if ex == nil {
		ex = a.db
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	if parts := strings.SplitN(table, ".", 2); len(parts) == 2 {
		if _, err := ex.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", parts[0])); err != nil {
			return fmt.Errorf("failed to create schema for %s: %w", table, err)
		}
	}

	opts := "header=true"
	if ignoreErrors {
		// Rejected rows land in a per-table reject table so callers can
		// count exactly how many records the engine dropped. The table is
		// recreated on every load to keep counts per-pass.
		rejects := RejectTable(table)
		if _, err := ex.ExecContext(ctx, "DROP TABLE IF EXISTS "+rejects); err != nil {
			return fmt.Errorf("failed to reset reject table for %s: %w", table, err)
		}
		opts += fmt.Sprintf(", ignore_errors=true, store_rejects=true, rejects_table='%s'", rejects)
	}

	query := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv('%s', %s)",
		table, quoteSQLString(absPath), opts,
	)

	if _, err := ex.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to load CSV into %s: %w", table, err)
	}

	return nil
}

// RejectTable returns the name of the temporary table that collects the rows
// the engine rejected while loading table in lenient mode.
func RejectTable(table string) string {
	return strings.ReplaceAll(table, ".", "_") + "_rejects"
}

// quoteSQLString escapes a value for use inside a single-quoted SQL literal.
func quoteSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// TableExists reports whether a schema-qualified table exists.
func (a *DuckDBAdapter) TableExists(ctx context.Context, table string) (bool, error) {
	if a.db == nil {
		return false, fmt.Errorf("database connection not established")
	}

	schema := "main"
	name := table
	if parts := strings.SplitN(table, ".", 2); len(parts) == 2 {
		schema = parts[0]
		name = parts[1]
	}

	var count int
	err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = ? AND table_name = ?
	`, schema, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}

	return count > 0, nil
}

// Ensure DuckDBAdapter implements Adapter interface
var _ Adapter = (*DuckDBAdapter)(nil)

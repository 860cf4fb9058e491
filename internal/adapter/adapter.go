// Package adapter provides the database adapter used to talk to the embedded
// analytical engine that backs the warehouse.
package adapter

import (
	"context"
	"database/sql"
)

// Config holds the configuration for connecting to the warehouse database.
type Config struct {
	// Path is the database file path. Use ":memory:" for an in-memory database.
	Path string

	// ReadOnly opens the database in read-only mode. Query-only commands use
	// this so they can never mutate the warehouse.
	ReadOnly bool

	// Options contains additional driver-specific settings passed through
	// as DSN parameters.
	Options map[string]string
}

// Rows wraps sql.Rows to keep callers decoupled from the driver.
type Rows struct {
	*sql.Rows
}

// Execer is the statement target for loads: either the connection itself or a
// transaction, so multi-source loads can share one commit boundary.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Adapter is the interface the pipeline and executor use to reach the engine.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec executes a statement that doesn't return rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query executes a statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)

	// QueryRow executes a statement expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) *sql.Row

	// Tx runs fn inside a transaction, committing on nil and rolling back on
	// error. Readers never observe a half-applied unit of work.
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error

	// LoadCSV loads a CSV file into a table, replacing it if it exists.
	// The load executes against ex, which may be a transaction; a nil ex
	// targets the connection directly. When ignoreErrors is true, rows the
	// engine cannot coerce are skipped instead of aborting the load.
	LoadCSV(ctx context.Context, ex Execer, table, path string, ignoreErrors bool) error

	// TableExists reports whether a schema-qualified table exists.
	TableExists(ctx context.Context, table string) (bool, error)
}

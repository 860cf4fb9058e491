// Package executor resolves catalog entries against the live warehouse
// connection and produces row results or execution plans.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/duckmart/duckmart/internal/adapter"
	"github.com/duckmart/duckmart/internal/catalog"
)

// Row is a single result row, keyed by column name.
type Row map[string]any

// Result is the outcome of executing (or explaining) one named query.
type Result struct {
	Name      string
	Columns   []string
	Rows      []Row
	Plan      string
	Explained bool
	Elapsed   time.Duration
}

// Entry pairs a query name with its result or failure in a run-all report.
type Entry struct {
	Name   string
	Result *Result
	Err    error
}

// Report collects per-query outcomes of a run-all invocation, in catalog
// source order. Every catalog entry appears exactly once.
type Report struct {
	Entries []Entry
}

// Succeeded returns the names of queries that completed.
func (r *Report) Succeeded() []string {
	var names []string
	for _, e := range r.Entries {
		if e.Err == nil {
			names = append(names, e.Name)
		}
	}
	return names
}

// Failed returns the names of queries that failed.
func (r *Report) Failed() []string {
	var names []string
	for _, e := range r.Entries {
		if e.Err != nil {
			names = append(names, e.Name)
		}
	}
	return names
}

// QueryNotFoundError reports a requested name absent from the catalog,
// listing the valid names.
type QueryNotFoundError struct {
	Name      string
	Available []string
}

func (e *QueryNotFoundError) Error() string {
	avail := append([]string(nil), e.Available...)
	sort.Strings(avail)
	return fmt.Sprintf("query %q not found, available: %s", e.Name, strings.Join(avail, ", "))
}

// Executor runs named catalog statements against the warehouse.
type Executor struct {
	db     adapter.Adapter
	cat    *catalog.Catalog
	logger *slog.Logger
}

// New creates an executor over a catalog and a warehouse connection.
func New(db adapter.Adapter, cat *catalog.Catalog, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{db: db, cat: cat, logger: logger}
}

// Run looks up name in the catalog and executes its statement verbatim,
// returning the tabular result.
func (e *Executor) Run(ctx context.Context, name string) (*Result, error) {
	q, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, q, false)
}

// Explain looks up name and returns the engine's plan for its statement.
// The statement itself is never executed, so nothing is mutated.
func (e *Executor) Explain(ctx context.Context, name string) (*Result, error) {
	q, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, q, true)
}

// RunAll executes every catalog entry once, in source order. A failure in
// one statement is recorded against that name and does not stop the rest.
func (e *Executor) RunAll(ctx context.Context, explain bool) *Report {
	report := &Report{}

	for _, name := range e.cat.Names() {
		q, _ := e.cat.Get(name)

		res, err := e.execute(ctx, q, explain)
		if err != nil {
			e.logger.Error("query failed", "query", name, "error", err)
		}
		report.Entries = append(report.Entries, Entry{Name: name, Result: res, Err: err})
	}

	return report
}

func (e *Executor) lookup(name string) (*catalog.Query, error) {
	q, ok := e.cat.Get(name)
	if !ok {
		return nil, &QueryNotFoundError{Name: name, Available: e.cat.Names()}
	}
	return q, nil
}

func (e *Executor) execute(ctx context.Context, q *catalog.Query, explain bool) (*Result, error) {
	if strings.TrimSpace(q.SQL) == "" {
		return nil, fmt.Errorf("query %q has an empty statement", q.Name)
	}

	stmt := q.SQL
	if explain {
		stmt = "EXPLAIN " + stmt
	}

	start := time.Now()
	rows, err := e.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", q.Name, err)
	}
	defer func() { _ = rows.Close() }()

	result := &Result{Name: q.Name, Explained: explain}

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", q.Name, err)
	}
	result.Columns = cols

	var planParts []string
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("query %q failed: %w", q.Name, err)
		}

		if explain {
			for _, v := range values {
				if v == nil {
					continue
				}
				planParts = append(planParts, fmt.Sprintf("%v", v))
			}
			continue
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			val := values[i]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			row[col] = val
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %q failed: %w", q.Name, err)
	}

	if explain {
		result.Plan = strings.Join(planParts, "\n")
	}
	result.Elapsed = time.Since(start)

	e.logger.Debug("query executed",
		"query", q.Name, "rows", len(result.Rows), "explained", explain,
		"elapsed", result.Elapsed.Round(time.Millisecond))

	return result, nil
}

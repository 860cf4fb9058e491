package warehouse

// stage.go - raw source staging (the source reader)

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/duckmart/duckmart/internal/adapter"
)

// Source describes one raw tabular input.
type Source struct {
	// Name is the staging relation name (staging.<Name>).
	Name string
	// File is the CSV file name inside the raw directory.
	File string
}

// sources are the raw inputs required to build the warehouse, in load order.
var sources = []Source{
	{Name: "customers", File: "customers.csv"},
	{Name: "products", File: "products.csv"},
	{Name: "orders", File: "orders.csv"},
}

// SourceCounts holds per-source load statistics.
type SourceCounts struct {
	Read    int64
	Staged  int64
	Skipped int64
}

// StageOutcome summarizes a staging pass.
type StageOutcome struct {
	Loaded    int64
	Skipped   int64
	PerSource map[string]SourceCounts
	Relations []string
}

// Stage loads every raw source into its staging relation, replacing whatever
// was there. A missing source file is fatal; malformed rows follow the
// configured policy. All loads share one transaction, so a failure on any
// source leaves the previous staging state intact.
func (p *Pipeline) Stage(ctx context.Context) (*StageOutcome, error) {
	outcome := &StageOutcome{PerSource: make(map[string]SourceCounts)}

	// Verify every source exists before touching the warehouse.
	for _, src := range sources {
		path := filepath.Join(p.cfg.RawDir, src.File)
		if _, err := os.Stat(path); err != nil {
			return nil, &SourceUnavailableError{Source: src.Name, Path: path, Err: err}
		}
	}

	ignoreErrors := p.cfg.OnMalformed != PolicyAbort

	err := p.db.Tx(ctx, func(tx *sql.Tx) error {
		for _, src := range sources {
			path := filepath.Join(p.cfg.RawDir, src.File)
			relation := "staging." + src.Name

			if err := p.db.LoadCSV(ctx, tx, relation, path, ignoreErrors); err != nil {
				return fmt.Errorf("failed to stage source %q: %w", src.Name, err)
			}

			var staged int64
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+relation).Scan(&staged); err != nil {
				return fmt.Errorf("failed to count staged rows for %q: %w", src.Name, err)
			}

			var skipped int64
			if ignoreErrors {
				var err error
				skipped, err = countRejected(ctx, tx, relation)
				if err != nil {
					return fmt.Errorf("failed to count rejected rows for %q: %w", src.Name, err)
				}
			}
			read := staged + skipped

			p.logger.Debug("staged source",
				"source", src.Name, "read", read, "staged", staged, "skipped", skipped)

			outcome.PerSource[src.Name] = SourceCounts{Read: read, Staged: staged, Skipped: skipped}
			outcome.Loaded += staged
			outcome.Skipped += skipped
			outcome.Relations = append(outcome.Relations, relation)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	p.phase = PhaseStaged
	return outcome, nil
}

// countRejected returns the number of records the engine dropped while
// loading relation in lenient mode. Records, not physical lines: a quoted
// field may span lines, so the count comes from the engine's reject table
// rather than any scan of the file. A record with several errors appears once
// per error, hence the DISTINCT on its record number. The engine creates the
// reject table lazily, so a clean load may leave it absent.
func countRejected(ctx context.Context, tx *sql.Tx, relation string) (int64, error) {
	var n int64
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT line) FROM "+adapter.RejectTable(relation)).Scan(&n)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

package state

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// CreateRun records the start of a new run.
func (s *SQLiteStore) CreateRun(kind RunKind) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        generateID(),
		Kind:      kind,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, kind, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Kind, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	s.logger.Debug("created run", "run_id", run.ID, "kind", kind)
	return run, nil
}

// CompleteRun marks a run finished with its status and outcome counts.
// counts may be nil for query-only runs.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, errMsg string, counts *ETLCounts) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	c := counts
	if c == nil {
		c = &ETLCounts{}
	}

	res, err := s.db.Exec(
		`UPDATE runs
		 SET status = ?, completed_at = ?, error = ?,
		     records_loaded = ?, records_skipped = ?, orphans_dropped = ?, relations_built = ?
		 WHERE id = ?`,
		status, time.Now().UTC(), errMsg,
		c.RecordsLoaded, c.RecordsSkipped, c.OrphansDropped, c.RelationsBuilt,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", id)
	}

	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := s.db.QueryRow(
		`SELECT id, kind, status, started_at, completed_at, error,
		        records_loaded, records_skipped, orphans_dropped, relations_built
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Kind, &run.Status, &run.StartedAt, &completedAt, &errMsg,
		&run.RecordsLoaded, &run.RecordsSkipped, &run.OrphansDropped, &run.RelationsBuilt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.Error = errMsg.String

	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, kind, status, started_at, completed_at, error,
		        records_loaded, records_skipped, orphans_dropped, relations_built
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var completedAt sql.NullTime
		var errMsg sql.NullString

		if err := rows.Scan(&run.ID, &run.Kind, &run.Status, &run.StartedAt, &completedAt, &errMsg,
			&run.RecordsLoaded, &run.RecordsSkipped, &run.OrphansDropped, &run.RelationsBuilt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if completedAt.Valid {
			t := completedAt.Time
			run.CompletedAt = &t
		}
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// RecordQueryRun records one query execution against a run.
func (s *SQLiteStore) RecordQueryRun(qr *QueryRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if qr.ID == "" {
		qr.ID = generateID()
	}

	_, err := s.db.Exec(
		`INSERT INTO query_runs (id, run_id, name, status, row_count, duration_ms, explained, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		qr.ID, qr.RunID, qr.Name, qr.Status, qr.RowCount, qr.DurationMS, qr.Explained, qr.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record query run: %w", err)
	}

	return nil
}

// GetQueryRunsForRun returns all query executions recorded for a run, in
// insertion order.
func (s *SQLiteStore) GetQueryRunsForRun(runID string) ([]*QueryRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, name, status, row_count, duration_ms, explained, error
		 FROM query_runs WHERE run_id = ? ORDER BY rowid`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*QueryRun
	for rows.Next() {
		qr := &QueryRun{}
		if err := rows.Scan(&qr.ID, &qr.RunID, &qr.Name, &qr.Status, &qr.RowCount,
			&qr.DurationMS, &qr.Explained, &qr.Error); err != nil {
			return nil, fmt.Errorf("failed to scan query run: %w", err)
		}
		out = append(out, qr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate query runs: %w", err)
	}

	return out, nil
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)

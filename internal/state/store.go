// Package state persists run history in a local SQLite database.
package state

import "time"

// RunStatus is the lifecycle status of a pipeline or query run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunKind identifies what a run did.
type RunKind string

const (
	RunKindETL     RunKind = "etl"
	RunKindQueries RunKind = "queries"
	RunKindFull    RunKind = "full"
)

// Run is one recorded invocation of the pipeline or the query surface.
type Run struct {
	ID             string
	Kind           RunKind
	Status         RunStatus
	StartedAt      time.Time
	CompletedAt    *time.Time
	Error          string
	RecordsLoaded  int64
	RecordsSkipped int64
	OrphansDropped int64
	RelationsBuilt int64
}

// QueryRun is one query execution recorded against a run.
type QueryRun struct {
	ID         string
	RunID      string
	Name       string
	Status     RunStatus
	RowCount   int64
	DurationMS int64
	Explained  bool
	Error      string
}

// ETLCounts carries the ETL outcome numbers recorded when a run completes.
type ETLCounts struct {
	RecordsLoaded  int64
	RecordsSkipped int64
	OrphansDropped int64
	RelationsBuilt int64
}

// Store is the run-history persistence interface.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun(kind RunKind) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string, counts *ETLCounts) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	RecordQueryRun(qr *QueryRun) error
	GetQueryRunsForRun(runID string) ([]*QueryRun, error)
}

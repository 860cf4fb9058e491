// Package config provides configuration management for the duckmart CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	// RawDir is the directory holding the raw CSV sources.
	RawDir string `koanf:"raw_dir"`

	// DatabasePath is the DuckDB warehouse file (empty for in-memory).
	DatabasePath string `koanf:"database"`

	// CatalogPath is the report catalog document.
	CatalogPath string `koanf:"catalog"`

	// StatePath is the run-history SQLite database.
	StatePath string `koanf:"state_path"`

	// OnMalformed is the malformed-record policy: skip or abort.
	OnMalformed string `koanf:"on_malformed"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
}

// Default configuration values.
const (
	DefaultRawDir      = "data/raw"
	DefaultDatabase    = "data/warehouse.duckdb"
	DefaultCatalog     = "reports/queries.sql"
	DefaultStateFile   = ".duckmart/state.db"
	DefaultOnMalformed = "skip"
	DefaultOutput      = "table"
)

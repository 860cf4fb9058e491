// Package commands implements the duckmart subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/duckmart/duckmart/internal/adapter"
	"github.com/duckmart/duckmart/internal/cli/config"
	"github.com/duckmart/duckmart/internal/state"
	"github.com/duckmart/duckmart/internal/warehouse"
	"github.com/spf13/cobra"
)

// Runtime bundles the resources a command needs: config, logger, the
// warehouse connection, and the run-history store.
type Runtime struct {
	Cfg    *config.Config
	Logger *slog.Logger
	DB     adapter.Adapter
	Store  state.Store
}

// newRuntime builds a runtime from the command context, connecting to the
// warehouse and opening the state store. readOnly commands can never mutate
// the warehouse.
func newRuntime(cmd *cobra.Command, readOnly bool) (*Runtime, error) {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	log := config.GetLogger(ctx)

	rt := &Runtime{Cfg: cfg, Logger: log}

	if cfg.DatabasePath != "" && cfg.DatabasePath != ":memory:" {
		if readOnly {
			if _, err := os.Stat(cfg.DatabasePath); err != nil {
				return nil, fmt.Errorf("warehouse %s does not exist (run 'duckmart etl' first)", cfg.DatabasePath)
			}
		} else if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create warehouse directory: %w", err)
		}
	}

	db := adapter.NewDuckDBAdapter()
	if err := db.Connect(ctx, adapter.Config{Path: cfg.DatabasePath, ReadOnly: readOnly}); err != nil {
		return nil, err
	}
	rt.DB = db

	store, err := openStateStore(cfg, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	rt.Store = store

	return rt, nil
}

// openStateStore opens and migrates the run-history store.
func openStateStore(cfg *config.Config, log *slog.Logger) (state.Store, error) {
	if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(log)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate state store: %w", err)
	}

	return store, nil
}

// Close releases the runtime's resources.
func (rt *Runtime) Close() {
	if rt.DB != nil {
		_ = rt.DB.Close()
	}
	if rt.Store != nil {
		_ = rt.Store.Close()
	}
}

// newPipeline constructs the warehouse pipeline from the runtime.
func (rt *Runtime) newPipeline() *warehouse.Pipeline {
	return warehouse.New(rt.DB, warehouse.Config{
		RawDir:      rt.Cfg.RawDir,
		OnMalformed: warehouse.MalformedPolicy(rt.Cfg.OnMalformed),
		Logger:      rt.Logger,
	})
}

// completeRun records a run outcome, logging rather than failing on state
// store errors so history never masks the real result.
func (rt *Runtime) completeRun(id string, status state.RunStatus, errMsg string, counts *state.ETLCounts) {
	if err := rt.Store.CompleteRun(id, status, errMsg, counts); err != nil {
		rt.Logger.Warn("failed to record run completion", "run_id", id, "error", err)
	}
}

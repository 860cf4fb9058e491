package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/duckmart/duckmart/internal/catalog"
	"github.com/duckmart/duckmart/internal/executor"
	"github.com/duckmart/duckmart/internal/state"
	"github.com/duckmart/duckmart/internal/warehouse"
	"github.com/spf13/cobra"
)

// QueriesOptions holds options for the queries command.
type QueriesOptions struct {
	Name    string
	Explain bool
	Format  string
}

// NewQueriesCommand creates the queries command.
func NewQueriesCommand() *cobra.Command {
	opts := &QueriesOptions{}

	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Execute analytical reports from the catalog",
		Long: `Run named analytical reports against the warehouse.

By default every report in the catalog runs, in document order; a failure in
one report is recorded against its name and does not stop the rest. Use
--name to run a single report and --explain to show the engine's plan
instead of executing.`,
		Example: `  # Run every report
  duckmart queries

  # Run one report
  duckmart queries --name revenue_last_30d_by_country

  # Show the plan without executing
  duckmart queries --name rolling_14d_revenue --explain`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			pipeline := rt.newPipeline()
			if err := pipeline.Refresh(cmd.Context()); err != nil {
				return err
			}

			return executeQueries(cmd.Context(), cmd, rt, pipeline, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Name, "name", "n", "", "Run only the named report")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "Show the execution plan instead of running")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md")

	return cmd
}

// executeQueries loads the catalog, runs the selected report(s), records the
// executions in the state store, and renders the results.
func executeQueries(ctx context.Context, cmd *cobra.Command, rt *Runtime, pipeline *warehouse.Pipeline, opts *QueriesOptions) error {
	if err := pipeline.EnsureReady("queries"); err != nil {
		return fmt.Errorf("%w (run 'duckmart etl' first)", err)
	}

	cat, err := catalog.ParseFile(rt.Cfg.CatalogPath)
	if err != nil {
		return err
	}

	format := opts.Format
	if format == "" {
		format = rt.Cfg.OutputFormat
	}

	run, err := rt.Store.CreateRun(state.RunKindQueries)
	if err != nil {
		return err
	}

	exec := executor.New(rt.DB, cat, rt.Logger)

	if opts.Name != "" {
		result, err := runOne(ctx, exec, opts.Name, opts.Explain)
		recordQueryRun(rt, run.ID, opts.Name, result, opts.Explain, err)
		if err != nil {
			rt.completeRun(run.ID, state.RunStatusFailed, err.Error(), nil)
			return err
		}

		rt.completeRun(run.ID, state.RunStatusCompleted, "", nil)
		return renderResult(cmd.OutOrStdout(), result, format)
	}

	report := exec.RunAll(ctx, opts.Explain)
	for _, entry := range report.Entries {
		recordQueryRun(rt, run.ID, entry.Name, entry.Result, opts.Explain, entry.Err)
	}

	if err := renderReport(cmd.OutOrStdout(), report, format); err != nil {
		return err
	}

	if failed := report.Failed(); len(failed) > 0 {
		msg := fmt.Sprintf("%d of %d reports failed", len(failed), len(report.Entries))
		rt.completeRun(run.ID, state.RunStatusFailed, msg, nil)
		return errors.New(msg)
	}

	rt.completeRun(run.ID, state.RunStatusCompleted, "", nil)
	return nil
}

func runOne(ctx context.Context, exec *executor.Executor, name string, explain bool) (*executor.Result, error) {
	if explain {
		return exec.Explain(ctx, name)
	}
	return exec.Run(ctx, name)
}

func recordQueryRun(rt *Runtime, runID, name string, result *executor.Result, explained bool, execErr error) {
	qr := &state.QueryRun{
		RunID:     runID,
		Name:      name,
		Status:    state.RunStatusCompleted,
		Explained: explained,
	}
	if result != nil {
		qr.RowCount = int64(len(result.Rows))
		qr.DurationMS = result.Elapsed.Milliseconds()
	}
	if execErr != nil {
		qr.Status = state.RunStatusFailed
		qr.Error = execErr.Error()
	}

	if err := rt.Store.RecordQueryRun(qr); err != nil {
		rt.Logger.Warn("failed to record query run", "query", name, "error", err)
	}
}

package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/duckmart/duckmart/internal/state"
	"github.com/duckmart/duckmart/internal/warehouse"
	"github.com/spf13/cobra"
)

// NewETLCommand creates the etl command.
func NewETLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "etl",
		Short: "Ingest raw sources and build the dimensional warehouse",
		Long: `Stage the raw CSV sources (customers, products, orders) and transform
them into the mart schema: deduplicated dimensions, the order fact relation
with derived measures, and the rollup tables.

The warehouse is rebuilt in full on every run.`,
		Example: `  # Build the warehouse
  duckmart etl

  # Abort on the first malformed record instead of skipping
  duckmart etl --on-malformed abort`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			outcome, err := executeETL(cmd.Context(), rt, state.RunKindETL)
			if err != nil {
				return err
			}

			printOutcome(cmd, outcome)
			return nil
		},
	}
}

// executeETL runs the pipeline and records the run in the state store.
func executeETL(ctx context.Context, rt *Runtime, kind state.RunKind) (*warehouse.Outcome, error) {
	run, err := rt.Store.CreateRun(kind)
	if err != nil {
		return nil, err
	}

	pipeline := rt.newPipeline()
	outcome, err := pipeline.Run(ctx)
	if err != nil {
		rt.completeRun(run.ID, state.RunStatusFailed, err.Error(), nil)
		return nil, err
	}

	rt.completeRun(run.ID, state.RunStatusCompleted, "", &state.ETLCounts{
		RecordsLoaded:  outcome.RecordsLoaded,
		RecordsSkipped: outcome.RecordsSkipped,
		OrphansDropped: outcome.OrphansDropped,
		RelationsBuilt: int64(len(outcome.RelationsBuilt)),
	})

	return outcome, nil
}

func printOutcome(cmd *cobra.Command, outcome *warehouse.Outcome) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Loaded %d records (%d skipped, %d orphans dropped)\n",
		outcome.RecordsLoaded, outcome.RecordsSkipped, outcome.OrphansDropped)
	fmt.Fprintf(w, "Built %d relations: %s\n",
		len(outcome.RelationsBuilt), strings.Join(outcome.RelationsBuilt, ", "))
	fmt.Fprintf(w, "Completed in %s\n", outcome.Elapsed.Round(time.Millisecond))
}

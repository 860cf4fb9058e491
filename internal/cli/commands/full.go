package commands

import (
	"github.com/duckmart/duckmart/internal/state"
	"github.com/spf13/cobra"
)

// NewFullCommand creates the full command.
func NewFullCommand() *cobra.Command {
	opts := &QueriesOptions{}

	cmd := &cobra.Command{
		Use:   "full",
		Short: "Run the ETL pipeline, then every report",
		Long: `Rebuild the warehouse from the raw sources and then execute every
report in the catalog, in document order.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			outcome, err := executeETL(cmd.Context(), rt, state.RunKindFull)
			if err != nil {
				return err
			}
			printOutcome(cmd, outcome)

			// The pipeline just ran in this process, but the executor still
			// goes through the same readiness gate as a query-only run.
			pipeline := rt.newPipeline()
			if err := pipeline.Refresh(cmd.Context()); err != nil {
				return err
			}

			return executeQueries(cmd.Context(), cmd, rt, pipeline, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "Show execution plans instead of running the reports")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md")

	return cmd
}

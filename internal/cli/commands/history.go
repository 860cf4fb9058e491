package commands

import (
	"fmt"
	"time"

	"github.com/duckmart/duckmart/internal/cli/config"
	"github.com/duckmart/duckmart/internal/state"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent run history",
		Long:  `List recent pipeline and report runs recorded in the state store, newest first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())

			store, err := openStateStore(cfg, config.GetLogger(cmd.Context()))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(w, "No runs recorded yet.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Started", "Kind", "Status", "Loaded", "Skipped", "Orphans", "Duration", "Error"})

			for _, run := range runs {
				t.AppendRow(table.Row{
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Kind,
					run.Status,
					run.RecordsLoaded,
					run.RecordsSkipped,
					run.OrphansDropped,
					runDuration(run),
					truncate(run.Error, 48),
				})
			}

			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}

func runDuration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

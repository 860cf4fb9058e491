package commands

import (
	"fmt"

	"github.com/duckmart/duckmart/internal/catalog"
	"github.com/duckmart/duckmart/internal/cli/config"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the reports in the catalog",
		Long:  `List all named reports in the catalog document, in source order.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())

			cat, err := catalog.ParseFile(cfg.CatalogPath)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Reports (%d total):\n", cat.Len())
			for i, name := range cat.Names() {
				fmt.Fprintf(w, "  %2d. %s\n", i+1, name)
			}

			return nil
		},
	}
}

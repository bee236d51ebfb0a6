package main

import (
	"canvas-e2e/internal/bootstrap"
	"canvas-e2e/internal/ports"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the learned self-healing strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var store ports.KnowledgeStore

			app := bootstrap.NewApp(fx.Populate(&store))
			if err := app.Err(); err != nil {
				return err
			}

			printStats(cmd.OutOrStdout(), store)

			return nil
		},
	}
}

func printStats(w io.Writer, store ports.KnowledgeStore) {
	stats := store.Stats()

	fmt.Fprintf(w, "%s %d\n", bold("Learned descriptions:"), stats.TotalLearned)

	for _, description := range stats.Descriptions {
		fmt.Fprintf(w, "  %s\n", cyan(description))

		for n, strategy := range store.Strategies(description) {
			fmt.Fprintf(w, "    %d. %s\n", n+1, strategy)
		}
	}
}

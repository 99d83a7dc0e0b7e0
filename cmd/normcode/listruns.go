package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listRunsCmd = &cobra.Command{
	Use:   "list-runs",
	Short: "List every run the checkpoint store knows about",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return fmt.Errorf("opening checkpoint store: %w", err)
		}
		runs, err := store.ListRuns(ctx)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tLATEST CYCLE\tPARENT\tCREATED")
		for _, r := range runs {
			parent := r.ParentRunID
			if parent == "" {
				parent = "-"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%d\n", r.RunID, r.LatestCycle, parent, r.CreatedAtUnix)
		}
		return w.Flush()
	},
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"normcode.dev/core/common"
)

var forkCycle int

var forkCmd = &cobra.Command{
	Use:   "fork <source-run-id> <new-run-id>",
	Short: "Fork a run's checkpoint forward as a new run's cycle 0",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return fmt.Errorf("opening checkpoint store: %w", err)
		}

		// Normalize operator-typed labels ("Bug Fix Attempt 2") into a
		// stable run ID; a string that's already a valid ID round-trips
		// unchanged.
		newRunID, err := common.Slugify(args[1], args[0]+"-fork")
		if err != nil {
			return fmt.Errorf("new run id: %w", err)
		}

		if err := store.Fork(ctx, args[0], forkCycle, newRunID); err != nil {
			return fmt.Errorf("forking %s -> %s: %w", args[0], newRunID, err)
		}
		fmt.Printf("forked %s (cycle %d) into %s\n", args[0], forkCycle, newRunID)
		return nil
	},
}

func init() {
	forkCmd.Flags().IntVar(&forkCycle, "cycle", 0, "source cycle to fork from")
}

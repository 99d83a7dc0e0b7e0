package main

import (
	"github.com/spf13/cobra"
)

// resumeRequest names the checkpoint a run resumes from.
type resumeRequest struct {
	runID string
	cycle int
}

var resumeCycle int

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id>",
	Short: "Resume a run from its latest (or a specific) checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := args[0]
		cycle := -1
		if resumeCycle >= 0 {
			cycle = resumeCycle
		}
		return runPlan(cmd.Context(), runID, &resumeRequest{runID: runID, cycle: cycle})
	},
}

func init() {
	resumeCmd.Flags().IntVar(&resumeCycle, "cycle", -1, "specific cycle to resume from (defaults to the latest)")
}

package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"normcode.dev/core/internal/httpapi"
	"normcode.dev/core/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run [run-id]",
	Short: "Run a plan from cycle 0",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := uuid.NewString()
		if len(args) == 1 {
			runID = args[0]
		}
		return runPlan(cmd.Context(), runID, nil)
	},
}

// runPlan loads the plan directory, wires an Orchestrator, and drives it
// to completion, optionally reconciling from a prior checkpoint first
// when resumeFrom is non-nil (used by resumeCmd).
func runPlan(ctx context.Context, runID string, resumeFrom *resumeRequest) error {
	p, err := loadPlan(planDir)
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("opening checkpoint store: %w", err)
	}

	orch := buildOrchestrator(p, runID, store)
	if resumeFrom != nil {
		if err := orch.Resume(ctx, resumeFrom.runID, resumeFrom.cycle); err != nil {
			return fmt.Errorf("resuming: %w", err)
		}
	}

	registry := httpapi.NewRegistry()
	registry.Register(runID, p.liveRun())
	defer registry.Unregister(runID)

	done := make(chan error, 1)
	go func() {
		done <- orch.Run(ctx)
	}()

	if noTUI {
		err := <-done
		if err != nil {
			return fmt.Errorf("run %s failed: %w", runID, err)
		}
		fmt.Printf("run %s complete\n", runID)
		return nil
	}

	model := tui.NewModel(runID, p.liveRun(), done)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	if m, ok := final.(*tui.Model); ok && m.Err() != nil {
		return fmt.Errorf("run %s failed: %w", runID, m.Err())
	}
	return nil
}

// Command normcode runs, resumes, forks, and lists plans of inferences
// (spec.md §6's illustrative CLI surface).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"normcode.dev/core/common/id"
	"normcode.dev/core/common/logger"
	"normcode.dev/core/common/otel"
	"normcode.dev/core/core/config"
	"normcode.dev/core/internal/checkpoint"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/orchestrator"
)

var (
	planDir  string
	dsn      string
	noTUI    bool
	maxCycle int

	telemetry *otel.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "normcode",
	Short: "Run plans of inferences",
	Long: `normcode drives a plan (concepts, inferences, paradigms) through the
cycle-based orchestrator, checkpointing progress and reporting the final
concept references.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if telemetry == nil {
			return nil
		}
		return telemetry.Shutdown(cmd.Context())
	},
}

// bootstrap wires OTel, structured logging, and the snowflake ID
// generator before any subcommand runs, in that order: the logger's
// production handler reads the OTel logger provider, so OTel must be
// ready first.
func bootstrap(ctx context.Context) error {
	cfg := config.Load()

	var err error
	telemetry, err = otel.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("initializing otel: %w", err)
	}

	logger.Setup(cfg)

	if err := id.Init(1); err != nil {
		return fmt.Errorf("initializing id generator: %w", err)
	}

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&planDir, "plan", "p", ".", "directory containing concepts.json, inferences.json, and paradigm specs")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Postgres DSN for the checkpoint store (defaults to an in-memory store)")
	rootCmd.PersistentFlags().BoolVar(&noTUI, "no-tui", false, "disable the live progress view and print status to stdout instead")
	rootCmd.PersistentFlags().IntVar(&maxCycle, "max-cycles", 0, "cycle limit override (0 keeps the orchestrator default)")

	rootCmd.AddCommand(runCmd, resumeCmd, forkCmd, listRunsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code := 1
		switch {
		case errors.Is(err, model.ErrPlanNotAcyclic), errors.Is(err, model.ErrDuplicateFlowIndex),
			errors.Is(err, model.ErrUnknownSequenceKind), errors.Is(err, model.ErrLegacyQuantifying),
			errors.Is(err, model.ErrUnknownConceptKind):
			code = 2
		case errors.Is(err, orchestrator.ErrDeadlock), errors.Is(err, orchestrator.ErrCycleLimitExceeded),
			errors.Is(err, orchestrator.ErrWriteConflict):
			code = 3
		case errors.Is(err, checkpoint.ErrReconciliationRefused):
			code = 5
		}
		os.Exit(code)
	}
}

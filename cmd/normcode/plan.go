package main

import (
	"context"
	"fmt"
	"path/filepath"

	"normcode.dev/core/internal/agent"
	"normcode.dev/core/internal/blackboard"
	"normcode.dev/core/internal/checkpoint"
	"normcode.dev/core/internal/httpapi"
	"normcode.dev/core/internal/orchestrator"
	"normcode.dev/core/internal/paradigm"
	"normcode.dev/core/internal/perception"
	"normcode.dev/core/internal/repo"
)

// plan bundles everything one run needs, loaded from a plan directory
// laid out per spec.md §6: concepts.json, inferences.json, and the
// paradigm specs the registry watches.
type plan struct {
	concepts   *repo.ConceptRepo
	inferences *repo.InferenceRepo
	paradigms  *paradigm.Registry
	board      *blackboard.Blackboard
	router     *perception.Router
	agent      *agent.Agent
}

func loadPlan(dir string) (*plan, error) {
	concepts, err := repo.LoadConceptRepo(filepath.Join(dir, "concepts.json"))
	if err != nil {
		return nil, fmt.Errorf("loading concepts: %w", err)
	}
	inferences, err := repo.LoadInferenceRepo(filepath.Join(dir, "inferences.json"))
	if err != nil {
		return nil, fmt.Errorf("loading inferences: %w", err)
	}
	paradigms, err := paradigm.NewRegistry(dir)
	if err != nil {
		return nil, fmt.Errorf("loading paradigms: %w", err)
	}

	router := perception.NewRouter()
	body := agent.NewBody(
		agent.NewFileSystemTool(dir),
		agent.NewScriptExecutorTool(),
		agent.NewPromptTool(),
		agent.NewPerceptionRouterTool(router),
	)

	return &plan{
		concepts:   concepts,
		inferences: inferences,
		paradigms:  paradigms,
		board:      blackboard.New(),
		router:     router,
		agent:      agent.NewAgent("subject", body, nil),
	}, nil
}

// openStore opens the checkpoint store named by the --dsn flag,
// defaulting to an in-memory store for local/dry-run use.
func openStore(ctx context.Context) (checkpoint.Store, error) {
	if dsn == "" {
		return checkpoint.NewMemoryStore(), nil
	}
	return checkpoint.NewPostgresStore(ctx, dsn)
}

func buildOrchestrator(p *plan, runID string, store checkpoint.Store) *orchestrator.Orchestrator {
	cfg := orchestrator.Config{RunID: runID, Store: store, MaxCycles: maxCycle}
	return orchestrator.New(cfg, p.concepts, p.inferences, p.board, p.paradigms, p.router, p.agent, nil)
}

func (p *plan) liveRun() *httpapi.LiveRun {
	return &httpapi.LiveRun{Concepts: p.concepts, Inferences: p.inferences, Board: p.board}
}

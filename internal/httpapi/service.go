// Package httpapi implements the read-only status/reference/checkpoint
// surface (spec.md §6), shared with internal/mcpserver's tool-based
// transport. Service answers from a registered LiveRun when the run is
// currently executing in this process, falling back to the checkpoint
// store's latest snapshot for completed or externally-driven runs.
package httpapi

import (
	"context"
	"fmt"
	"sync"

	"normcode.dev/core/internal/blackboard"
	"normcode.dev/core/internal/checkpoint"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/reference"
	"normcode.dev/core/internal/repo"
)

// LiveRun is the in-process state of a run currently executing,
// registered by the orchestrator's caller (cmd/normcode) so status
// queries don't have to wait for the next checkpoint.
type LiveRun struct {
	Concepts   *repo.ConceptRepo
	Inferences *repo.InferenceRepo
	Board      *blackboard.Blackboard
}

// Registry tracks the LiveRun for every run currently executing in this
// process, keyed by run ID.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*LiveRun
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*LiveRun)}
}

func (r *Registry) Register(runID string, run *LiveRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[runID] = run
}

func (r *Registry) Unregister(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, runID)
}

func (r *Registry) Get(runID string) (*LiveRun, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runID]
	return run, ok
}

// Service implements the read-only surface shared by internal/httpapi's
// gin router and internal/mcpserver's tool server.
type Service struct {
	store    checkpoint.Store
	registry *Registry
}

func NewService(store checkpoint.Store, registry *Registry) *Service {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{store: store, registry: registry}
}

// InferenceStatus is one inference's reported status.
type InferenceStatus struct {
	FlowIndex string `json:"flow_index"`
	Status    string `json:"status"`
}

// RunStatus reports every known inference's status for one run, either
// live (currently executing in this process) or as of its latest
// checkpoint.
type RunStatus struct {
	RunID   string            `json:"run_id"`
	Cycle   int               `json:"cycle"`
	Live    bool              `json:"live"`
	Entries []InferenceStatus `json:"entries"`
}

// Status reports runID's per-inference status.
func (s *Service) Status(ctx context.Context, runID string) (*RunStatus, error) {
	if live, ok := s.registry.Get(runID); ok {
		entries := live.Inferences.IterateSorted()
		out := make([]InferenceStatus, 0, len(entries))
		for _, e := range entries {
			out = append(out, InferenceStatus{
				FlowIndex: string(e.FlowIndex),
				Status:    live.Board.Status(string(e.FlowIndex)).String(),
			})
		}
		return &RunStatus{RunID: runID, Live: true, Entries: out}, nil
	}

	snap, err := s.store.LatestSnapshot(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("httpapi: status for %q: %w", runID, err)
	}
	out := make([]InferenceStatus, 0, len(snap.Blackboard.Status))
	for flowIndex, status := range snap.Blackboard.Status {
		if _, err := model.FlowIndex(flowIndex).Segments(); err != nil {
			continue
		}
		out = append(out, InferenceStatus{FlowIndex: flowIndex, Status: status.String()})
	}
	return &RunStatus{RunID: runID, Cycle: snap.Cycle, Entries: out}, nil
}

// Concept returns name's current Reference for runID.
func (s *Service) Concept(ctx context.Context, runID, name string) (*reference.Reference, error) {
	if live, ok := s.registry.Get(runID); ok {
		if !live.Concepts.HasReference(name) {
			return nil, fmt.Errorf("httpapi: concept %q not yet populated in run %q", name, runID)
		}
		return live.Concepts.GetReference(name), nil
	}

	snap, err := s.store.LatestSnapshot(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("httpapi: concept lookup for run %q: %w", runID, err)
	}
	ref, ok := snap.ConceptRefs[name]
	if !ok {
		return nil, fmt.Errorf("httpapi: concept %q not found in run %q", name, runID)
	}
	return ref, nil
}

// ListRuns returns every run the checkpoint store knows about.
func (s *Service) ListRuns(ctx context.Context) ([]checkpoint.RunInfo, error) {
	return s.store.ListRuns(ctx)
}

// Checkpoint returns runID's snapshot at cycle, or its latest snapshot
// if cycle is negative.
func (s *Service) Checkpoint(ctx context.Context, runID string, cycle int) (*checkpoint.Snapshot, error) {
	if cycle < 0 {
		return s.store.LatestSnapshot(ctx, runID)
	}
	return s.store.LoadSnapshot(ctx, runID, cycle)
}

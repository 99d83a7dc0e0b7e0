package orchestrator

import (
	"context"
	"fmt"

	"normcode.dev/core/internal/checkpoint"
)

// saveCheckpoint persists a Snapshot of the current concept references,
// blackboard, and per-inference fingerprints under (RunID, cycle).
func (o *Orchestrator) saveCheckpoint(ctx context.Context, cycle int) error {
	snap := checkpoint.Snapshot{
		RunID:        o.cfg.RunID,
		Cycle:        cycle,
		ConceptRefs:  o.concepts.SnapshotRefs(),
		Blackboard:   o.board.Snapshot(),
		Fingerprints: checkpoint.ComputeFingerprints(o.inferences),
	}
	if err := o.cfg.Store.SaveSnapshot(ctx, snap, o.paradigms.Signature()); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Resume loads runID's latest snapshot (or a specific cycle, if cycle
// >= 0) and reconciles it into the live ConceptRepo/Blackboard under
// cfg.ReconcileMode before Run is called.
func (o *Orchestrator) Resume(ctx context.Context, runID string, cycle int) error {
	if o.cfg.Store == nil {
		return fmt.Errorf("resume: no checkpoint store configured")
	}

	var (
		snap *checkpoint.Snapshot
		err  error
	)
	if cycle < 0 {
		snap, err = o.cfg.Store.LatestSnapshot(ctx, runID)
	} else {
		snap, err = o.cfg.Store.LoadSnapshot(ctx, runID, cycle)
	}
	if err != nil {
		return fmt.Errorf("resume: loading snapshot: %w", err)
	}

	storedSig, err := o.cfg.Store.EnvironmentSignature(ctx, runID)
	if err != nil {
		return fmt.Errorf("resume: reading environment signature: %w", err)
	}

	mode := o.cfg.ReconcileMode
	if mode == "" {
		mode = checkpoint.ModePatch
	}
	if err := checkpoint.Reconcile(mode, snap, storedSig, o.paradigms.Signature(), o.concepts, o.board, o.inferences); err != nil {
		return fmt.Errorf("resume: %w", err)
	}

	o.cfg.RunID = runID
	return nil
}

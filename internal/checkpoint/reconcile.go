package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"normcode.dev/core/internal/blackboard"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/repo"
)

// ComputeFingerprints hashes every inference's working_interpretation +
// function_concept, in flow-index order, for storage alongside a
// Snapshot and later comparison during PATCH reconciliation.
func ComputeFingerprints(infs *repo.InferenceRepo) []InferenceFingerprint {
	entries := infs.IterateSorted()
	out := make([]InferenceFingerprint, 0, len(entries))
	for _, e := range entries {
		h := sha256.New()
		h.Write(e.WorkingInterp)
		h.Write([]byte(e.FunctionConcept))
		out = append(out, InferenceFingerprint{
			FlowIndex: string(e.FlowIndex),
			Hash:      hex.EncodeToString(h.Sum(nil)),
		})
	}
	return out
}

// Reconcile merges a loaded Snapshot into the live ConceptRepo and
// Blackboard under mode, per §4.10. storedEnvSig and liveEnvSig are only
// consulted under ModeOverwrite.
func Reconcile(mode Mode, snap *Snapshot, storedEnvSig, liveEnvSig string, concepts *repo.ConceptRepo, board *blackboard.Blackboard, infs *repo.InferenceRepo) error {
	switch mode {
	case ModeOverwrite:
		if storedEnvSig != liveEnvSig {
			return fmt.Errorf("run %q: %w", snap.RunID, ErrReconciliationRefused)
		}
		concepts.RestoreRefs(snap.ConceptRefs)
		board.Restore(snap.Blackboard)
		return nil

	case ModeFillGaps:
		concepts.MergeMissingRefs(snap.ConceptRefs)
		board.MergeMissing(snap.Blackboard)
		return nil

	default: // ModePatch
		concepts.RestoreRefs(snap.ConceptRefs)
		board.Restore(snap.Blackboard)
		return patchReset(snap, concepts, board, infs)
	}
}

// patchReset resets every inference whose fingerprint changed since snap
// was taken, along with every inference transitively dependent on it
// (through value_concepts/function_concept production), back to
// pending. Inferences untouched by the change keep their loaded state.
func patchReset(snap *Snapshot, concepts *repo.ConceptRepo, board *blackboard.Blackboard, infs *repo.InferenceRepo) error {
	old := make(map[string]string, len(snap.Fingerprints))
	for _, f := range snap.Fingerprints {
		old[f.FlowIndex] = f.Hash
	}
	current := ComputeFingerprints(infs)

	entries := infs.IterateSorted()
	producer := make(map[string]model.FlowIndex, len(entries))
	for _, e := range entries {
		producer[e.ConceptToInfer] = e.FlowIndex
	}

	dependents := make(map[model.FlowIndex][]model.FlowIndex, len(entries))
	for _, e := range entries {
		var deps []model.FlowIndex
		for _, vc := range e.ValueConcepts {
			if p, ok := producer[vc]; ok {
				deps = append(deps, p)
			}
		}
		if p, ok := producer[e.FunctionConcept]; ok {
			deps = append(deps, p)
		}
		for _, d := range deps {
			dependents[d] = append(dependents[d], e.FlowIndex)
		}
	}

	changed := make(map[model.FlowIndex]bool)
	var queue []model.FlowIndex
	for _, fp := range current {
		if old[fp.FlowIndex] != "" && old[fp.FlowIndex] != fp.Hash {
			fi := model.FlowIndex(fp.FlowIndex)
			changed[fi] = true
			queue = append(queue, fi)
		}
	}
	for len(queue) > 0 {
		fi := queue[0]
		queue = queue[1:]
		for _, dep := range dependents[fi] {
			if !changed[dep] {
				changed[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	byFlow := make(map[model.FlowIndex]*model.InferenceEntry, len(entries))
	for _, e := range entries {
		byFlow[e.FlowIndex] = e
	}
	for fi := range changed {
		e, ok := byFlow[fi]
		if !ok {
			continue
		}
		concepts.ClearReference(e.ConceptToInfer)
		board.SetStatus(e.ConceptToInfer, model.StatusPending)
		board.SetStatus(string(e.FlowIndex), model.StatusPending)
	}
	return nil
}

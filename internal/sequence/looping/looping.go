// Package looping implements the "*." / "every" deterministic sequence
// (§4.7.4): the per-loop state machine of start / per-iteration /
// iteration-complete / loop-complete.
package looping

import (
	"context"
	"fmt"

	"normcode.dev/core/internal/blackboard"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/reference"
	"normcode.dev/core/internal/sequence"
)

const accumPrefix = "__accum__"

// Sequence implements sequence.Sequence for sequence_kind "looping".
type Sequence struct{}

func New() *Sequence { return &Sequence{} }

func (Sequence) Execute(_ context.Context, f *sequence.Frame) (*sequence.Result, error) {
	wi, err := f.Entry.Looping()
	if err != nil {
		return nil, fmt.Errorf("looping: interpreting working interpretation: %w", err)
	}

	iter := f.Board.CurrentIteration(wi.LoopIndex)
	if iter < 0 {
		return start(f, wi)
	}

	ws := f.Board.Workspace(wi.LoopIndex, iter)
	if ws == nil {
		return nil, fmt.Errorf("looping: no workspace for loop %d iteration %d", wi.LoopIndex, iter)
	}

	if !iterationComplete(f, wi) {
		return &sequence.Result{LoopContinues: true}, nil
	}

	accumulated := accumulate(f, ws, wi)

	nextIdx := iter + 1
	if ws.Base == nil || len(ws.Base.Axes) == 0 || nextIdx >= ws.Base.Shape[0] {
		finish(f, wi, accumulated)
		return &sequence.Result{LoopContinues: false}, nil
	}

	return advance(f, wi, ws, nextIdx, accumulated)
}

func start(f *sequence.Frame, wi model.LoopingInterpretation) (*sequence.Result, error) {
	base := f.Concepts.GetReference(wi.LoopBaseConcept)
	if base == nil {
		return nil, fmt.Errorf("looping: base concept %q has no reference", wi.LoopBaseConcept)
	}

	resetSubtree(f, wi)

	ws := f.Board.StartLoop(wi.LoopIndex, base)
	for concept, distance := range wi.InLoopConcept {
		if distance == 0 {
			ws.CarriedState[concept] = f.Concepts.GetReference(concept)
		}
	}

	if len(base.Axes) == 0 || base.Shape[0] == 0 {
		// empty base collection: complete immediately with size-0 axis outputs
		finish(f, wi, emptyAccumulators(wi, base))
		return &sequence.Result{LoopContinues: false}, nil
	}

	bindIteration(f, wi, base, 0)
	return &sequence.Result{LoopContinues: true}, nil
}

func advance(f *sequence.Frame, wi model.LoopingInterpretation, prev *blackboard.Workspace, nextIdx int, accumulated map[string]*reference.Reference) (*sequence.Result, error) {
	resetSubtree(f, wi)

	carried := make(map[string]*reference.Reference, len(wi.InLoopConcept))
	for concept, distance := range wi.InLoopConcept {
		carried[concept] = f.Board.CarryDistance(wi.LoopIndex, prev.Iteration, distance, concept)
	}
	for k, v := range accumulated {
		carried[accumPrefix+k] = v
	}

	next := f.Board.Advance(prev, nil, carried)
	bindIteration(f, wi, prev.Base, nextIdx)
	_ = next
	return &sequence.Result{LoopContinues: true}, nil
}

func bindIteration(f *sequence.Frame, wi model.LoopingInterpretation, base *reference.Reference, idx int) {
	elem, err := base.Slice(base.Axes[0], reference.IntSelector(idx))
	if err != nil {
		return
	}
	f.Concepts.SetReference(wi.CurrentLoopBaseConcept, elem)

	for concept, distance := range wi.InLoopConcept {
		ref := f.Board.CarryDistance(wi.LoopIndex, idx, distance, concept)
		if ref != nil {
			f.Concepts.SetReference(concept, ref)
		}
	}
}

func iterationComplete(f *sequence.Frame, wi model.LoopingInterpretation) bool {
	for _, concept := range wi.ConceptToInfer {
		status := f.Board.Status(concept)
		if status != model.StatusCompleted && status != model.StatusCompletedSkipped {
			return false
		}
	}
	return true
}

func accumulate(f *sequence.Frame, ws *blackboard.Workspace, wi model.LoopingInterpretation) map[string]*reference.Reference {
	out := make(map[string]*reference.Reference, len(wi.ConceptToInfer))
	for _, concept := range wi.ConceptToInfer {
		ref := f.Concepts.GetReference(concept)
		if ref == nil {
			continue
		}
		prior, ok := ws.CarriedState[accumPrefix+concept]
		if !ok || prior == nil {
			out[concept] = ref
			continue
		}
		appended, err := prior.Append(ref, wi.GroupBase)
		if err != nil {
			out[concept] = ref
			continue
		}
		out[concept] = appended
	}
	return out
}

func finish(f *sequence.Frame, wi model.LoopingInterpretation, accumulated map[string]*reference.Reference) {
	for _, concept := range wi.ConceptToInfer {
		if ref, ok := accumulated[concept]; ok {
			f.Concepts.SetReference(concept, ref)
		}
		f.Board.SetStatus(concept, model.StatusCompleted)
	}
}

func emptyAccumulators(wi model.LoopingInterpretation, base *reference.Reference) map[string]*reference.Reference {
	out := make(map[string]*reference.Reference, len(wi.ConceptToInfer))
	for _, concept := range wi.ConceptToInfer {
		out[concept] = reference.NewSkipTensor([]string{wi.GroupBase}, []int{0})
	}
	return out
}

// resetSubtree resets every inference descending from this looping entry
// (by flow-index ancestry) back to pending, except those named invariant
// by the working interpretation, per the Orchestrator's loop-reset duty
// delegated here since looping owns the subtree boundary.
func resetSubtree(f *sequence.Frame, wi model.LoopingInterpretation) {
	invariant := make(map[string]struct{}, len(wi.Invariant))
	for _, c := range wi.Invariant {
		invariant[c] = struct{}{}
	}
	for _, entry := range f.Inferences.IterateSorted() {
		if !f.Entry.FlowIndex.IsAncestorOf(entry.FlowIndex) {
			continue
		}
		if _, ok := invariant[entry.ConceptToInfer]; ok {
			continue
		}
		f.Board.SetStatus(entry.ConceptToInfer, model.StatusPending)
		f.Board.SetStatus(string(entry.FlowIndex), model.StatusPending)
	}
}

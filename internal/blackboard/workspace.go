package blackboard

import "normcode.dev/core/internal/reference"

// loopKey identifies one active loop's workspace slot: the loop's index
// (increasing with nesting) and the current iteration number. Per §9,
// workspaces are modeled as immutable per-iteration records indexed by
// (loop_index, iteration) so only the current-iteration pointer mutates.
type loopKey struct {
	loopIndex int
	iteration int
}

// Workspace is the immutable record for one (loop_index, iteration)
// slot: the base reference being iterated, processed-identity bookkeeping,
// and the carried-state snapshot visible to that iteration.
type Workspace struct {
	LoopIndex int
	Iteration int

	Base            *reference.Reference
	CurrentElement  *reference.Reference
	CarriedState    map[string]*reference.Reference
	ProcessedCount  int
}

// StartLoop initializes iteration 0 of loopIndex with the raw base
// collection being iterated.
func (b *Blackboard) StartLoop(loopIndex int, base *reference.Reference) *Workspace {
	b.mu.Lock()
	defer b.mu.Unlock()
	ws := &Workspace{
		LoopIndex:    loopIndex,
		Iteration:    0,
		Base:         base,
		CarriedState: make(map[string]*reference.Reference),
	}
	b.loops[loopKey{loopIndex, 0}] = ws
	return ws
}

// Workspace returns the immutable record for (loopIndex, iteration), or
// nil if that slot has not been created.
func (b *Blackboard) Workspace(loopIndex, iteration int) *Workspace {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loops[loopKey{loopIndex, iteration}]
}

// Advance creates the workspace for the next iteration by copying
// forward carried state from prev and binding the new current element.
// prev is never mutated: Advance always produces a new record.
func (b *Blackboard) Advance(prev *Workspace, currentElement *reference.Reference, carried map[string]*reference.Reference) *Workspace {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := &Workspace{
		LoopIndex:      prev.LoopIndex,
		Iteration:      prev.Iteration + 1,
		Base:           prev.Base,
		CurrentElement: currentElement,
		CarriedState:   carried,
	}
	b.loops[loopKey{next.LoopIndex, next.Iteration}] = next
	return next
}

// CurrentIteration returns the highest iteration number started for
// loopIndex, or -1 if the loop has not been started.
func (b *Blackboard) CurrentIteration(loopIndex int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	best := -1
	for k := range b.loops {
		if k.loopIndex == loopIndex && k.iteration > best {
			best = k.iteration
		}
	}
	return best
}

// CarryDistance looks up the carried reference for concept from the
// workspace distance iterations back from the current one (distance 0 =
// the initial binding, per §4.7.4).
func (b *Blackboard) CarryDistance(loopIndex, currentIteration, distance int, concept string) *reference.Reference {
	b.mu.Lock()
	defer b.mu.Unlock()
	target := currentIteration - distance
	if target < 0 {
		target = 0
	}
	ws, ok := b.loops[loopKey{loopIndex, target}]
	if !ok {
		return nil
	}
	return ws.CarriedState[concept]
}

package blackboard

import "normcode.dev/core/internal/model"

// Snapshot is the durable, JSON-marshalable projection of a Blackboard's
// full state: status map, identity union-find, injected filters, and
// every loop workspace created so far. The checkpoint store persists
// this verbatim per (run_id, cycle).
type Snapshot struct {
	Status  map[string]model.Status    `json:"status"`
	Parent  map[string]string          `json:"parent"`
	Rank    map[string]int             `json:"rank"`
	Filters map[model.FlowIndex][]bool `json:"filters"`
	Loops   []WorkspaceSnapshot        `json:"loops"`
}

// WorkspaceSnapshot is the flattened, keyed form of one loopKey -> *Workspace
// entry.
type WorkspaceSnapshot struct {
	LoopIndex int        `json:"loop_index"`
	Iteration int        `json:"iteration"`
	Workspace *Workspace `json:"workspace"`
}

// Snapshot captures the Blackboard's entire state as a value safe to
// marshal and store. Maps are copied so later mutation of b does not
// alias the returned snapshot.
func (b *Blackboard) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Snapshot{
		Status:  make(map[string]model.Status, len(b.status)),
		Parent:  make(map[string]string, len(b.parent)),
		Rank:    make(map[string]int, len(b.rank)),
		Filters: make(map[model.FlowIndex][]bool, len(b.filters)),
		Loops:   make([]WorkspaceSnapshot, 0, len(b.loops)),
	}
	for k, v := range b.status {
		s.Status[k] = v
	}
	for k, v := range b.parent {
		s.Parent[k] = v
	}
	for k, v := range b.rank {
		s.Rank[k] = v
	}
	for k, v := range b.filters {
		mask := make([]bool, len(v))
		copy(mask, v)
		s.Filters[k] = mask
	}
	for k, v := range b.loops {
		s.Loops = append(s.Loops, WorkspaceSnapshot{LoopIndex: k.loopIndex, Iteration: k.iteration, Workspace: v})
	}
	return s
}

// MergeMissing writes s's entries only where the live Blackboard has
// none yet: existing status/identity/filter/workspace entries win. Used
// by FILL_GAPS checkpoint reconciliation.
func (b *Blackboard) MergeMissing(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for k, v := range s.Status {
		if _, ok := b.status[k]; !ok {
			b.status[k] = v
		}
	}
	for k, v := range s.Parent {
		if _, ok := b.parent[k]; !ok {
			b.parent[k] = v
		}
	}
	for k, v := range s.Rank {
		if _, ok := b.rank[k]; !ok {
			b.rank[k] = v
		}
	}
	for k, v := range s.Filters {
		if _, ok := b.filters[k]; !ok {
			b.filters[k] = v
		}
	}
	for _, ws := range s.Loops {
		key := loopKey{ws.LoopIndex, ws.Iteration}
		if _, ok := b.loops[key]; !ok {
			b.loops[key] = ws.Workspace
		}
	}
}

// Restore replaces the Blackboard's entire state with s. It is used by
// OVERWRITE and PATCH checkpoint reconciliation.
func (b *Blackboard) Restore(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.status = make(map[string]model.Status, len(s.Status))
	for k, v := range s.Status {
		b.status[k] = v
	}
	b.parent = make(map[string]string, len(s.Parent))
	for k, v := range s.Parent {
		b.parent[k] = v
	}
	b.rank = make(map[string]int, len(s.Rank))
	for k, v := range s.Rank {
		b.rank[k] = v
	}
	b.filters = make(map[model.FlowIndex][]bool, len(s.Filters))
	for k, v := range s.Filters {
		b.filters[k] = v
	}
	b.loops = make(map[loopKey]*Workspace, len(s.Loops))
	for _, ws := range s.Loops {
		b.loops[loopKey{ws.LoopIndex, ws.Iteration}] = ws.Workspace
	}
}

// Package blackboard implements the authoritative status tracker for
// every concept and inference, the identity alias union-find, per-loop
// workspaces, and timing filter masks.
package blackboard

import (
	"errors"
	"fmt"
	"sync"

	"normcode.dev/core/internal/model"
)

// ErrIdentityConflict is returned by RegisterIdentity when both names
// already hold distinct non-null references.
var ErrIdentityConflict = errors.New("identity conflict")

// Blackboard holds run status behind one lock. SetStatus is called
// directly by the Orchestrator, the looping sequence, and PATCH
// checkpoint reconciliation; each call is applied under the lock.
type Blackboard struct {
	mu sync.Mutex

	status map[string]model.Status

	// union-find over concept names for identity aliasing (§4.4,
	// §9 "identity aliasing across mutable maps").
	parent map[string]string
	rank   map[string]int

	filters map[model.FlowIndex][]bool

	loops map[loopKey]*Workspace
}

// New builds an empty Blackboard.
func New() *Blackboard {
	return &Blackboard{
		status:  make(map[string]model.Status),
		parent:  make(map[string]string),
		rank:    make(map[string]int),
		filters: make(map[model.FlowIndex][]bool),
		loops:   make(map[loopKey]*Workspace),
	}
}

func (b *Blackboard) find(name string) string {
	root := name
	for {
		p, ok := b.parent[root]
		if !ok || p == root {
			break
		}
		root = p
	}
	// path compression
	for b.parent[name] != root {
		next := b.parent[name]
		b.parent[name] = root
		name = next
	}
	return root
}

// Find returns the canonical representative name for an identity set.
// Names never registered resolve to themselves.
func (b *Blackboard) Find(name string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.find(name)
}

// Status returns the status of a concept or inference, keyed by concept
// name or by the string form of a flow index. Unregistered targets are
// pending.
func (b *Blackboard) Status(target string) model.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	canon := b.find(target)
	return b.status[canon]
}

// SetStatus sets the status of target (resolved through identity
// aliasing).
func (b *Blackboard) SetStatus(target string, s model.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	canon := b.find(target)
	b.status[canon] = s
}

// IsConceptReady reports whether name's status is completed or
// completed_skipped.
func (b *Blackboard) IsConceptReady(name string) bool {
	return b.Status(name).IsReady()
}

// RegisterIdentity atomically merges alias into canonical: both names
// share one status and reference from this point on. It fails
// ErrIdentityConflict if both sides already hold distinct non-null
// references, per hasRef.
func (b *Blackboard) RegisterIdentity(alias, canonical string, aliasHasRef, canonicalHasRef bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ra := b.find(alias)
	rc := b.find(canonical)
	if ra == rc {
		return nil
	}
	if aliasHasRef && canonicalHasRef {
		return fmt.Errorf("registering identity %s = %s: %w", alias, canonical, ErrIdentityConflict)
	}

	// union by rank; canonical side wins as root name when ranks tie so
	// lookups read naturally under the name the plan calls "canonical".
	sa, sc := b.status[ra], b.status[rc]
	merged := sc
	if !aliasHasRef && canonicalHasRef {
		merged = sc
	} else if aliasHasRef && !canonicalHasRef {
		merged = sa
	}

	if b.rank[ra] > b.rank[rc] {
		b.parent[rc] = ra
		b.status[ra] = merged
		delete(b.status, rc)
	} else {
		b.parent[ra] = rc
		b.status[rc] = merged
		if b.rank[ra] == b.rank[rc] {
			b.rank[rc]++
		}
		delete(b.status, ra)
	}
	return nil
}

// InjectFilter stores a boolean mask on the workspace of parentFlowIndex,
// produced by a passing @:'/@:! timing step over a FOR_EACH judgement.
func (b *Blackboard) InjectFilter(parentFlowIndex model.FlowIndex, mask []bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filters[parentFlowIndex] = mask
}

// ConsumeFilter returns and removes the mask injected for
// parentFlowIndex, or nil if none was injected.
func (b *Blackboard) ConsumeFilter(parentFlowIndex model.FlowIndex) []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	mask, ok := b.filters[parentFlowIndex]
	if !ok {
		return nil
	}
	delete(b.filters, parentFlowIndex)
	return mask
}

// Package repo implements the typed, JSON-loaded stores of concept
// definitions and inference configurations described by §4.3.
package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"normcode.dev/core/internal/element"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/reference"
)

// IdentityResolver maps a concept name to its canonical representative.
// The blackboard's union-find implements this; ConceptRepo never mutates
// aliasing itself.
type IdentityResolver interface {
	Find(name string) string
}

// identityNoop is used when no resolver is supplied (names resolve to
// themselves).
type identityNoop struct{}

func (identityNoop) Find(name string) string { return name }

// ConceptRepo is the typed store of concept definitions and their
// current references. Definitions are immutable after load; references
// mutate as inferences complete.
type ConceptRepo struct {
	mu         sync.RWMutex
	defs       map[string]*model.Concept
	refs       map[string]*reference.Reference
	identities IdentityResolver
}

// LoadConceptRepo reads a concept repository file (a JSON array of
// concept records) and materializes ground-concept references from
// their reference_data/reference_axes fields.
func LoadConceptRepo(path string) (*ConceptRepo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading concept repo %q: %w", path, err)
	}
	var records []model.Concept
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing concept repo %q: %w", path, err)
	}

	cr := &ConceptRepo{
		defs:       make(map[string]*model.Concept, len(records)),
		refs:       make(map[string]*reference.Reference, len(records)),
		identities: identityNoop{},
	}
	for i := range records {
		rec := records[i]
		if rec.Name == "" {
			return nil, fmt.Errorf("concept repo %q: record %d missing concept_name", path, i)
		}
		cr.defs[rec.Name] = &rec
		if rec.IsGround && len(rec.ReferenceData) > 0 {
			ref, err := referenceFromRaw(rec.ReferenceData, rec.ReferenceAxes)
			if err != nil {
				return nil, fmt.Errorf("concept %q: %w", rec.Name, err)
			}
			cr.refs[rec.Name] = ref
		}
	}
	return cr, nil
}

// SetIdentityResolver installs the resolver lookups go through. Declare
// performed before this call behaves as unaliased.
func (cr *ConceptRepo) SetIdentityResolver(r IdentityResolver) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.identities = r
}

// Declare registers a new concept definition, used for concepts created
// at runtime (e.g. a loop's per-iteration CurrentLoopBaseConcept).
func (cr *ConceptRepo) Declare(c model.Concept) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	rec := c
	cr.defs[c.Name] = &rec
}

// Definition returns the declared record for name, honoring identity
// aliasing.
func (cr *ConceptRepo) Definition(name string) (*model.Concept, bool) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	canon := cr.identities.Find(name)
	d, ok := cr.defs[canon]
	return d, ok
}

// GetReference returns the current reference for name, or nil if the
// concept is still pending. Lookups honor identity aliasing.
func (cr *ConceptRepo) GetReference(name string) *reference.Reference {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	canon := cr.identities.Find(name)
	return cr.refs[canon]
}

// SetReference writes the reference for name (resolved through identity
// aliasing). Per the lifecycle invariant, callers must ensure name is
// written exactly once per iteration context by its declaring inference.
func (cr *ConceptRepo) SetReference(name string, ref *reference.Reference) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	canon := cr.identities.Find(name)
	cr.refs[canon] = ref
}

// ClearReference removes name's current reference, returning it to the
// pending (no-reference) state. Used by checkpoint PATCH reconciliation
// to force recomputation of a changed inference's output.
func (cr *ConceptRepo) ClearReference(name string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	canon := cr.identities.Find(name)
	delete(cr.refs, canon)
}

// HasReference reports whether name currently holds a non-nil reference.
func (cr *ConceptRepo) HasReference(name string) bool {
	return cr.GetReference(name) != nil
}

// Names returns every declared concept name (not resolved through
// aliasing), primarily for diagnostics and plan validation.
func (cr *ConceptRepo) Names() []string {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	out := make([]string, 0, len(cr.defs))
	for n := range cr.defs {
		out = append(out, n)
	}
	return out
}

// SnapshotRefs returns a copy of every currently populated concept
// reference, keyed by canonical name. Used by the checkpoint store to
// persist concept state independently of the static definitions file.
func (cr *ConceptRepo) SnapshotRefs() map[string]*reference.Reference {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	out := make(map[string]*reference.Reference, len(cr.refs))
	for k, v := range cr.refs {
		out[k] = v
	}
	return out
}

// RestoreRefs replaces the repo's current references wholesale with
// refs, used by OVERWRITE and PATCH checkpoint reconciliation.
func (cr *ConceptRepo) RestoreRefs(refs map[string]*reference.Reference) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.refs = make(map[string]*reference.Reference, len(refs))
	for k, v := range refs {
		cr.refs[k] = v
	}
}

// MergeMissingRefs writes refs into the repo only for names that are
// not already populated, used by FILL_GAPS reconciliation where the
// live repo's existing values win.
func (cr *ConceptRepo) MergeMissingRefs(refs map[string]*reference.Reference) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	for k, v := range refs {
		if _, ok := cr.refs[k]; ok {
			continue
		}
		cr.refs[k] = v
	}
}

func referenceFromRaw(raw json.RawMessage, axes []string) (*reference.Reference, error) {
	var nested any
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("reference_data: %w", err)
	}
	shape, flat, err := flattenNested(nested, axes)
	if err != nil {
		return nil, err
	}
	if len(axes) == 0 {
		axes = []string{reference.NoneAxis}
		shape = []int{1}
	}
	return reference.New(axes, shape, flat)
}

// flattenNested walks a JSON-decoded nested list matching the declared
// axes and produces row-major shape/elements.
func flattenNested(v any, axes []string) ([]int, []element.Element, error) {
	if len(axes) == 0 {
		return []int{1}, []element.Element{jsonToElement(v)}, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("reference_data: expected nested list for axes %v", axes)
	}
	shape := make([]int, len(axes))
	shape[0] = len(list)
	var elems []element.Element
	if len(axes) == 1 {
		elems = make([]element.Element, len(list))
		for i, item := range list {
			elems[i] = jsonToElement(item)
		}
		return shape, elems, nil
	}
	for i, item := range list {
		subShape, subElems, err := flattenNested(item, axes[1:])
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			copy(shape[1:], subShape)
		}
		elems = append(elems, subElems...)
	}
	return shape, elems, nil
}

func jsonToElement(v any) element.Element {
	switch t := v.(type) {
	case map[string]any:
		m := make(element.Map, len(t))
		for k, vv := range t {
			m[k] = jsonToElement(vv)
		}
		return element.NewPrimitive(m)
	case []any:
		l := make(element.List, len(t))
		for i, vv := range t {
			l[i] = jsonToElement(vv)
		}
		return element.NewPrimitive(l)
	default:
		return element.NewPrimitive(t)
	}
}

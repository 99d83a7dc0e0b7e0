package repo

import (
	"encoding/json"
	"fmt"
	"os"

	"normcode.dev/core/internal/model"
)

// InferenceRepo is the typed store of inference configurations, loaded
// once from JSON and immutable thereafter with respect to definitions.
type InferenceRepo struct {
	byFlowIndex map[model.FlowIndex]*model.InferenceEntry
	sorted      []model.FlowIndex
}

// LoadInferenceRepo reads an inference repository file (a JSON array of
// inference records) and validates that the declared plan is acyclic.
func LoadInferenceRepo(path string) (*InferenceRepo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inference repo %q: %w", path, err)
	}
	var records []model.InferenceEntry
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing inference repo %q: %w", path, err)
	}

	ir := &InferenceRepo{byFlowIndex: make(map[model.FlowIndex]*model.InferenceEntry, len(records))}
	for i := range records {
		rec := records[i]
		if rec.FlowIndex == "" {
			return nil, fmt.Errorf("inference repo %q: record %d missing flow_index", path, i)
		}
		if _, exists := ir.byFlowIndex[rec.FlowIndex]; exists {
			return nil, fmt.Errorf("inference repo %q: %w: %s", path, model.ErrDuplicateFlowIndex, rec.FlowIndex)
		}
		ir.byFlowIndex[rec.FlowIndex] = &rec
		ir.sorted = append(ir.sorted, rec.FlowIndex)
	}
	model.SortFlowIndices(ir.sorted)

	if err := validateAcyclic(ir); err != nil {
		return nil, fmt.Errorf("inference repo %q: %w", path, err)
	}
	return ir, nil
}

// Get returns the inference entry at flowIndex.
func (ir *InferenceRepo) Get(flowIndex model.FlowIndex) (*model.InferenceEntry, bool) {
	e, ok := ir.byFlowIndex[flowIndex]
	return e, ok
}

// IterateSorted returns every inference entry in dotted-integer
// flow_index order (the Waitlist order).
func (ir *InferenceRepo) IterateSorted() []*model.InferenceEntry {
	out := make([]*model.InferenceEntry, len(ir.sorted))
	for i, fi := range ir.sorted {
		out[i] = ir.byFlowIndex[fi]
	}
	return out
}

// validateAcyclic enforces that the static plan is a DAG by construction:
// flow-index hierarchy (supporting_children must reference an ancestor's
// descendant, not introduce a back edge) plus declared value_concepts
// must not form a cycle through concept_to_infer producers.
func validateAcyclic(ir *InferenceRepo) error {
	producer := make(map[string]model.FlowIndex, len(ir.byFlowIndex))
	for fi, e := range ir.byFlowIndex {
		producer[e.ConceptToInfer] = fi
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[model.FlowIndex]int, len(ir.byFlowIndex))

	var visit func(fi model.FlowIndex, path []model.FlowIndex) error
	visit = func(fi model.FlowIndex, path []model.FlowIndex) error {
		switch color[fi] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("%w: cycle at %s (path %v)", model.ErrPlanNotAcyclic, fi, append(path, fi))
		}
		color[fi] = gray
		e := ir.byFlowIndex[fi]
		deps := append([]model.FlowIndex(nil), e.SupportingChildren...)
		for _, vc := range e.ValueConcepts {
			if dep, ok := producer[vc]; ok {
				deps = append(deps, dep)
			}
		}
		if dep, ok := producer[e.FunctionConcept]; ok {
			deps = append(deps, dep)
		}
		for _, dep := range deps {
			if _, ok := ir.byFlowIndex[dep]; !ok {
				continue
			}
			if err := visit(dep, append(path, fi)); err != nil {
				return err
			}
		}
		color[fi] = black
		return nil
	}

	for fi := range ir.byFlowIndex {
		if err := visit(fi, nil); err != nil {
			return err
		}
	}
	return nil
}

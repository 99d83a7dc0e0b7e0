// Package assigning implements the $= $% $. $+ $- deterministic
// sequences (§4.7.1).
package assigning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"normcode.dev/core/internal/element"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/reference"
	"normcode.dev/core/internal/sequence"
)

// ErrUnknownMarker is returned for an assigning marker outside {=,%,.,+,-}.
var ErrUnknownMarker = errors.New("unknown assigning marker")

// ErrNoValidCandidate is returned by $. when no candidate is valid and
// the destination has no current reference either.
var ErrNoValidCandidate = errors.New("specification: no valid candidate and no existing destination reference")

// Sequence implements sequence.Sequence for sequence_kind "assigning".
type Sequence struct{}

func New() *Sequence { return &Sequence{} }

func (Sequence) Execute(_ context.Context, f *sequence.Frame) (*sequence.Result, error) {
	wi, err := f.Entry.Assigning()
	if err != nil {
		return nil, fmt.Errorf("assigning: interpreting working interpretation: %w", err)
	}

	switch wi.Marker {
	case model.AssigningIdentity:
		return executeIdentity(f, wi)
	case model.AssigningAbstraction:
		return executeAbstraction(f, wi)
	case model.AssigningSpecification:
		return executeSpecification(f, wi)
	case model.AssigningContinuation:
		return executeContinuation(f, wi)
	case model.AssigningDerelation:
		return executeDerelation(f, wi)
	default:
		return nil, fmt.Errorf("assigning marker %q: %w", wi.Marker, ErrUnknownMarker)
	}
}

func executeIdentity(f *sequence.Frame, wi model.AssigningInterpretation) (*sequence.Result, error) {
	aliasRef := f.Concepts.HasReference(wi.AliasConcept)
	canonRef := f.Concepts.HasReference(wi.CanonicalConcept)
	if err := f.Board.RegisterIdentity(wi.AliasConcept, wi.CanonicalConcept, aliasRef, canonRef); err != nil {
		return nil, fmt.Errorf("assigning $=: %w", err)
	}
	return &sequence.Result{}, nil
}

func executeAbstraction(f *sequence.Frame, wi model.AssigningInterpretation) (*sequence.Result, error) {
	var raw any
	if err := json.Unmarshal(wi.FaceValue, &raw); err != nil {
		return nil, fmt.Errorf("assigning $%%: decoding face_value: %w", err)
	}

	if len(wi.AxisNames) == 0 {
		return &sequence.Result{Output: reference.NewSingleton(toElement(raw))}, nil
	}

	shape, flat, err := flattenNested(raw, wi.AxisNames)
	if err != nil {
		return nil, fmt.Errorf("assigning $%%: %w", err)
	}
	out, err := reference.New(wi.AxisNames, shape, flat)
	if err != nil {
		return nil, fmt.Errorf("assigning $%%: %w", err)
	}
	return &sequence.Result{Output: out}, nil
}

func executeSpecification(f *sequence.Frame, wi model.AssigningInterpretation) (*sequence.Result, error) {
	for _, candidate := range wi.Candidates {
		status := f.Board.Status(candidate)
		if status != model.StatusCompleted {
			continue
		}
		ref := f.Concepts.GetReference(candidate)
		if ref == nil || isAllSkip(ref) {
			continue
		}
		return &sequence.Result{Output: ref}, nil
	}

	existing := f.Concepts.GetReference(f.Entry.ConceptToInfer)
	if existing == nil {
		return nil, fmt.Errorf("assigning $.: %w", ErrNoValidCandidate)
	}
	return &sequence.Result{Output: existing}, nil
}

func executeContinuation(f *sequence.Frame, wi model.AssigningInterpretation) (*sequence.Result, error) {
	if len(f.Entry.ValueConcepts) == 0 {
		return nil, fmt.Errorf("assigning $+: no source value concept declared")
	}
	src := f.Concepts.GetReference(f.Entry.ValueConcepts[0])
	if src == nil {
		return nil, fmt.Errorf("assigning $+: source %q has no reference", f.Entry.ValueConcepts[0])
	}
	dst := f.Concepts.GetReference(f.Entry.ConceptToInfer)
	if dst == nil {
		return &sequence.Result{Output: src}, nil
	}
	out := dst
	for _, axis := range wi.ByAxes {
		appended, err := out.Append(src, axis)
		if err != nil {
			return nil, fmt.Errorf("assigning $+: %w", err)
		}
		out = appended
	}
	return &sequence.Result{Output: out}, nil
}

func executeDerelation(f *sequence.Frame, wi model.AssigningInterpretation) (*sequence.Result, error) {
	if len(f.Entry.ValueConcepts) == 0 {
		return nil, fmt.Errorf("assigning $-: no source value concept declared")
	}
	src := f.Concepts.GetReference(f.Entry.ValueConcepts[0])
	if src == nil {
		return nil, fmt.Errorf("assigning $-: source %q has no reference", f.Entry.ValueConcepts[0])
	}
	if wi.Selector == nil {
		return nil, fmt.Errorf("assigning $-: no selector declared")
	}
	out, err := applySelector(*wi.Selector, src)
	if err != nil {
		return nil, fmt.Errorf("assigning $-: %w", err)
	}
	return &sequence.Result{Output: out}, nil
}

func applySelector(sel model.ValueSelector, src *reference.Reference) (*reference.Reference, error) {
	switch {
	case sel.Index != nil:
		// index selects along the first axis by convention for $-.
		if len(src.Axes) == 0 {
			return nil, fmt.Errorf("index selector: source has no axes")
		}
		return src.Slice(src.Axes[0], reference.IntSelector(*sel.Index))
	case sel.Key != nil:
		out := make([]element.Element, len(src.Tensor))
		for i, e := range src.Tensor {
			if e.IsSkip() {
				out[i] = element.Skip
				continue
			}
			m, ok := e.Primitive.(element.Map)
			if !ok {
				out[i] = element.Skip
				continue
			}
			v, ok := m[*sel.Key]
			if !ok {
				out[i] = element.Skip
				continue
			}
			out[i] = v
		}
		return reference.New(src.Axes, src.Shape, out)
	case sel.Unpack:
		return src, nil
	default:
		return src, nil
	}
}

func isAllSkip(r *reference.Reference) bool {
	for _, e := range r.Tensor {
		if !e.IsSkip() {
			return false
		}
	}
	return len(r.Tensor) > 0
}

func toElement(v any) element.Element {
	switch t := v.(type) {
	case map[string]any:
		m := make(element.Map, len(t))
		for k, vv := range t {
			m[k] = toElement(vv)
		}
		return element.NewPrimitive(m)
	case []any:
		l := make(element.List, len(t))
		for i, vv := range t {
			l[i] = toElement(vv)
		}
		return element.NewPrimitive(l)
	default:
		return element.NewPrimitive(t)
	}
}

func flattenNested(v any, axes []string) ([]int, []element.Element, error) {
	if len(axes) == 0 {
		return []int{1}, []element.Element{toElement(v)}, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("face_value: expected nested list for axes %v", axes)
	}
	shape := make([]int, len(axes))
	shape[0] = len(list)
	var elems []element.Element
	if len(axes) == 1 {
		elems = make([]element.Element, len(list))
		for i, item := range list {
			elems[i] = toElement(item)
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

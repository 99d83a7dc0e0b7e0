// Package semantic runs the shared IR/MFP/MVP/TVA stages (§4.8) common
// to both the imperative and judgement sequence kinds; each kind then
// finishes with its own TIA (judgement only) before the Orchestrator
// performs OR/OWI.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"

	"normcode.dev/core/internal/element"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/paradigm"
	"normcode.dev/core/internal/perception"
	"normcode.dev/core/internal/reference"
	"normcode.dev/core/internal/sequence"
)

// Run executes IR, MFP, MVP, and TVA, returning the cross_action result
// and the parsed working interpretation so the caller can apply its own
// TIA/OR divergence.
func Run(ctx context.Context, f *sequence.Frame) (*reference.Reference, model.SemanticInterpretation, error) {
	wi, err := f.Entry.Semantic()
	if err != nil {
		return nil, wi, fmt.Errorf("semantic: interpreting working interpretation: %w", err)
	}

	valueRefs, err := inputRetrieval(f, wi.ValueOrder)
	if err != nil {
		return nil, wi, fmt.Errorf("semantic IR: %w", err)
	}

	spec, err := f.Paradigms.Resolve(wi.Paradigm)
	if err != nil {
		return nil, wi, fmt.Errorf("semantic MFP: resolving paradigm %q: %w", wi.Paradigm, err)
	}
	verticalValues, err := verticalSetupValues(f, spec)
	if err != nil {
		return nil, wi, fmt.Errorf("semantic MFP: %w", err)
	}
	callable, err := paradigm.Compose(spec, f.Agent.Body, verticalValues)
	if err != nil {
		return nil, wi, fmt.Errorf("semantic MFP: %w", err)
	}
	functionsRef := reference.NewSingleton(element.NewPrimitive(callable))

	valuesRef, err := memoryValuePerception(ctx, f, wi, valueRefs)
	if err != nil {
		return nil, wi, fmt.Errorf("semantic MVP: %w", err)
	}

	out, err := reference.CrossAction(functionsRef, valuesRef, func(fnElem element.Element, args element.List) (element.Element, error) {
		c, ok := fnElem.Primitive.(paradigm.Callable)
		if !ok {
			return element.Element{}, fmt.Errorf("semantic TVA: functional reference is not a callable")
		}
		return c.Invoke(ctx, args)
	})
	if err != nil {
		return nil, wi, fmt.Errorf("semantic TVA: %w", err)
	}
	return out, wi, nil
}

// inputRetrieval reads each value_concept reference and, if a timing
// filter was injected for this inference, masks skipped positions.
func inputRetrieval(f *sequence.Frame, order []string) ([]*reference.Reference, error) {
	var mask []bool
	if f.Board != nil {
		mask = f.Board.ConsumeFilter(f.Entry.FlowIndex)
	}
	refs := make([]*reference.Reference, 0, len(order))
	for _, name := range order {
		ref := f.Concepts.GetReference(name)
		if ref == nil {
			return nil, fmt.Errorf("value concept %q has no reference", name)
		}
		if mask != nil {
			ref = applyMask(ref, mask)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func applyMask(ref *reference.Reference, mask []bool) *reference.Reference {
	if len(mask) != len(ref.Tensor) {
		return ref
	}
	masked := make([]element.Element, len(ref.Tensor))
	for i, e := range ref.Tensor {
		if !mask[i] {
			masked[i] = element.Skip
			continue
		}
		masked[i] = e
	}
	out, err := reference.New(ref.Axes, ref.Shape, masked)
	if err != nil {
		return ref
	}
	return out
}

// verticalSetupValues reads each vertical setup input concept and bundles
// it into a flat argument list for the tool's one-time binding call.
// v_setup_inputs is a JSON array of concept names, empty/absent for
// tools that need no setup binding.
func verticalSetupValues(f *sequence.Frame, spec *paradigm.Spec) (element.List, error) {
	if len(spec.Vertical.SetupInputs) == 0 {
		return element.List{}, nil
	}
	var names []string
	if err := json.Unmarshal(spec.Vertical.SetupInputs, &names); err != nil {
		return nil, fmt.Errorf("decoding v_setup_inputs: %w", err)
	}
	values := make(element.List, 0, len(names))
	for _, name := range names {
		ref := f.Concepts.GetReference(name)
		if ref == nil {
			return nil, fmt.Errorf("vertical setup input %q has no reference", name)
		}
		values = append(values, ref.Tensor...)
	}
	return values, nil
}

// memoryValuePerception applies each value concept's matching selector
// (index/key/unpack/branch transmutation) elementwise, then cross-products
// the results into the single values tensor TVA actuates over.
func memoryValuePerception(ctx context.Context, f *sequence.Frame, wi model.SemanticInterpretation, valueRefs []*reference.Reference) (*reference.Reference, error) {
	selected := make([]*reference.Reference, len(wi.ValueOrder))
	for i, name := range wi.ValueOrder {
		ref := valueRefs[i]
		sel, ok := wi.ValueSelectors[name]
		if !ok {
			selected[i] = ref
			continue
		}
		out, err := applySelectorToReference(ctx, sel, ref, f.Perception)
		if err != nil {
			return nil, fmt.Errorf("value concept %q: %w", name, err)
		}
		selected[i] = out
	}
	return reference.CrossProduct(selected...)
}

func applySelectorToReference(ctx context.Context, sel model.ValueSelector, ref *reference.Reference, router *perception.Router) (*reference.Reference, error) {
	out := make([]element.Element, len(ref.Tensor))
	for i, e := range ref.Tensor {
		if e.IsSkip() {
			out[i] = element.Skip
			continue
		}
		v, err := paradigm.ApplySelector(ctx, sel, e, router)
		if err != nil {
			return nil, err
		}
		if sel.Unpack {
			list, err := paradigm.Unpack(v)
			if err != nil {
				return nil, err
			}
			v = element.NewPrimitive(list)
		}
		out[i] = v
	}
	return reference.New(ref.Axes, ref.Shape, out)
}

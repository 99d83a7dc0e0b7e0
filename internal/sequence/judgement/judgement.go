// Package judgement implements the judgement semantic sequence: IR, MFP,
// MVP, TVA, then TIA (§4.8) collapsing the elementwise verdict per the
// inference's assertion_condition.
package judgement

import (
	"context"
	"errors"
	"fmt"

	"normcode.dev/core/internal/element"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/reference"
	"normcode.dev/core/internal/sequence"
	"normcode.dev/core/internal/sequence/semantic"
)

// ErrMissingAssertionCondition is returned when a judgement entry's
// working interpretation omits assertion_condition.
var ErrMissingAssertionCondition = errors.New("judgement: missing assertion_condition")

// ErrUnknownQuantifier is returned for a quantifier outside
// {ALL,EXISTS,FOR_EACH}.
var ErrUnknownQuantifier = errors.New("judgement: unknown quantifier")

// Sequence implements sequence.Sequence for sequence_kind "judgement".
type Sequence struct{}

func New() *Sequence { return &Sequence{} }

func (Sequence) Execute(ctx context.Context, f *sequence.Frame) (*sequence.Result, error) {
	out, wi, err := semantic.Run(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("judgement: %w", err)
	}
	if wi.AssertionCondition == nil {
		return nil, fmt.Errorf("judgement: %w", ErrMissingAssertionCondition)
	}

	verdict, filter, err := truthAssertion(out, *wi.AssertionCondition)
	if err != nil {
		return nil, fmt.Errorf("judgement TIA: %w", err)
	}
	return &sequence.Result{Output: verdict, Filter: filter}, nil
}

// truthAssertion implements TIA: ALL/EXISTS collapse to a single boolean
// reference; FOR_EACH returns a per-element mask (each element compared
// against the condition's truth value) that is also
// surfaced as a Filter so a @:'/@:! timing gate reading this judgement can
// propagate it without a separate read.
func truthAssertion(out *reference.Reference, cond model.AssertionCondition) (*reference.Reference, []bool, error) {
	switch cond.Quantifier {
	case "ALL":
		all := true
		for _, e := range out.Tensor {
			if e.IsSkip() {
				continue
			}
			b, _ := e.Primitive.(bool)
			if b != cond.TruthValue {
				all = false
				break
			}
		}
		return reference.NewSingleton(element.NewPrimitive(all)), nil, nil

	case "EXISTS":
		exists := false
		for _, e := range out.Tensor {
			if e.IsSkip() {
				continue
			}
			if b, ok := e.Primitive.(bool); ok && b == cond.TruthValue {
				exists = true
				break
			}
		}
		return reference.NewSingleton(element.NewPrimitive(exists)), nil, nil

	case "FOR_EACH":
		mask := make([]bool, len(out.Tensor))
		elems := make([]element.Element, len(out.Tensor))
		for i, e := range out.Tensor {
			if e.IsSkip() {
				mask[i] = false
				elems[i] = e
				continue
			}
			b, _ := e.Primitive.(bool)
			mask[i] = b == cond.TruthValue
			elems[i] = element.NewPrimitive(b == cond.TruthValue)
		}
		masked, err := reference.New(out.Axes, out.Shape, elems)
		if err != nil {
			return nil, nil, err
		}
		return masked, mask, nil

	default:
		return nil, nil, fmt.Errorf("quantifier %q: %w", cond.Quantifier, ErrUnknownQuantifier)
	}
}

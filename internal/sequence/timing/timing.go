// Package timing implements the @:' @:! @. deterministic sequences
// (§4.7.3): the decision table gating a parent inference's readiness
// and skip propagation.
package timing

import (
	"context"
	"errors"
	"fmt"

	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/sequence"
)

// ErrUnknownMarker is returned for a timing marker outside {if,if!,after}.
var ErrUnknownMarker = errors.New("unknown timing marker")

// Sequence implements sequence.Sequence for sequence_kind "timing".
type Sequence struct{}

func New() *Sequence { return &Sequence{} }

func (Sequence) Execute(_ context.Context, f *sequence.Frame) (*sequence.Result, error) {
	wi, err := f.Entry.Timing()
	if err != nil {
		return nil, fmt.Errorf("timing: interpreting working interpretation: %w", err)
	}

	conditionStatus := f.Board.Status(wi.Condition)
	conditionCompleted := conditionStatus == model.StatusCompleted || conditionStatus == model.StatusCompletedSkipped

	result := &sequence.Result{}

	switch wi.Marker {
	case model.TimingAfter:
		result.TimingReady = conditionCompleted
		result.ToBeSkipped = false

	case model.TimingIf:
		if !conditionCompleted {
			result.TimingReady = false
			break
		}
		result.TimingReady = true
		result.ToBeSkipped = !conditionTruth(f, wi.Condition)

	case model.TimingIfNot:
		if !conditionCompleted {
			result.TimingReady = false
			break
		}
		result.TimingReady = true
		result.ToBeSkipped = conditionTruth(f, wi.Condition)

	default:
		return nil, fmt.Errorf("timing marker %q: %w", wi.Marker, ErrUnknownMarker)
	}

	if result.TimingReady && !result.ToBeSkipped {
		if mask := forEachMask(f, wi.Condition); mask != nil {
			result.Filter = mask
		}
	}

	return result, nil
}

// conditionTruth reads the condition concept's boolean verdict. A
// FOR_EACH judgement's mask is treated as "met" iff at least one element
// is true, matching the EXISTS-like reading a scalar timing gate needs
// over a per-element result.
func conditionTruth(f *sequence.Frame, condition string) bool {
	ref := f.Concepts.GetReference(condition)
	if ref == nil {
		return false
	}
	if len(ref.Tensor) == 1 {
		e := ref.Tensor[0]
		if e.IsSkip() {
			return false
		}
		if b, ok := e.Primitive.(bool); ok {
			return b
		}
	}
	for _, e := range ref.Tensor {
		if e.IsSkip() {
			continue
		}
		if b, ok := e.Primitive.(bool); ok && b {
			return true
		}
	}
	return false
}

// forEachMask returns the condition's per-element boolean mask if it
// looks like a FOR_EACH judgement output (more than one element, all
// booleans), else nil.
func forEachMask(f *sequence.Frame, condition string) []bool {
	ref := f.Concepts.GetReference(condition)
	if ref == nil || len(ref.Tensor) <= 1 {
		return nil
	}
	mask := make([]bool, len(ref.Tensor))
	for i, e := range ref.Tensor {
		if e.IsSkip() {
			mask[i] = false
			continue
		}
		b, ok := e.Primitive.(bool)
		if !ok {
			return nil
		}
		mask[i] = b
	}
	return mask
}

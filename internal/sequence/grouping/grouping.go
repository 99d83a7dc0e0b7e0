// Package grouping implements the &[{}] "in" and &[#] "across"
// deterministic sequences (§4.7.2).
package grouping

import (
	"context"
	"errors"
	"fmt"

	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/reference"
	"normcode.dev/core/internal/sequence"
)

// ErrUnknownMarker is returned for a grouping marker outside {in,across}.
var ErrUnknownMarker = errors.New("unknown grouping marker")

// Sequence implements sequence.Sequence for sequence_kind "grouping".
type Sequence struct{}

func New() *Sequence { return &Sequence{} }

func (Sequence) Execute(_ context.Context, f *sequence.Frame) (*sequence.Result, error) {
	wi, err := f.Entry.Grouping()
	if err != nil {
		return nil, fmt.Errorf("grouping: interpreting working interpretation: %w", err)
	}
	if wi.Marker != model.GroupingIn && wi.Marker != model.GroupingAcross {
		return nil, fmt.Errorf("grouping marker %q: %w", wi.Marker, ErrUnknownMarker)
	}

	refs := make([]*reference.Reference, 0, len(f.Entry.ValueConcepts))
	for _, vc := range f.Entry.ValueConcepts {
		ref := f.Concepts.GetReference(vc)
		if ref == nil {
			return nil, fmt.Errorf("grouping: value concept %q has no reference", vc)
		}
		refs = append(refs, ref)
	}

	if len(wi.ByAxes) > 0 || wi.CreateAxis != "" {
		return executePerReference(refs, wi)
	}
	return executeLegacy(refs, f.Entry.ValueConcepts, wi)
}

// executeLegacy cross-products every value reference then collapses the
// listed context axes (excluding protect_axes). &[{}] additionally
// annotates each element with its originating concept name.
func executeLegacy(refs []*reference.Reference, names []string, wi model.GroupingInterpretation) (*sequence.Result, error) {
	if wi.Marker == model.GroupingIn {
		annotated := make([]*reference.Reference, len(refs))
		for i, r := range refs {
			a, err := r.Annotate(names[i])
			if err != nil {
				return nil, fmt.Errorf("grouping &[{}]: %w", err)
			}
			annotated[i] = a
		}
		refs = annotated
	}

	combined, err := reference.CrossProduct(refs...)
	if err != nil {
		return nil, fmt.Errorf("grouping: cross_product: %w", err)
	}

	collapseAxes := filterProtected(wi.ByAxisConcepts, wi.ProtectAxes)
	if len(collapseAxes) == 0 {
		return &sequence.Result{Output: combined}, nil
	}
	out, err := combined.Collapse(collapseAxes, "")
	if err != nil {
		return nil, fmt.Errorf("grouping: collapse: %w", err)
	}
	return &sequence.Result{Output: out}, nil
}

// executePerReference collapses each input reference's own per-input
// axes independently, then concatenates the results along a freshly
// created axis.
func executePerReference(refs []*reference.Reference, wi model.GroupingInterpretation) (*sequence.Result, error) {
	collapseAxes := filterProtected(wi.ByAxes, wi.ProtectAxes)

	var out *reference.Reference
	for _, r := range refs {
		collapsed := r
		var err error
		if len(collapseAxes) > 0 {
			collapsed, err = r.Collapse(collapseAxes, "")
			if err != nil {
				return nil, fmt.Errorf("grouping per-reference: collapse: %w", err)
			}
		}
		if out == nil {
			out = collapsed
			continue
		}
		out, err = out.Append(collapsed, wi.CreateAxis)
		if err != nil {
			return nil, fmt.Errorf("grouping per-reference: append: %w", err)
		}
	}
	return &sequence.Result{Output: out}, nil
}

func filterProtected(axes, protect []string) []string {
	if len(protect) == 0 {
		return axes
	}
	protected := make(map[string]struct{}, len(protect))
	for _, a := range protect {
		protected[a] = struct{}{}
	}
	out := make([]string, 0, len(axes))
	for _, a := range axes {
		if _, ok := protected[a]; ok {
			continue
		}
		out = append(out, a)
	}
	return out
}

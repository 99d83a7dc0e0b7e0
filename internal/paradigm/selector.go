package paradigm

import (
	"context"
	"errors"
	"fmt"

	"normcode.dev/core/internal/element"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/perception"
)

// ErrSelectorNotApplicable is returned when a selector's shape
// expectation (e.g. unpack on a non-list) does not match its input.
var ErrSelectorNotApplicable = errors.New("value selector not applicable to input")

// ApplySelector is the declarative data-flow layer (§4.6): it extracts a
// synthetic argument from a concept's element by index, key, unpack, or
// perceptual-sign branch. router is consulted only when sel.Branch
// requests content transmutation; a nil router with a content branch is
// an error.
func ApplySelector(ctx context.Context, sel model.ValueSelector, in element.Element, router *perception.Router) (element.Element, error) {
	out := in

	switch {
	case sel.Index != nil:
		list, ok := out.Primitive.(element.List)
		if !ok {
			return element.Element{}, fmt.Errorf("index selector: %w", ErrSelectorNotApplicable)
		}
		idx := *sel.Index
		if idx < 0 {
			idx += len(list)
		}
		if idx < 0 || idx >= len(list) {
			return element.Element{}, fmt.Errorf("index selector %d out of bounds for length %d: %w", *sel.Index, len(list), ErrSelectorNotApplicable)
		}
		out = list[idx]

	case sel.Key != nil:
		m, ok := out.Primitive.(element.Map)
		if !ok {
			return element.Element{}, fmt.Errorf("key selector %q: %w", *sel.Key, ErrSelectorNotApplicable)
		}
		v, ok := m[*sel.Key]
		if !ok {
			return element.Element{}, fmt.Errorf("key selector %q: key not present: %w", *sel.Key, ErrSelectorNotApplicable)
		}
		out = v
	}

	if sel.Branch != nil && out.Kind == element.KindSign {
		if sel.Branch.Content {
			if router == nil {
				return element.Element{}, fmt.Errorf("branch selector requests content but no perception router is configured")
			}
			resolved, err := router.Resolve(ctx, out.Sign)
			if err != nil {
				return element.Element{}, fmt.Errorf("branch selector: %w", err)
			}
			out = resolved
		}
		// Branch.Path (or neither flag set) leaves the sign as a pointer.
	}

	return out, nil
}

// Unpack spreads a collection element into multiple arguments, for
// selectors with Unpack set. It is applied after any index/key/branch
// step, operating on the resulting element.
func Unpack(e element.Element) (element.List, error) {
	list, ok := e.Primitive.(element.List)
	if !ok {
		return nil, fmt.Errorf("unpack selector: %w", ErrSelectorNotApplicable)
	}
	return list, nil
}

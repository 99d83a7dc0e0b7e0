// Package reference implements the multi-dimensional named-axis tensor
// that holds every concept's data and is the sole medium of inter-step
// communication between inferences.
package reference

import (
	"errors"
	"fmt"

	"normcode.dev/core/internal/element"
)

// NoneAxis is the reserved axis name for singleton references.
const NoneAxis = "_none_axis"

var (
	ErrUnknownAxis    = errors.New("unknown axis")
	ErrShapeMismatch  = errors.New("shape mismatch")
	ErrOutOfBounds    = errors.New("index out of bounds")
	ErrDuplicateAxis  = errors.New("duplicate axis name")
	ErrAxisCardinality = errors.New("axes and shape cardinality mismatch")
)

// Reference is a densely populated tensor of elements addressed by named
// axes. The zero value is not usable; construct with New or NewSingleton.
type Reference struct {
	Axes   []string
	Shape  []int
	Tensor []element.Element
}

// New builds a Reference from explicit axes, shape, and row-major tensor
// data. It validates axis uniqueness and that len(tensor) == product(shape).
func New(axes []string, shape []int, tensor []element.Element) (*Reference, error) {
	if len(axes) != len(shape) {
		return nil, fmt.Errorf("reference: %d axes, %d shape dims: %w", len(axes), len(shape), ErrAxisCardinality)
	}
	seen := make(map[string]struct{}, len(axes))
	for _, a := range axes {
		if _, ok := seen[a]; ok {
			return nil, fmt.Errorf("reference: axis %q: %w", a, ErrDuplicateAxis)
		}
		seen[a] = struct{}{}
	}
	want := product(shape)
	if want != len(tensor) {
		return nil, fmt.Errorf("reference: shape %v wants %d elements, got %d: %w", shape, want, len(tensor), ErrShapeMismatch)
	}
	return &Reference{
		Axes:   append([]string(nil), axes...),
		Shape:  append([]int(nil), shape...),
		Tensor: tensor,
	}, nil
}

// NewSingleton wraps a single element as a (1,)-shaped reference on the
// reserved _none_axis.
func NewSingleton(e element.Element) *Reference {
	r, _ := New([]string{NoneAxis}, []int{1}, []element.Element{e})
	return r
}

// NewSkipTensor builds an all-skip reference with the given axes and
// shape, used when a subtree is marked completed_skipped.
func NewSkipTensor(axes []string, shape []int) *Reference {
	n := product(shape)
	tensor := make([]element.Element, n)
	for i := range tensor {
		tensor[i] = element.Skip
	}
	r, _ := New(axes, shape, tensor)
	return r
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// AxisIndex returns the position of name within r.Axes, or -1.
func (r *Reference) AxisIndex(name string) int {
	for i, a := range r.Axes {
		if a == name {
			return i
		}
	}
	return -1
}

// strides returns the row-major strides for r.Shape.
func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

func flatIndex(shape, strd, idx []int) (int, error) {
	if len(idx) != len(shape) {
		return 0, fmt.Errorf("index tuple has %d dims, shape has %d: %w", len(idx), len(shape), ErrOutOfBounds)
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= shape[i] {
			return 0, fmt.Errorf("index %d out of bounds for axis dim %d (size %d): %w", v, i, shape[i], ErrOutOfBounds)
		}
		off += v * strd[i]
	}
	return off, nil
}

// Get returns the element at the given index tuple (one index per axis,
// in r.Axes order).
func (r *Reference) Get(idx []int) (element.Element, error) {
	off, err := flatIndex(r.Shape, strides(r.Shape), idx)
	if err != nil {
		return element.Element{}, err
	}
	return r.Tensor[off], nil
}

// Set writes an element at the given index tuple.
func (r *Reference) Set(idx []int, e element.Element) error {
	off, err := flatIndex(r.Shape, strides(r.Shape), idx)
	if err != nil {
		return err
	}
	r.Tensor[off] = e
	return nil
}

// Clone deep-copies the reference's metadata and tensor slice (elements
// themselves are copied by value; nested Map/List primitives are shared).
func (r *Reference) Clone() *Reference {
	out := &Reference{
		Axes:   append([]string(nil), r.Axes...),
		Shape:  append([]int(nil), r.Shape...),
		Tensor: append([]element.Element(nil), r.Tensor...),
	}
	return out
}

// mapElementwise applies fn to every tensor position of refs (which must
// share shape), skipping fn and writing element.Skip wherever any operand
// is skip at that position.
func mapElementwise(refs []*Reference, fn func(elems []element.Element) (element.Element, error)) ([]element.Element, error) {
	n := len(refs[0].Tensor)
	out := make([]element.Element, n)
	for i := 0; i < n; i++ {
		elems := make([]element.Element, len(refs))
		anySkip := false
		for j, ref := range refs {
			elems[j] = ref.Tensor[i]
			if elems[j].IsSkip() {
				anySkip = true
			}
		}
		if anySkip {
			out[i] = element.Skip
			continue
		}
		e, err := fn(elems)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

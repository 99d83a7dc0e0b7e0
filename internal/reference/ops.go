package reference

import (
	"fmt"

	"normcode.dev/core/internal/element"
)

// Selector picks a position along a sliced axis: an integer index or a
// boolean mask the same length as the axis.
type Selector struct {
	Index int
	Mask  []bool
	IsInt bool
}

// IntSelector builds an integer Selector.
func IntSelector(i int) Selector { return Selector{Index: i, IsInt: true} }

// MaskSelector builds a boolean-mask Selector.
func MaskSelector(mask []bool) Selector { return Selector{Mask: mask} }

// Slice returns a new Reference with axisName removed, keeping only the
// position(s) named by selector. An integer selector drops the axis
// entirely (rank reduces by one); a mask selector keeps the axis but
// filters its extent to the positions where mask is true.
func (r *Reference) Slice(axisName string, sel Selector) (*Reference, error) {
	ai := r.AxisIndex(axisName)
	if ai < 0 {
		return nil, fmt.Errorf("slice axis %q: %w", axisName, ErrUnknownAxis)
	}

	if sel.IsInt {
		return r.sliceIndex(ai, sel.Index)
	}
	return r.sliceMask(ai, sel.Mask)
}

func (r *Reference) sliceIndex(axisPos, idx int) (*Reference, error) {
	if idx < 0 {
		idx += r.Shape[axisPos]
	}
	if idx < 0 || idx >= r.Shape[axisPos] {
		return nil, fmt.Errorf("slice index %d out of bounds for axis dim %d: %w", idx, r.Shape[axisPos], ErrOutOfBounds)
	}
	newAxes := dropAt(r.Axes, axisPos)
	newShape := dropAt(r.Shape, axisPos)
	strd := strides(r.Shape)
	n := product(newShape)
	out := make([]element.Element, n)
	iterIndices(newShape, func(rest []int, flatOut int) {
		full := insertAt(rest, axisPos, idx)
		off, _ := flatIndex(r.Shape, strd, full)
		out[flatOut] = r.Tensor[off]
	})
	return New(newAxes, newShape, out)
}

func (r *Reference) sliceMask(axisPos int, mask []bool) (*Reference, error) {
	if len(mask) != r.Shape[axisPos] {
		return nil, fmt.Errorf("mask length %d does not match axis dim %d: %w", len(mask), r.Shape[axisPos], ErrShapeMismatch)
	}
	kept := 0
	for _, b := range mask {
		if b {
			kept++
		}
	}
	newShape := append([]int(nil), r.Shape...)
	newShape[axisPos] = kept
	strd := strides(r.Shape)
	n := product(newShape)
	out := make([]element.Element, n)
	iterIndices(newShape, func(idx []int, flatOut int) {
		// map the compacted index along axisPos back to the original index
		full := append([]int(nil), idx...)
		kept := -1
		orig := -1
		for i, keep := range mask {
			if keep {
				kept++
				if kept == idx[axisPos] {
					orig = i
					break
				}
			}
		}
		full[axisPos] = orig
		off, _ := flatIndex(r.Shape, strd, full)
		out[flatOut] = r.Tensor[off]
	})
	return New(r.Axes, newShape, out)
}

// Append concatenates other along alongAxis. If alongAxis is absent from
// r, it is introduced with size 1 before appending. All other axes must
// agree by name and size.
func (r *Reference) Append(other *Reference, alongAxis string) (*Reference, error) {
	base := r
	if r.AxisIndex(alongAxis) < 0 {
		expanded, err := insertAxis(r, alongAxis, 0)
		if err != nil {
			return nil, err
		}
		base = expanded
	}
	ai := base.AxisIndex(alongAxis)
	oi := other.AxisIndex(alongAxis)
	if oi < 0 {
		expanded, err := insertAxis(other, alongAxis, 0)
		if err != nil {
			return nil, err
		}
		other = expanded
		oi = other.AxisIndex(alongAxis)
	}

	if len(base.Axes) != len(other.Axes) {
		return nil, fmt.Errorf("append along %q: rank mismatch %d vs %d: %w", alongAxis, len(base.Axes), len(other.Axes), ErrShapeMismatch)
	}
	// verify every other axis matches by name+size, at whatever position it occupies in each
	for i, a := range base.Axes {
		if i == ai {
			continue
		}
		oPos := other.AxisIndex(a)
		if oPos < 0 {
			return nil, fmt.Errorf("append along %q: axis %q missing on other operand: %w", alongAxis, a, ErrShapeMismatch)
		}
		if base.Shape[i] != other.Shape[oPos] {
			return nil, fmt.Errorf("append along %q: axis %q size %d vs %d: %w", alongAxis, a, base.Shape[i], other.Shape[oPos], ErrShapeMismatch)
		}
	}

	newShape := append([]int(nil), base.Shape...)
	newShape[ai] = base.Shape[ai] + other.Shape[oi]
	n := product(newShape)
	out := make([]element.Element, n)
	baseStrd := strides(base.Shape)
	otherStrd := strides(other.Shape)
	iterIndices(newShape, func(idx []int, flatOut int) {
		if idx[ai] < base.Shape[ai] {
			off, _ := flatIndex(base.Shape, baseStrd, idx)
			out[flatOut] = base.Tensor[off]
			return
		}
		oIdx := append([]int(nil), idx...)
		oIdx[ai] = idx[ai] - base.Shape[ai]
		// reorder oIdx into other's axis order
		reordered := make([]int, len(other.Axes))
		for i, a := range other.Axes {
			pos := indexOf(base.Axes, a)
			reordered[i] = oIdx[pos]
		}
		off, _ := flatIndex(other.Shape, otherStrd, reordered)
		out[flatOut] = other.Tensor[off]
	})
	return New(base.Axes, newShape, out)
}

func insertAxis(r *Reference, name string, size int) (*Reference, error) {
	if size != 0 {
		return nil, fmt.Errorf("insertAxis %q: only size-1 introduction supported: %w", name, ErrShapeMismatch)
	}
	newAxes := append(append([]string(nil), r.Axes...), name)
	newShape := append(append([]int(nil), r.Shape...), 1)
	return New(newAxes, newShape, append([]element.Element(nil), r.Tensor...))
}

// CrossProduct aligns operands by shared axis names (pairing axes of the
// same name across operands) and introduces every distinct axis as an
// independent dimension. The output element at each position is a
// List of the aligned operand elements, in operand order.
func CrossProduct(refs ...*Reference) (*Reference, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("cross_product: no operands: %w", ErrShapeMismatch)
	}
	axisSize := map[string]int{}
	var axisOrder []string
	for _, r := range refs {
		for i, a := range r.Axes {
			if sz, ok := axisSize[a]; ok {
				if sz != r.Shape[i] {
					return nil, fmt.Errorf("cross_product: axis %q size %d vs %d: %w", a, sz, r.Shape[i], ErrShapeMismatch)
				}
				continue
			}
			axisSize[a] = r.Shape[i]
			axisOrder = append(axisOrder, a)
		}
	}
	outShape := make([]int, len(axisOrder))
	for i, a := range axisOrder {
		outShape[i] = axisSize[a]
	}
	n := product(outShape)
	out := make([]element.Element, n)
	operandStrides := make([][]int, len(refs))
	for i, r := range refs {
		operandStrides[i] = strides(r.Shape)
	}
	iterIndices(outShape, func(idx []int, flatOut int) {
		list := make(element.List, len(refs))
		for ri, r := range refs {
			sub := make([]int, len(r.Axes))
			for i, a := range r.Axes {
				pos := indexOf(axisOrder, a)
				sub[i] = idx[pos]
			}
			off, _ := flatIndex(r.Shape, operandStrides[ri], sub)
			list[ri] = r.Tensor[off]
		}
		out[flatOut] = element.NewPrimitive(list)
	})
	return New(axisOrder, outShape, out)
}

// CrossAction elementwise applies each callable element of functionsRef to
// the aligned argument tuple from valuesRef (as produced by CrossProduct).
// A skip in either operand propagates to the output at that position.
func CrossAction(functionsRef, valuesRef *Reference, apply func(fn element.Element, args element.List) (element.Element, error)) (*Reference, error) {
	aligned, err := CrossProduct(functionsRef, valuesRef)
	if err != nil {
		return nil, err
	}
	out := make([]element.Element, len(aligned.Tensor))
	for i, e := range aligned.Tensor {
		if e.IsSkip() {
			out[i] = element.Skip
			continue
		}
		pair := e.Primitive.(element.List)
		fn, args := pair[0], pair[1]
		if fn.IsSkip() || args.IsSkip() {
			out[i] = element.Skip
			continue
		}
		var argList element.List
		if l, ok := args.Primitive.(element.List); ok {
			argList = l
		} else {
			argList = element.List{args}
		}
		result, err := apply(fn, argList)
		if err != nil {
			return nil, err
		}
		out[i] = result
	}
	return New(aligned.Axes, aligned.Shape, out)
}

// Collapse removes the listed axes by flattening them into a single new
// axis. If createAxis is empty, the collapsed positions become a List
// element at each remaining position rather than a new dimension.
func (r *Reference) Collapse(axes []string, createAxis string) (*Reference, error) {
	collapse := map[string]struct{}{}
	for _, a := range axes {
		if r.AxisIndex(a) < 0 {
			return nil, fmt.Errorf("collapse axis %q: %w", a, ErrUnknownAxis)
		}
		collapse[a] = struct{}{}
	}
	var keepAxes []string
	var keepShape []int
	var collapsedShape []int
	for i, a := range r.Axes {
		if _, ok := collapse[a]; ok {
			collapsedShape = append(collapsedShape, r.Shape[i])
			continue
		}
		keepAxes = append(keepAxes, a)
		keepShape = append(keepShape, r.Shape[i])
	}

	strd := strides(r.Shape)
	if createAxis == "" {
		n := product(keepShape)
		out := make([]element.Element, n)
		iterIndices(keepShape, func(keepIdx []int, flatOut int) {
			var flattened element.List
			iterIndices(collapsedShape, func(collIdx []int, _ int) {
				full := mergeIndices(r.Axes, keepAxes, axes, keepIdx, collIdx)
				off, _ := flatIndex(r.Shape, strd, full)
				flattened = append(flattened, r.Tensor[off])
			})
			out[flatOut] = element.NewPrimitive(flattened)
		})
		return New(keepAxes, keepShape, out)
	}

	newAxes := append(append([]string(nil), keepAxes...), createAxis)
	newCollapsedSize := product(collapsedShape)
	newShape := append(append([]int(nil), keepShape...), newCollapsedSize)
	n := product(newShape)
	out := make([]element.Element, n)
	iterIndices(keepShape, func(keepIdx []int, _ int) {
		j := 0
		iterIndices(collapsedShape, func(collIdx []int, _ int) {
			full := mergeIndices(r.Axes, keepAxes, axes, keepIdx, collIdx)
			off, _ := flatIndex(r.Shape, strd, full)
			outIdx := append(append([]int(nil), keepIdx...), j)
			outStrd := strides(newShape)
			outOff, _ := flatIndex(newShape, outStrd, outIdx)
			out[outOff] = r.Tensor[off]
			j++
		})
	})
	return New(newAxes, newShape, out)
}

func mergeIndices(origAxes, keepAxes, collAxes []string, keepIdx, collIdx []int) []int {
	full := make([]int, len(origAxes))
	for i, a := range origAxes {
		if p := indexOf(keepAxes, a); p >= 0 {
			full[i] = keepIdx[p]
			continue
		}
		p := indexOf(collAxes, a)
		full[i] = collIdx[p]
	}
	return full
}

// Annotate wraps each element as a single-key Map {name: element}.
func (r *Reference) Annotate(name string) (*Reference, error) {
	out := make([]element.Element, len(r.Tensor))
	for i, e := range r.Tensor {
		if e.IsSkip() {
			out[i] = element.Skip
			continue
		}
		out[i] = element.NewPrimitive(element.Map{name: e})
	}
	return New(r.Axes, r.Shape, out)
}

func dropAt[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	out = append(out, s[i+1:]...)
	return out
}

func insertAt[T any](s []T, i int, v T) []T {
	out := make([]T, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, v)
	out = append(out, s[i:]...)
	return out
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// iterIndices walks every index tuple of shape in row-major order,
// calling fn with the tuple and its flat offset.
func iterIndices(shape []int, fn func(idx []int, flat int)) {
	n := product(shape)
	idx := make([]int, len(shape))
	for flat := 0; flat < n; flat++ {
		fn(idx, flat)
		for d := len(shape) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
}

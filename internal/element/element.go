// Package element defines the tagged value type stored at every tensor
// position of a Reference: a primitive, a perceptual sign, or the
// distinguished skip marker.
package element

import "fmt"

// Kind tags the variant held by an Element.
type Kind int

const (
	// KindPrimitive holds a plain value: string, number, bool, map, or list.
	KindPrimitive Kind = iota
	// KindSign holds a perceptual sign, an opaque pointer to deferred data.
	KindSign
	// KindSkip marks the distinguished "no data here" position.
	KindSkip
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindSign:
		return "sign"
	case KindSkip:
		return "skip"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Element is one tagged position in a Reference's tensor. Exactly one of
// Primitive or Sign is meaningful, selected by Kind.
type Element struct {
	Kind      Kind
	Primitive any
	Sign      *Sign
}

// Skip is the single shared skip element. Every skip position in every
// Reference may share this value; it carries no state.
var Skip = Element{Kind: KindSkip}

// IsSkip reports whether e is the skip marker.
func (e Element) IsSkip() bool {
	return e.Kind == KindSkip
}

// NewPrimitive wraps v as a primitive element. v may itself be a
// map[string]Element or []Element for nested structure.
func NewPrimitive(v any) Element {
	return Element{Kind: KindPrimitive, Primitive: v}
}

// NewSign wraps a perceptual sign as an element.
func NewSign(s *Sign) Element {
	return Element{Kind: KindSign, Sign: s}
}

// Map is a dictionary-shaped primitive element value.
type Map = map[string]Element

// List is a list-shaped primitive element value.
type List = []Element

// Equal reports deep equality between two elements. Map and List
// comparisons recurse structurally.
func Equal(a, b Element) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindSkip:
		return true
	case KindSign:
		if a.Sign == nil || b.Sign == nil {
			return a.Sign == b.Sign
		}
		return *a.Sign == *b.Sign
	default:
		return equalPrimitive(a.Primitive, b.Primitive)
	}
}

func equalPrimitive(a, b any) bool {
	am, aok := a.(Map)
	bm, bok := b.(Map)
	if aok || bok {
		if !aok || !bok || len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}

	al, aok := a.([]Element)
	bl, bok := b.([]Element)
	if aok || bok {
		if !aok || !bok || len(al) != len(bl) {
			return false
		}
		for i := range al {
			if !Equal(al[i], bl[i]) {
				return false
			}
		}
		return true
	}

	return a == b
}

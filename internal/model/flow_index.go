package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FlowIndex is a dotted-integer path (e.g. "1.1.3.2") assigned by
// indentation depth. It defines Waitlist order and is compared
// lexicographically over its integer segments, not its string form.
type FlowIndex string

// Segments parses the dotted path into its integer components.
func (f FlowIndex) Segments() ([]int, error) {
	parts := strings.Split(string(f), ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("flow index %q: segment %q: %w", f, p, err)
		}
		out[i] = n
	}
	return out, nil
}

// Less reports whether f sorts before g under dotted-integer comparison:
// segment by segment, a shorter prefix sorts before its extension.
func (f FlowIndex) Less(g FlowIndex) bool {
	fa, errF := f.Segments()
	ga, errG := g.Segments()
	if errF != nil || errG != nil {
		return string(f) < string(g)
	}
	for i := 0; i < len(fa) && i < len(ga); i++ {
		if fa[i] != ga[i] {
			return fa[i] < ga[i]
		}
	}
	return len(fa) < len(ga)
}

// IsAncestorOf reports whether f is a strict dotted-prefix of g, i.e. f
// names an ancestor inference of g in the flow-index hierarchy.
func (f FlowIndex) IsAncestorOf(g FlowIndex) bool {
	if f == g {
		return false
	}
	return strings.HasPrefix(string(g), string(f)+".")
}

// SortFlowIndices sorts a slice of flow indices in dotted-integer order.
func SortFlowIndices(indices []FlowIndex) {
	sort.Slice(indices, func(i, j int) bool { return indices[i].Less(indices[j]) })
}

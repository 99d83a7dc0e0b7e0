package element

import (
	"fmt"
	"regexp"
	"strings"
)

// Sign is a perceptual sign: a triple (Norm, ID, Signifier) naming a
// deferred transmutation. Norm must match [A-Za-z_][A-Za-z0-9_]*, ID must
// match [A-Za-z0-9]+, and Signifier is an arbitrary string with literal
// parentheses doubled on the wire.
type Sign struct {
	Norm      string
	ID        string
	Signifier string
}

var (
	normRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	idRe   = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	signRe = regexp.MustCompile(`^%\{([^}]*)\}([A-Za-z0-9]+)\((.*)\)$`)
)

// String renders the sign in its bit-exact wire form:
// %{<norm>}<id>(<signifier>), doubling literal parentheses in Signifier.
func (s Sign) String() string {
	escaped := strings.NewReplacer("(", "((", ")", "))").Replace(s.Signifier)
	return fmt.Sprintf("%%{%s}%s(%s)", s.Norm, s.ID, escaped)
}

// ParseSign parses the bit-exact wire form produced by String.
func ParseSign(raw string) (*Sign, error) {
	m := signRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("perceptual sign %q: %w", raw, ErrMalformedSign)
	}
	norm, id, body := m[1], m[2], m[3]
	if !normRe.MatchString(norm) {
		return nil, fmt.Errorf("perceptual sign %q: invalid norm %q: %w", raw, norm, ErrMalformedSign)
	}
	if !idRe.MatchString(id) {
		return nil, fmt.Errorf("perceptual sign %q: invalid id %q: %w", raw, id, ErrMalformedSign)
	}
	signifier := unescapeSignifier(body)
	return &Sign{Norm: norm, ID: id, Signifier: signifier}, nil
}

func unescapeSignifier(body string) string {
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if (c == '(' || c == ')') && i+1 < len(body) && body[i+1] == c {
			b.WriteByte(c)
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

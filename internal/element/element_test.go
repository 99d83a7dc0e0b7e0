package element

import "testing"

func TestSignRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		sign Sign
	}{
		{"simple", Sign{Norm: "file_location", ID: "a1", Signifier: "/tmp/x.txt"}},
		{"parens", Sign{Norm: "prompt_location", ID: "Z9", Signifier: "say (hi) now"}},
		{"empty_signifier", Sign{Norm: "literal", ID: "q", Signifier: ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wire := tc.sign.String()
			got, err := ParseSign(wire)
			if err != nil {
				t.Fatalf("ParseSign(%q) error: %v", wire, err)
			}
			if *got != tc.sign {
				t.Fatalf("round trip mismatch: got %+v, want %+v", *got, tc.sign)
			}
		})
	}
}

func TestParseSignMalformed(t *testing.T) {
	for _, raw := range []string{
		"not-a-sign",
		"%{1bad}id(x)",
		"%{ok}bad-id(x)",
		"%{ok}id(unterminated",
	} {
		if _, err := ParseSign(raw); err == nil {
			t.Fatalf("ParseSign(%q): expected error", raw)
		}
	}
}

func TestSkipIsSkip(t *testing.T) {
	if !Skip.IsSkip() {
		t.Fatal("Skip.IsSkip() = false")
	}
	if NewPrimitive(1).IsSkip() {
		t.Fatal("primitive reported as skip")
	}
}

func TestEqual(t *testing.T) {
	a := NewPrimitive(Map{"x": NewPrimitive(1)})
	b := NewPrimitive(Map{"x": NewPrimitive(1)})
	c := NewPrimitive(Map{"x": NewPrimitive(2)})
	if !Equal(a, b) {
		t.Fatal("expected equal maps to compare equal")
	}
	if Equal(a, c) {
		t.Fatal("expected differing maps to compare unequal")
	}
	if !Equal(Skip, Skip) {
		t.Fatal("skip should equal skip")
	}
}

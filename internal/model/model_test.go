package model

import (
	"errors"
	"testing"
)

func TestParseSequenceKindRefusesQuantifying(t *testing.T) {
	if _, err := ParseSequenceKind("quantifying"); !errors.Is(err, ErrLegacyQuantifying) {
		t.Fatalf("expected ErrLegacyQuantifying, got %v", err)
	}
}

func TestParseSequenceKindAccepted(t *testing.T) {
	k, err := ParseSequenceKind("looping")
	if err != nil {
		t.Fatal(err)
	}
	if k != SequenceKindLooping {
		t.Fatalf("got %v, want looping", k)
	}
}

func TestParseConceptKindUnknown(t *testing.T) {
	if _, err := ParseConceptKind("bogus"); !errors.Is(err, ErrUnknownConceptKind) {
		t.Fatalf("expected ErrUnknownConceptKind, got %v", err)
	}
}

func TestFlowIndexLess(t *testing.T) {
	cases := []struct {
		a, b FlowIndex
		want bool
	}{
		{"1.2", "1.10", true},
		{"1.10", "1.2", false},
		{"1", "1.1", true},
		{"1.1", "1", false},
		{"2", "1.9.9", false},
	}
	for _, tc := range cases {
		if got := tc.a.Less(tc.b); got != tc.want {
			t.Errorf("%s.Less(%s) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFlowIndexIsAncestorOf(t *testing.T) {
	if !FlowIndex("1.2").IsAncestorOf("1.2.3") {
		t.Fatal("expected 1.2 to be ancestor of 1.2.3")
	}
	if FlowIndex("1.2").IsAncestorOf("1.20") {
		t.Fatal("1.2 must not be treated as ancestor of 1.20 (prefix must respect dot boundary)")
	}
}

func TestStatusIsReady(t *testing.T) {
	if !StatusCompleted.IsReady() || !StatusCompletedSkipped.IsReady() {
		t.Fatal("completed and completed_skipped must be ready")
	}
	if StatusPending.IsReady() || StatusFailed.IsReady() {
		t.Fatal("pending/failed must not be ready")
	}
}

package model

import (
	"encoding/json"
	"fmt"
)

// SequenceKind tags the six pipeline kinds a plan inference can declare.
type SequenceKind int

const (
	SequenceKindUnspecified SequenceKind = iota
	SequenceKindAssigning
	SequenceKindGrouping
	SequenceKindTiming
	SequenceKindLooping
	SequenceKindImperative
	SequenceKindJudgement
)

var sequenceKindNames = map[SequenceKind]string{
	SequenceKindAssigning:  "assigning",
	SequenceKindGrouping:   "grouping",
	SequenceKindTiming:     "timing",
	SequenceKindLooping:    "looping",
	SequenceKindImperative: "imperative",
	SequenceKindJudgement:  "judgement",
}

var sequenceKindValues = func() map[string]SequenceKind {
	m := make(map[string]SequenceKind, len(sequenceKindNames))
	for k, v := range sequenceKindNames {
		m[v] = k
	}
	return m
}()

func (k SequenceKind) String() string {
	if s, ok := sequenceKindNames[k]; ok {
		return s
	}
	return "unspecified"
}

// ParseSequenceKind resolves the wire string to its tagged variant.
//
// "quantifying" is the legacy name for the looping sequence kind. Per the
// decision recorded for this plan loader, it is refused rather than
// silently treated as a synonym — loaders that still emit it must be
// migrated to "looping".
func ParseSequenceKind(s string) (SequenceKind, error) {
	if s == "quantifying" {
		return SequenceKindUnspecified, fmt.Errorf("sequence kind %q: %w", s, ErrLegacyQuantifying)
	}
	if k, ok := sequenceKindValues[s]; ok {
		return k, nil
	}
	return SequenceKindUnspecified, fmt.Errorf("sequence kind %q: %w", s, ErrUnknownSequenceKind)
}

func (k SequenceKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *SequenceKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseSequenceKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

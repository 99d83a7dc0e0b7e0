package model

import "encoding/json"

// AssigningMarker tags which of the five assigning operators ($=, $%, $.,
// $+, $-) a working interpretation configures.
type AssigningMarker string

const (
	AssigningIdentity       AssigningMarker = "="
	AssigningAbstraction    AssigningMarker = "%"
	AssigningSpecification  AssigningMarker = "."
	AssigningContinuation   AssigningMarker = "+"
	AssigningDerelation     AssigningMarker = "-"
)

// GroupingMarker tags which grouping mode ("in" or "across") applies.
type GroupingMarker string

const (
	GroupingIn     GroupingMarker = "in"
	GroupingAcross GroupingMarker = "across"
)

// TimingMarker tags the three timing conditions.
type TimingMarker string

const (
	TimingIf    TimingMarker = "if"
	TimingIfNot TimingMarker = "if!"
	TimingAfter TimingMarker = "after"
)

// AssigningInterpretation is the working_interpretation payload for
// sequence_kind "assigning".
type AssigningInterpretation struct {
	Marker AssigningMarker `json:"marker"`

	// $= identity
	AliasConcept     string `json:"alias_concept,omitempty"`
	CanonicalConcept string `json:"canonical_concept,omitempty"`

	// $% abstraction
	FaceValue json.RawMessage `json:"face_value,omitempty"`
	AxisNames []string        `json:"axis_names,omitempty"`

	// $. specification
	Candidates []string `json:"candidates,omitempty"`

	// $+ continuation
	ByAxes []string `json:"by_axes,omitempty"`

	// $- derelation
	Selector *ValueSelector `json:"selector,omitempty"`
}

// GroupingInterpretation is the working_interpretation payload for
// sequence_kind "grouping".
type GroupingInterpretation struct {
	Marker GroupingMarker `json:"marker"`

	// legacy mode
	ByAxisConcepts []string `json:"by_axis_concepts,omitempty"`

	// per-reference mode
	ByAxes     []string `json:"by_axes,omitempty"`
	CreateAxis string   `json:"create_axis,omitempty"`

	ProtectAxes []string `json:"protect_axes,omitempty"`
}

// TimingInterpretation is the working_interpretation payload for
// sequence_kind "timing".
type TimingInterpretation struct {
	Marker    TimingMarker `json:"marker"`
	Condition string       `json:"condition"`
}

// LoopingInterpretation is the working_interpretation payload for
// sequence_kind "looping".
type LoopingInterpretation struct {
	LoopIndex              int            `json:"loop_index"`
	LoopBaseConcept        string         `json:"LoopBaseConcept"`
	CurrentLoopBaseConcept string         `json:"CurrentLoopBaseConcept"`
	GroupBase              string         `json:"group_base"`
	InLoopConcept          map[string]int `json:"InLoopConcept"`
	ConceptToInfer         []string       `json:"ConceptToInfer"`
	Invariant              []string       `json:"invariant,omitempty"`
}

// ValueSelector is the declarative data-flow extractor applied to a
// concept reference before it reaches a paradigm callable.
type ValueSelector struct {
	Index  *int             `json:"index,omitempty"`
	Key    *string          `json:"key,omitempty"`
	Unpack bool             `json:"unpack,omitempty"`
	Branch *BranchSelector  `json:"branch,omitempty"`
}

// BranchSelector directs perceptual-sign transmutation: whether to
// resolve the sign to concrete data (content) or leave it as a pointer
// (path).
type BranchSelector struct {
	Path    bool `json:"path,omitempty"`
	Content bool `json:"content,omitempty"`
}

// AssertionCondition is the judgement sequence's TIA configuration.
type AssertionCondition struct {
	Quantifier string `json:"quantifier"` // ALL | EXISTS | FOR_EACH
	TruthValue bool   `json:"truth_value"`
}

// SemanticInterpretation is the working_interpretation payload shared by
// imperative and judgement sequence kinds; judgement additionally sets
// AssertionCondition.
type SemanticInterpretation struct {
	Paradigm                string                   `json:"paradigm"`
	ValueOrder              []string                 `json:"value_order"`
	ValueSelectors          map[string]ValueSelector `json:"value_selectors,omitempty"`
	CreateAxisOnListOutput  *bool                    `json:"create_axis_on_list_output,omitempty"`
	AssertionCondition      *AssertionCondition      `json:"assertion_condition,omitempty"`
}

// CreatesAxisOnListOutput returns the effective flag, defaulting to true
// per §4.6.
func (s SemanticInterpretation) CreatesAxisOnListOutput() bool {
	if s.CreateAxisOnListOutput == nil {
		return true
	}
	return *s.CreateAxisOnListOutput
}

// InferenceEntry is one step in the plan, per §3.
type InferenceEntry struct {
	FlowIndex          FlowIndex       `json:"flow_index"`
	SequenceKind       SequenceKind    `json:"sequence_kind"`
	ConceptToInfer     string          `json:"concept_to_infer"`
	FunctionConcept    string          `json:"function_concept"`
	ValueConcepts      []string        `json:"value_concepts"`
	ContextConcepts    []string        `json:"context_concepts,omitempty"`
	WorkingInterp      json.RawMessage `json:"working_interpretation"`
	SupportingChildren []FlowIndex     `json:"supporting_children,omitempty"`
}

// Assigning unmarshals WorkingInterp as an AssigningInterpretation. It
// must only be called when SequenceKind == SequenceKindAssigning.
func (e *InferenceEntry) Assigning() (AssigningInterpretation, error) {
	var wi AssigningInterpretation
	err := json.Unmarshal(e.WorkingInterp, &wi)
	return wi, err
}

// Grouping unmarshals WorkingInterp as a GroupingInterpretation.
func (e *InferenceEntry) Grouping() (GroupingInterpretation, error) {
	var wi GroupingInterpretation
	err := json.Unmarshal(e.WorkingInterp, &wi)
	return wi, err
}

// Timing unmarshals WorkingInterp as a TimingInterpretation.
func (e *InferenceEntry) Timing() (TimingInterpretation, error) {
	var wi TimingInterpretation
	err := json.Unmarshal(e.WorkingInterp, &wi)
	return wi, err
}

// Looping unmarshals WorkingInterp as a LoopingInterpretation.
func (e *InferenceEntry) Looping() (LoopingInterpretation, error) {
	var wi LoopingInterpretation
	err := json.Unmarshal(e.WorkingInterp, &wi)
	return wi, err
}

// Semantic unmarshals WorkingInterp as a SemanticInterpretation, valid
// for both imperative and judgement sequence kinds.
func (e *InferenceEntry) Semantic() (SemanticInterpretation, error) {
	var wi SemanticInterpretation
	err := json.Unmarshal(e.WorkingInterp, &wi)
	return wi, err
}

// Package paradigm implements the Paradigm Composer: compiling a
// declarative paradigm specification into a callable via vertical
// (setup) then horizontal (runtime) composition (§4.6).
package paradigm

import "encoding/json"

// VerticalSpec is the "v_*" setup half of a paradigm specification: the
// tool name to bind and its setup inputs (e.g. a prompt-template
// location, a script location). MFP resolves this once per inference
// instantiation, after IR has read the value concepts.
type VerticalSpec struct {
	Tool        string          `json:"v_tool"`
	SetupInputs json.RawMessage `json:"v_setup_inputs,omitempty"`
}

// HorizontalStep is one ordered composition step in the "h_*" plan:
// a method label, the scope keys passed as the step's arguments, and the
// scope name its output is bound to for later steps.
type HorizontalStep struct {
	Method      string            `json:"h_method"`
	InputArgs   []string          `json:"c_input_args,omitempty"`
	OutputAs    string            `json:"o_output_as,omitempty"`
}

// Spec is the full JSON paradigm specification: a paradigm identity
// string following "[inputs]-[composition]-[outputs]", a vertical setup,
// and the ordered horizontal plan.
type Spec struct {
	ParadigmID string            `json:"paradigm_id"`
	Vertical   VerticalSpec      `json:"vertical"`
	Horizontal []HorizontalStep  `json:"horizontal"`
}

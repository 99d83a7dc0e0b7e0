package imperative

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"normcode.dev/core/internal/agent"
	"normcode.dev/core/internal/element"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/paradigm"
	"normcode.dev/core/internal/repo"
	"normcode.dev/core/internal/sequence"
)

type doubleTool struct{}

func (doubleTool) Name() string { return "double" }
func (doubleTool) Invoke(_ context.Context, args element.List) (element.Element, error) {
	if len(args) == 0 {
		return element.NewPrimitive("setup"), nil
	}
	list := args[0].Primitive.(element.List)
	n := list[0].Primitive.(float64)
	return element.NewPrimitive(n * 2), nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecuteRunsParadigmOverValues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "double.json", `{
		"paradigm_id": "double",
		"vertical": {"v_tool": "double"},
		"horizontal": [{"h_method": "call", "c_input_args": ["_values"], "o_output_as": "result"}]
	}`)
	reg, err := paradigm.NewRegistry(dir)
	if err != nil {
		t.Fatal(err)
	}

	concepts := writeFile(t, dir, "concepts.json", `[
		{"concept_name": "n", "kind": "object", "is_ground": true, "reference_axes": ["x"], "reference_data": [21]},
		{"concept_name": "out", "kind": "object"}
	]`)
	cr, err := repo.LoadConceptRepo(concepts)
	if err != nil {
		t.Fatal(err)
	}

	body := agent.NewBody(doubleTool{})
	ag := agent.NewAgent("subject", body, nil)

	entry := &model.InferenceEntry{
		FlowIndex:      "1",
		SequenceKind:   model.SequenceKindImperative,
		ConceptToInfer: "out",
		ValueConcepts:  []string{"n"},
		WorkingInterp:  []byte(`{"paradigm": "double", "value_order": ["n"]}`),
	}
	f := &sequence.Frame{Entry: entry, Concepts: cr, Paradigms: reg, Agent: ag}

	res, err := New().Execute(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if res.Output.Tensor[0].Primitive.(float64) != 42 {
		t.Fatalf("got %v, want 42", res.Output.Tensor[0].Primitive)
	}
}

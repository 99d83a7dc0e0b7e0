package looping

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"normcode.dev/core/internal/blackboard"
	"normcode.dev/core/internal/element"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/reference"
	"normcode.dev/core/internal/repo"
	"normcode.dev/core/internal/sequence"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newFrame(t *testing.T) (*sequence.Frame, *repo.ConceptRepo, *blackboard.Blackboard) {
	t.Helper()
	dir := t.TempDir()
	concepts := writeFile(t, dir, "concepts.json", `[
		{"concept_name": "items", "kind": "object", "is_ground": true, "reference_axes": ["item"], "reference_data": [10, 20]},
		{"concept_name": "current", "kind": "object"},
		{"concept_name": "doubled", "kind": "object"}
	]`)
	inferences := writeFile(t, dir, "inferences.json", `[
		{"flow_index": "1", "sequence_kind": "looping", "concept_to_infer": "doubled",
		 "function_concept": "*.", "value_concepts": [], "working_interpretation": {
			"loop_index": 0, "LoopBaseConcept": "items", "CurrentLoopBaseConcept": "current",
			"group_base": "item", "InLoopConcept": {}, "ConceptToInfer": ["doubled"]}},
		{"flow_index": "1.1", "sequence_kind": "imperative", "concept_to_infer": "doubled",
		 "function_concept": "double", "value_concepts": ["current"], "working_interpretation": {
			"paradigm": "double", "value_order": ["current"]}}
	]`)

	cr, err := repo.LoadConceptRepo(concepts)
	if err != nil {
		t.Fatal(err)
	}
	ir, err := repo.LoadInferenceRepo(inferences)
	if err != nil {
		t.Fatal(err)
	}
	board := blackboard.New()
	entry, _ := ir.Get("1")
	f := &sequence.Frame{Entry: entry, Concepts: cr, Inferences: ir, Board: board}
	return f, cr, board
}

func TestLoopingStartBindsFirstIteration(t *testing.T) {
	f, cr, _ := newFrame(t)
	res, err := New().Execute(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if !res.LoopContinues {
		t.Fatal("expected the loop to continue after start")
	}
	cur := cr.GetReference("current")
	if cur == nil || cur.Tensor[0].Primitive.(float64) != 10 {
		t.Fatalf("expected current bound to first item, got %v", cur)
	}
}

func TestLoopingAdvancesAndFinishes(t *testing.T) {
	f, cr, board := newFrame(t)

	if _, err := New().Execute(context.Background(), f); err != nil {
		t.Fatal(err)
	}

	cr.SetReference("doubled", reference.NewSingleton(element.NewPrimitive(20.0)))
	board.SetStatus("doubled", model.StatusCompleted)
	res, err := New().Execute(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if !res.LoopContinues {
		t.Fatal("expected another iteration with a second item present")
	}
	cur := cr.GetReference("current")
	if cur.Tensor[0].Primitive.(float64) != 20 {
		t.Fatalf("expected current bound to second item, got %v", cur.Tensor[0].Primitive)
	}

	cr.SetReference("doubled", reference.NewSingleton(element.NewPrimitive(40.0)))
	board.SetStatus("doubled", model.StatusCompleted)
	res, err = New().Execute(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if res.LoopContinues {
		t.Fatal("expected loop to finish after the last item")
	}
	final := cr.GetReference("doubled")
	if final == nil || len(final.Tensor) != 2 {
		t.Fatalf("expected accumulated output of length 2, got %v", final)
	}
}

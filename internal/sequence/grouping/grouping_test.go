package grouping

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/repo"
	"normcode.dev/core/internal/sequence"
)

func conceptRepo(t *testing.T, content string) *repo.ConceptRepo {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "concepts.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cr, err := repo.LoadConceptRepo(path)
	if err != nil {
		t.Fatal(err)
	}
	return cr
}

func TestExecutePerReferenceConcatenates(t *testing.T) {
	cr := conceptRepo(t, `[
		{"concept_name": "a", "kind": "object", "is_ground": true, "reference_axes": ["x"], "reference_data": [1]},
		{"concept_name": "b", "kind": "object", "is_ground": true, "reference_axes": ["x"], "reference_data": [2]}
	]`)

	entry := &model.InferenceEntry{
		FlowIndex:      "1",
		SequenceKind:   model.SequenceKindGrouping,
		ConceptToInfer: "out",
		ValueConcepts:  []string{"a", "b"},
		WorkingInterp:  []byte(`{"marker": "across", "create_axis": "group"}`),
	}
	f := &sequence.Frame{Entry: entry, Concepts: cr}
	res, err := New().Execute(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if gi := res.Output.AxisIndex("group"); gi < 0 || res.Output.Shape[gi] != 2 {
		t.Fatalf("expected concatenation along new axis to have size 2, got shape %v", res.Output.Shape)
	}
}

func TestExecuteUnknownMarker(t *testing.T) {
	cr := conceptRepo(t, `[]`)
	entry := &model.InferenceEntry{
		FlowIndex:     "1",
		SequenceKind:  model.SequenceKindGrouping,
		WorkingInterp: []byte(`{"marker": "sideways"}`),
	}
	f := &sequence.Frame{Entry: entry, Concepts: cr}
	if _, err := New().Execute(context.Background(), f); err == nil {
		t.Fatal("expected error for unknown grouping marker")
	}
}

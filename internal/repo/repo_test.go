package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"normcode.dev/core/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConceptRepoGround(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "concepts.json", `[
		{"concept_name": "{number pair}", "kind": "object", "is_ground": true,
		 "reference_axes": ["number_pair","number"],
		 "reference_data": [["123","98"]]},
		{"concept_name": "{digit sum}", "kind": "object"}
	]`)
	cr, err := LoadConceptRepo(path)
	if err != nil {
		t.Fatal(err)
	}
	ref := cr.GetReference("{number pair}")
	if ref == nil {
		t.Fatal("expected ground reference to be populated")
	}
	if ref.Shape[0] != 1 || ref.Shape[1] != 2 {
		t.Fatalf("unexpected shape %v", ref.Shape)
	}
	if cr.GetReference("{digit sum}") != nil {
		t.Fatal("expected non-ground concept to have no reference yet")
	}
	if _, ok := cr.Definition("{digit sum}"); !ok {
		t.Fatal("expected definition for {digit sum}")
	}
}

func TestLoadConceptRepoMissingName(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "concepts.json", `[{"kind": "object"}]`)
	if _, err := LoadConceptRepo(path); err == nil {
		t.Fatal("expected error for missing concept_name")
	}
}

func TestLoadInferenceRepoSortedAndAcyclic(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "inferences.json", `[
		{"flow_index": "1.2", "sequence_kind": "assigning", "concept_to_infer": "B",
		 "function_concept": "$.", "value_concepts": ["A"], "working_interpretation": {"marker": "."}},
		{"flow_index": "1.1", "sequence_kind": "assigning", "concept_to_infer": "A",
		 "function_concept": "$%", "value_concepts": [], "working_interpretation": {"marker": "%"}}
	]`)
	ir, err := LoadInferenceRepo(path)
	if err != nil {
		t.Fatal(err)
	}
	sorted := ir.IterateSorted()
	if len(sorted) != 2 || sorted[0].FlowIndex != "1.1" || sorted[1].FlowIndex != "1.2" {
		t.Fatalf("expected sorted [1.1, 1.2], got %v", sorted)
	}
}

func TestLoadInferenceRepoDetectsCycle(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "inferences.json", `[
		{"flow_index": "1", "sequence_kind": "assigning", "concept_to_infer": "A",
		 "function_concept": "$.", "value_concepts": ["B"], "working_interpretation": {"marker": "."}},
		{"flow_index": "2", "sequence_kind": "assigning", "concept_to_infer": "B",
		 "function_concept": "$.", "value_concepts": ["A"], "working_interpretation": {"marker": "."}}
	]`)
	_, err := LoadInferenceRepo(path)
	if !errors.Is(err, model.ErrPlanNotAcyclic) {
		t.Fatalf("expected ErrPlanNotAcyclic, got %v", err)
	}
}

func TestLoadInferenceRepoDuplicateFlowIndex(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "inferences.json", `[
		{"flow_index": "1", "sequence_kind": "assigning", "concept_to_infer": "A",
		 "function_concept": "$.", "value_concepts": [], "working_interpretation": {"marker": "."}},
		{"flow_index": "1", "sequence_kind": "assigning", "concept_to_infer": "B",
		 "function_concept": "$.", "value_concepts": [], "working_interpretation": {"marker": "."}}
	]`)
	if _, err := LoadInferenceRepo(path); !errors.Is(err, model.ErrDuplicateFlowIndex) {
		t.Fatalf("expected ErrDuplicateFlowIndex, got %v", err)
	}
}

package checkpoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"normcode.dev/core/internal/blackboard"
	"normcode.dev/core/internal/element"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/reference"
	"normcode.dev/core/internal/repo"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMemoryStoreSaveLoadRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	board := blackboard.New()
	board.SetStatus("a", model.StatusCompleted)

	snap := Snapshot{
		RunID:      "run-1",
		Cycle:      1,
		ConceptRefs: map[string]*reference.Reference{
			"a": reference.NewSingleton(element.NewPrimitive(42.0)),
		},
		Blackboard: board.Snapshot(),
	}
	if err := store.SaveSnapshot(context.Background(), snap, "sig-1"); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.LoadSnapshot(context.Background(), "run-1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ConceptRefs["a"].Tensor[0].Primitive.(float64) != 42 {
		t.Fatalf("got %v, want 42", loaded.ConceptRefs["a"])
	}

	sig, err := store.EnvironmentSignature(context.Background(), "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if sig != "sig-1" {
		t.Fatalf("got %q, want sig-1", sig)
	}
}

func TestForkCreatesIndependentRun(t *testing.T) {
	store := NewMemoryStore()
	snap := Snapshot{RunID: "parent", Cycle: 3, ConceptRefs: map[string]*reference.Reference{}}
	if err := store.SaveSnapshot(context.Background(), snap, "sig"); err != nil {
		t.Fatal(err)
	}
	if err := store.Fork(context.Background(), "parent", 3, "child"); err != nil {
		t.Fatal(err)
	}

	forked, err := store.LoadSnapshot(context.Background(), "child", 0)
	if err != nil {
		t.Fatal(err)
	}
	if forked.RunID != "child" {
		t.Fatalf("got %q, want child", forked.RunID)
	}

	runs, err := store.ListRuns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
}

func TestReconcileOverwriteRefusesOnSignatureMismatch(t *testing.T) {
	dir := t.TempDir()
	concepts := writeFile(t, dir, "concepts.json", `[{"concept_name": "a", "kind": "object"}]`)
	cr, err := repo.LoadConceptRepo(concepts)
	if err != nil {
		t.Fatal(err)
	}
	inferences := writeFile(t, dir, "inferences.json", `[
		{"flow_index": "1", "sequence_kind": "assigning", "concept_to_infer": "a",
		 "working_interpretation": {"marker": "%", "face_value": 1}}
	]`)
	ir, err := repo.LoadInferenceRepo(inferences)
	if err != nil {
		t.Fatal(err)
	}
	board := blackboard.New()

	snap := &Snapshot{RunID: "r", Cycle: 1, ConceptRefs: map[string]*reference.Reference{}}
	err = Reconcile(ModeOverwrite, snap, "old-sig", "new-sig", cr, board, ir)
	if !errors.Is(err, ErrReconciliationRefused) {
		t.Fatalf("expected refusal, got %v", err)
	}
}

func TestReconcilePatchResetsOnlyChangedAndDependents(t *testing.T) {
	dir := t.TempDir()
	concepts := writeFile(t, dir, "concepts.json", `[
		{"concept_name": "a", "kind": "object"},
		{"concept_name": "b", "kind": "object"}
	]`)
	cr, err := repo.LoadConceptRepo(concepts)
	if err != nil {
		t.Fatal(err)
	}
	inferences := writeFile(t, dir, "inferences.json", `[
		{"flow_index": "1", "sequence_kind": "assigning", "concept_to_infer": "a",
		 "working_interpretation": {"marker": "%", "face_value": 1}},
		{"flow_index": "2", "sequence_kind": "assigning", "concept_to_infer": "b",
		 "value_concepts": ["a"],
		 "working_interpretation": {"marker": "%", "face_value": 2}}
	]`)
	ir, err := repo.LoadInferenceRepo(inferences)
	if err != nil {
		t.Fatal(err)
	}

	oldFingerprints := []InferenceFingerprint{
		{FlowIndex: "1", Hash: "stale-hash"},
		{FlowIndex: "2", Hash: mustFingerprint(t, ir, "2")},
	}

	board := blackboard.New()
	board.SetStatus("1", model.StatusCompleted)
	board.SetStatus("2", model.StatusCompleted)
	cr.SetReference("a", reference.NewSingleton(element.NewPrimitive(1.0)))
	cr.SetReference("b", reference.NewSingleton(element.NewPrimitive(2.0)))

	snap := &Snapshot{
		RunID: "r", Cycle: 5,
		ConceptRefs: map[string]*reference.Reference{
			"a": reference.NewSingleton(element.NewPrimitive(1.0)),
			"b": reference.NewSingleton(element.NewPrimitive(2.0)),
		},
		Blackboard:   board.Snapshot(),
		Fingerprints: oldFingerprints,
	}

	liveBoard := blackboard.New()
	liveConcepts, err := repo.LoadConceptRepo(concepts)
	if err != nil {
		t.Fatal(err)
	}
	if err := Reconcile(ModePatch, snap, "", "", liveConcepts, liveBoard, ir); err != nil {
		t.Fatal(err)
	}

	if liveBoard.Status("1") != model.StatusPending {
		t.Fatalf("expected changed inference 1 reset to pending, got %v", liveBoard.Status("1"))
	}
	if liveBoard.Status("2") != model.StatusPending {
		t.Fatalf("expected dependent inference 2 reset to pending, got %v", liveBoard.Status("2"))
	}
	if liveConcepts.HasReference("a") {
		t.Fatal("expected concept a's reference cleared")
	}
}

func mustFingerprint(t *testing.T, ir *repo.InferenceRepo, flowIndex string) string {
	t.Helper()
	for _, f := range ComputeFingerprints(ir) {
		if f.FlowIndex == flowIndex {
			return f.Hash
		}
	}
	t.Fatalf("no fingerprint for %q", flowIndex)
	return ""
}

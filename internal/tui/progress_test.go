package tui

import (
	"os"
	"path/filepath"
	"testing"

	"normcode.dev/core/internal/blackboard"
	"normcode.dev/core/internal/httpapi"
	"normcode.dev/core/internal/model"
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

func testLiveRun(t *testing.T) *httpapi.LiveRun {
	t.Helper()
	dir := t.TempDir()
	concepts := writeFile(t, dir, "concepts.json", `[{"concept_name": "a", "kind": "object"}]`)
	cr, err := repo.LoadConceptRepo(concepts)
	if err != nil {
		t.Fatal(err)
	}
	inferences := writeFile(t, dir, "inferences.json", `[
		{"flow_index": "1", "sequence_kind": "assigning", "concept_to_infer": "a",
		 "working_interpretation": {"marker": "%", "face_value": 1}},
		{"flow_index": "2", "sequence_kind": "assigning", "concept_to_infer": "a",
		 "working_interpretation": {"marker": "%", "face_value": 2}}
	]`)
	ir, err := repo.LoadInferenceRepo(inferences)
	if err != nil {
		t.Fatal(err)
	}
	return &httpapi.LiveRun{Concepts: cr, Inferences: ir, Board: blackboard.New()}
}

func TestModelRefreshCountsCompletedInferences(t *testing.T) {
	live := testLiveRun(t)
	live.Board.SetStatus("1", model.StatusCompleted)

	done := make(chan error, 1)
	m := NewModel("run-1", live, done)
	m.refresh()

	if m.total != 2 {
		t.Fatalf("expected total 2, got %d", m.total)
	}
	if m.completed != 1 {
		t.Fatalf("expected 1 completed, got %d", m.completed)
	}
}

func TestModelUpdateOnDoneMarksFinished(t *testing.T) {
	live := testLiveRun(t)
	done := make(chan error, 1)
	done <- nil

	m := NewModel("run-1", live, done)
	updated, cmd := m.Update(doneMsg{err: nil})
	if cmd == nil {
		t.Fatal("expected tea.Quit command")
	}
	mm := updated.(*Model)
	if !mm.finished {
		t.Fatal("expected model to be marked finished")
	}
	if mm.err != nil {
		t.Fatalf("expected no error, got %v", mm.err)
	}
}

func TestProgressBarRendersWithinWidth(t *testing.T) {
	bar := progressBar(1, 2, 20)
	if len(bar) != 20 {
		t.Fatalf("expected bar width 20, got %d (%q)", len(bar), bar)
	}
}

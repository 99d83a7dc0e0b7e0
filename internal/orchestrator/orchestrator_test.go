package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"normcode.dev/core/common/id"
	"normcode.dev/core/internal/agent"
	"normcode.dev/core/internal/blackboard"
	"normcode.dev/core/internal/checkpoint"
	"normcode.dev/core/internal/element"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/paradigm"
	"normcode.dev/core/internal/perception"
	"normcode.dev/core/internal/repo"
)

// TestMain initializes the snowflake ID generator once for the whole
// package: executeOne stamps every sequence execution with an
// ExecutionID for log correlation, which requires common/id.Init to
// have run first.
func TestMain(m *testing.M) {
	if err := id.Init(1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type addTool struct{}

func (addTool) Name() string { return "add" }
func (addTool) Invoke(_ context.Context, args element.List) (element.Element, error) {
	if len(args) == 0 {
		return element.NewPrimitive("setup"), nil
	}
	list := args[0].Primitive.(element.List)
	a := list[0].Primitive.(float64)
	b := list[1].Primitive.(float64)
	return element.NewPrimitive(a + b), nil
}

type listTool struct{}

func (listTool) Name() string { return "listify" }
func (listTool) Invoke(_ context.Context, args element.List) (element.Element, error) {
	if len(args) == 0 {
		return element.NewPrimitive("setup"), nil
	}
	return element.NewPrimitive(element.List{
		element.NewPrimitive(1.0),
		element.NewPrimitive(2.0),
		element.NewPrimitive(3.0),
	}), nil
}

type slowTool struct{}

func (slowTool) Name() string { return "slow" }
func (slowTool) Invoke(ctx context.Context, args element.List) (element.Element, error) {
	if len(args) == 0 {
		return element.NewPrimitive("setup"), nil
	}
	select {
	case <-time.After(time.Second):
		return element.NewPrimitive(1.0), nil
	case <-ctx.Done():
		return element.Element{}, ctx.Err()
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func addPlan(t *testing.T) (*repo.ConceptRepo, *repo.InferenceRepo, *paradigm.Registry) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "add.json", `{
		"paradigm_id": "add",
		"vertical": {"v_tool": "add"},
		"horizontal": [{"h_method": "call", "c_input_args": ["_values"], "o_output_as": "result"}]
	}`)
	reg, err := paradigm.NewRegistry(dir)
	if err != nil {
		t.Fatal(err)
	}

	concepts := writeFile(t, dir, "concepts.json", `[
		{"concept_name": "a", "kind": "object", "is_ground": true, "reference_axes": ["x"], "reference_data": [4]},
		{"concept_name": "b", "kind": "object", "is_ground": true, "reference_axes": ["x"], "reference_data": [6]},
		{"concept_name": "sum", "kind": "object"}
	]`)
	cr, err := repo.LoadConceptRepo(concepts)
	if err != nil {
		t.Fatal(err)
	}

	inferences := writeFile(t, dir, "inferences.json", `[
		{"flow_index": "1", "sequence_kind": "imperative", "concept_to_infer": "sum",
		 "value_concepts": ["a", "b"],
		 "working_interpretation": {"paradigm": "add", "value_order": ["a", "b"]}}
	]`)
	ir, err := repo.LoadInferenceRepo(inferences)
	if err != nil {
		t.Fatal(err)
	}
	return cr, ir, reg
}

func TestRunCompletesSimpleAddition(t *testing.T) {
	cr, ir, reg := addPlan(t)
	board := blackboard.New()
	body := agent.NewBody(addTool{})
	ag := agent.NewAgent("subject", body, nil)
	router := perception.NewRouter()

	store := checkpoint.NewMemoryStore()
	orch := New(Config{RunID: "run-a", Store: store}, cr, ir, board, reg, router, ag, nil)

	if err := orch.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	sum := cr.GetReference("sum")
	if sum == nil || sum.Tensor[0].Primitive.(float64) != 10 {
		t.Fatalf("got %v, want 10", sum)
	}
	if board.Status("1") != model.StatusCompleted {
		t.Fatalf("expected inference 1 completed, got %v", board.Status("1"))
	}

	runs, err := store.ListRuns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].LatestCycle < 1 {
		t.Fatalf("expected one checkpointed run with at least one cycle, got %v", runs)
	}
}

func TestRunDetectsDeadlock(t *testing.T) {
	dir := t.TempDir()
	concepts := writeFile(t, dir, "concepts.json", `[
		{"concept_name": "missing", "kind": "object"},
		{"concept_name": "out", "kind": "object"}
	]`)
	cr, err := repo.LoadConceptRepo(concepts)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "noop.json", `{
		"paradigm_id": "noop",
		"vertical": {"v_tool": "add"},
		"horizontal": [{"h_method": "call", "c_input_args": ["_values"], "o_output_as": "result"}]
	}`)
	reg, err := paradigm.NewRegistry(dir)
	if err != nil {
		t.Fatal(err)
	}
	inferences := writeFile(t, dir, "inferences.json", `[
		{"flow_index": "1", "sequence_kind": "imperative", "concept_to_infer": "out",
		 "value_concepts": ["missing"],
		 "working_interpretation": {"paradigm": "noop", "value_order": ["missing"]}}
	]`)
	ir, err := repo.LoadInferenceRepo(inferences)
	if err != nil {
		t.Fatal(err)
	}

	board := blackboard.New()
	body := agent.NewBody(addTool{})
	ag := agent.NewAgent("subject", body, nil)
	router := perception.NewRouter()

	orch := New(Config{RunID: "run-deadlock"}, cr, ir, board, reg, router, ag, nil)
	err = orch.Run(context.Background())
	if !errors.Is(err, ErrDeadlock) {
		t.Fatalf("expected deadlock error, got %v", err)
	}
}

func TestRunExplodesListOutputOntoAxis(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "listify.json", `{
		"paradigm_id": "listify",
		"vertical": {"v_tool": "listify"},
		"horizontal": [{"h_method": "call", "c_input_args": ["_values"], "o_output_as": "result"}]
	}`)
	reg, err := paradigm.NewRegistry(dir)
	if err != nil {
		t.Fatal(err)
	}
	concepts := writeFile(t, dir, "concepts.json", `[
		{"concept_name": "seed", "kind": "object", "is_ground": true, "reference_axes": ["x"], "reference_data": [1]},
		{"concept_name": "items", "kind": "object"}
	]`)
	cr, err := repo.LoadConceptRepo(concepts)
	if err != nil {
		t.Fatal(err)
	}
	inferences := writeFile(t, dir, "inferences.json", `[
		{"flow_index": "1", "sequence_kind": "imperative", "concept_to_infer": "items",
		 "value_concepts": ["seed"],
		 "working_interpretation": {"paradigm": "listify", "value_order": ["seed"]}}
	]`)
	ir, err := repo.LoadInferenceRepo(inferences)
	if err != nil {
		t.Fatal(err)
	}

	board := blackboard.New()
	body := agent.NewBody(listTool{})
	ag := agent.NewAgent("subject", body, nil)
	router := perception.NewRouter()

	orch := New(Config{RunID: "run-explode"}, cr, ir, board, reg, router, ag, nil)
	if err := orch.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	items := cr.GetReference("items")
	if items == nil || len(items.Axes) != 1 || items.Axes[0] != "items" || len(items.Tensor) != 3 {
		t.Fatalf("expected items exploded onto a 3-element items axis, got %v", items)
	}
}

func TestRunFailsOnSequenceTimeout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "slow.json", `{
		"paradigm_id": "slow",
		"vertical": {"v_tool": "slow"},
		"horizontal": [{"h_method": "call", "c_input_args": ["_values"], "o_output_as": "result"}]
	}`)
	reg, err := paradigm.NewRegistry(dir)
	if err != nil {
		t.Fatal(err)
	}
	concepts := writeFile(t, dir, "concepts.json", `[
		{"concept_name": "seed", "kind": "object", "is_ground": true, "reference_axes": ["x"], "reference_data": [1]},
		{"concept_name": "out", "kind": "object"}
	]`)
	cr, err := repo.LoadConceptRepo(concepts)
	if err != nil {
		t.Fatal(err)
	}
	inferences := writeFile(t, dir, "inferences.json", `[
		{"flow_index": "1", "sequence_kind": "imperative", "concept_to_infer": "out",
		 "value_concepts": ["seed"],
		 "working_interpretation": {"paradigm": "slow", "value_order": ["seed"]}}
	]`)
	ir, err := repo.LoadInferenceRepo(inferences)
	if err != nil {
		t.Fatal(err)
	}

	board := blackboard.New()
	body := agent.NewBody(slowTool{})
	ag := agent.NewAgent("subject", body, nil)
	router := perception.NewRouter()

	orch := New(Config{RunID: "run-timeout", SequenceTimeout: 10 * time.Millisecond}, cr, ir, board, reg, router, ag, nil)
	err = orch.Run(context.Background())
	if !errors.Is(err, ErrSequenceTimeout) {
		t.Fatalf("expected sequence timeout error, got %v", err)
	}
}

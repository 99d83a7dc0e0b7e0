// Package sequence defines the shared pipeline skeleton every inference
// kind implements: interpret working interpretation, retrieve input
// references, perform the operation, write the output reference,
// finalize (§4.7, §4.8).
package sequence

import (
	"context"

	"normcode.dev/core/internal/agent"
	"normcode.dev/core/internal/blackboard"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/paradigm"
	"normcode.dev/core/internal/perception"
	"normcode.dev/core/internal/reference"
	"normcode.dev/core/internal/repo"
)

// Frame is everything one inference execution needs: its own entry, the
// shared repositories and blackboard, and the Agent bound to its
// enclosing Subject.
type Frame struct {
	Entry       *model.InferenceEntry
	Concepts    *repo.ConceptRepo
	Inferences  *repo.InferenceRepo
	Board       *blackboard.Blackboard
	Paradigms   *paradigm.Registry
	Perception  *perception.Router
	Agent       *agent.Agent
}

// Result is the Result-style outcome a sequence returns, per §9 "error
// returns vs exceptions": the Orchestrator classifies failures uniformly
// from this instead of a language-level exception.
type Result struct {
	// Output is the reference written under Entry.ConceptToInfer, if any
	// (assigning "$=" writes no reference).
	Output *reference.Reference

	// TimingReady/ToBeSkipped are only meaningful for timing sequences;
	// they are the two flags §4.7.3 writes onto the parent.
	TimingReady bool
	ToBeSkipped bool

	// Filter, if non-nil, is the FOR_EACH mask a judgement sequence
	// produced, to be injected onto the blackboard by the Orchestrator
	// when a downstream timing step consumes it.
	Filter []bool

	// LoopContinues is true when a looping sequence has more iterations
	// to run; the Orchestrator keeps the loop inference pending.
	LoopContinues bool
}

// Sequence is the pipeline realizing one inference kind.
type Sequence interface {
	Execute(ctx context.Context, f *Frame) (*Result, error)
}

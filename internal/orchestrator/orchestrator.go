// Package orchestrator implements the cycle-based scheduler (§4.9):
// repeatedly scanning the waitlist in flow-index order, dispatching
// every ready inference through its sequence implementation, applying
// skip propagation, detecting deadlock, and checkpointing progress at
// the end of every cycle.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"normcode.dev/core/common/id"
	"normcode.dev/core/common/logger"
	"normcode.dev/core/internal/agent"
	"normcode.dev/core/internal/blackboard"
	"normcode.dev/core/internal/checkpoint"
	"normcode.dev/core/internal/element"
	"normcode.dev/core/internal/model"
	"normcode.dev/core/internal/paradigm"
	"normcode.dev/core/internal/perception"
	"normcode.dev/core/internal/reference"
	"normcode.dev/core/internal/repo"
	"normcode.dev/core/internal/sequence"
	"normcode.dev/core/internal/sequence/assigning"
	"normcode.dev/core/internal/sequence/grouping"
	"normcode.dev/core/internal/sequence/imperative"
	"normcode.dev/core/internal/sequence/judgement"
	"normcode.dev/core/internal/sequence/looping"
	"normcode.dev/core/internal/sequence/timing"
)

// ErrDeadlock is returned when a cycle makes no progress while pending
// work remains.
var ErrDeadlock = errors.New("deadlock detected: no inference became ready")

// ErrCycleLimitExceeded is returned when MaxCycles is reached with
// pending work remaining.
var ErrCycleLimitExceeded = errors.New("cycle limit exceeded")

// ErrWriteConflict is returned when two ready inferences in the same
// cycle would write the same concept under the same iteration context.
var ErrWriteConflict = errors.New("write conflict: concurrent inferences target the same concept")

// ErrSequenceTimeout is returned when a sequence's pipeline, including
// any external I/O it performs, does not complete within SequenceTimeout.
var ErrSequenceTimeout = errors.New("sequence timeout exceeded")

// defaultSequenceTimeout bounds one inference's whole pipeline,
// including tool/LLM calls, per §5's per-sequence timeout rule.
const defaultSequenceTimeout = 30 * time.Second

// AgentResolver returns the Agent an inference executes under. The
// on-disk plan schema does not name a Subject binding per inference;
// callers that need per-Subject Agents supply a resolver, defaulting to
// a single Agent shared by every inference.
type AgentResolver func(e *model.InferenceEntry) *agent.Agent

var dispatch = map[model.SequenceKind]sequence.Sequence{
	model.SequenceKindAssigning:  assigning.New(),
	model.SequenceKindGrouping:   grouping.New(),
	model.SequenceKindTiming:     timing.New(),
	model.SequenceKindLooping:    looping.New(),
	model.SequenceKindImperative: imperative.New(),
	model.SequenceKindJudgement:  judgement.New(),
}

// Config controls one run's scheduling behavior.
type Config struct {
	RunID           string
	MaxCycles       int
	Store           checkpoint.Store
	ReconcileMode   checkpoint.Mode
	MaxConcurrency  int
	SequenceTimeout time.Duration
}

// Orchestrator drives one plan (ConceptRepo + InferenceRepo pair) to
// completion.
type Orchestrator struct {
	cfg        Config
	concepts   *repo.ConceptRepo
	inferences *repo.InferenceRepo
	board      *blackboard.Blackboard
	paradigms  *paradigm.Registry
	perception *perception.Router
	resolver   AgentResolver
}

// New builds an Orchestrator for one plan. defaultAgent is used for
// every inference unless resolver is non-nil.
func New(cfg Config, concepts *repo.ConceptRepo, inferences *repo.InferenceRepo, board *blackboard.Blackboard, paradigms *paradigm.Registry, router *perception.Router, defaultAgent *agent.Agent, resolver AgentResolver) *Orchestrator {
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = 1000
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.SequenceTimeout <= 0 {
		cfg.SequenceTimeout = defaultSequenceTimeout
	}
	if resolver == nil {
		resolver = func(*model.InferenceEntry) *agent.Agent { return defaultAgent }
	}
	concepts.SetIdentityResolver(board)
	return &Orchestrator{
		cfg:        cfg,
		concepts:   concepts,
		inferences: inferences,
		board:      board,
		paradigms:  paradigms,
		perception: router,
		resolver:   resolver,
	}
}

// Run drives the cycle loop to completion (or to deadlock / cycle
// limit), checkpointing after every cycle if cfg.Store is set.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RunID:     logger.Ptr(o.cfg.RunID),
		Component: "normcode.orchestrator",
	})
	entries := o.inferences.IterateSorted()

	for cycle := 1; cycle <= o.cfg.MaxCycles; cycle++ {
		cycleCtx := logger.WithLogFields(ctx, logger.LogFields{Cycle: logger.Ptr(cycle)})

		if allTerminal(o.board, entries) {
			slog.InfoContext(cycleCtx, "plan complete", "cycle", cycle-1)
			return nil
		}

		ready := o.collectReady(entries)
		if len(ready) == 0 {
			return fmt.Errorf("cycle %d: %w", cycle, ErrDeadlock)
		}
		if err := checkWriteConflicts(ready); err != nil {
			return fmt.Errorf("cycle %d: %w", cycle, err)
		}

		if err := o.dispatchCycle(cycleCtx, ready); err != nil {
			return fmt.Errorf("cycle %d: %w", cycle, err)
		}

		if o.cfg.Store != nil {
			if err := o.saveCheckpoint(cycleCtx, cycle); err != nil {
				slog.WarnContext(cycleCtx, "checkpoint save failed", "error", err)
			}
		}
	}
	return fmt.Errorf("%w: after %d cycles", ErrCycleLimitExceeded, o.cfg.MaxCycles)
}

func allTerminal(board *blackboard.Blackboard, entries []*model.InferenceEntry) bool {
	for _, e := range entries {
		if !board.Status(string(e.FlowIndex)).IsTerminal() {
			return false
		}
	}
	return true
}

// collectReady returns, in flow-index order, every pending entry whose
// dependencies are satisfied per Ready (§4.9).
func (o *Orchestrator) collectReady(entries []*model.InferenceEntry) []*model.InferenceEntry {
	var out []*model.InferenceEntry
	for _, e := range entries {
		if o.board.Status(string(e.FlowIndex)) != model.StatusPending {
			continue
		}
		if o.ready(e) {
			out = append(out, e)
		}
	}
	return out
}

// ready implements §4.9's Ready(entry): supporting children settled,
// function concept settled, value concepts settled (relaxed to "at
// least one" for an assigning "$." specification), independent of
// ordering among siblings.
func (o *Orchestrator) ready(e *model.InferenceEntry) bool {
	for _, child := range e.SupportingChildren {
		if !o.board.Status(string(child)).IsReady() {
			return false
		}
	}

	if e.FunctionConcept != "" && !o.conceptReady(e.FunctionConcept) {
		return false
	}

	if e.SequenceKind == model.SequenceKindAssigning && isSpecification(e) {
		for _, c := range e.ValueConcepts {
			if o.conceptReady(c) {
				return true
			}
		}
		return len(e.ValueConcepts) == 0
	}

	for _, c := range e.ValueConcepts {
		if !o.conceptReady(c) {
			return false
		}
	}
	return true
}

func (o *Orchestrator) conceptReady(name string) bool {
	if o.board.IsConceptReady(name) {
		return true
	}
	return o.concepts.HasReference(name)
}

func isSpecification(e *model.InferenceEntry) bool {
	wi, err := e.Assigning()
	return err == nil && wi.Marker == model.AssigningSpecification
}

// checkWriteConflicts enforces the plan-validity rule (§5) that two
// ready inferences in one cycle may not target the same concept.
func checkWriteConflicts(ready []*model.InferenceEntry) error {
	seen := make(map[string]model.FlowIndex, len(ready))
	for _, e := range ready {
		if prev, ok := seen[e.ConceptToInfer]; ok {
			return fmt.Errorf("%w: %s and %s both produce %q", ErrWriteConflict, prev, e.FlowIndex, e.ConceptToInfer)
		}
		seen[e.ConceptToInfer] = e.FlowIndex
	}
	return nil
}

// dispatchCycle executes every ready entry, in parallel when the
// implementation's effective-serializability guarantee holds: each
// entry only mutates its own ConceptToInfer and reads a consistent
// snapshot of its inputs, so concurrent dispatch is safe once
// checkWriteConflicts has ruled out overlapping writers.
func (o *Orchestrator) dispatchCycle(ctx context.Context, ready []*model.InferenceEntry) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.cfg.MaxConcurrency)

	var (
		mu   sync.Mutex
		errs []error
	)
	addError := func(e *model.InferenceEntry, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, fmt.Errorf("inference %s: %w", e.FlowIndex, err))
	}

	for _, entry := range ready {
		entry := entry
		o.board.SetStatus(string(entry.FlowIndex), model.StatusInProgress)
		eg.Go(func() error {
			if err := o.executeOne(egCtx, entry); err != nil {
				addError(entry, err)
				o.board.SetStatus(string(entry.FlowIndex), model.StatusFailed)
			}
			return nil
		})
	}
	_ = eg.Wait()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// executeOne runs one inference's sequence, applies OR (writing the
// output reference, honoring create_axis_on_list_output), and OWI
// (marking status), plus the sequence-specific side effects: timing
// flags, loop continuation, and FOR_EACH filter injection.
func (o *Orchestrator) executeOne(ctx context.Context, entry *model.InferenceEntry) error {
	impl, ok := dispatch[entry.SequenceKind]
	if !ok {
		return fmt.Errorf("no sequence implementation for kind %q", entry.SequenceKind)
	}

	executionID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		FlowIndex:   logger.Ptr(string(entry.FlowIndex)),
		ConceptName: logger.Ptr(entry.ConceptToInfer),
		ExecutionID: logger.Ptr(executionID),
	})
	slog.DebugContext(ctx, "dispatching inference", "sequence_kind", entry.SequenceKind)

	f := &sequence.Frame{
		Entry:      entry,
		Concepts:   o.concepts,
		Inferences: o.inferences,
		Board:      o.board,
		Paradigms:  o.paradigms,
		Perception: o.perception,
		Agent:      o.resolver(entry),
	}

	execCtx, cancel := context.WithTimeout(ctx, o.cfg.SequenceTimeout)
	defer cancel()

	res, err := impl.Execute(execCtx, f)
	if err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrSequenceTimeout, entry.FlowIndex)
		}
		return err
	}

	switch entry.SequenceKind {
	case model.SequenceKindLooping:
		if res.LoopContinues {
			// looping.Execute already rebound the per-iteration concepts
			// and reset the loop subtree; keep the loop entry itself
			// pending so the next cycle re-enters it.
			o.board.SetStatus(string(entry.FlowIndex), model.StatusPending)
			return nil
		}
		o.board.SetStatus(string(entry.FlowIndex), model.StatusCompleted)
		return nil

	case model.SequenceKindTiming:
		if res.ToBeSkipped {
			o.skipSubtree(entry)
			return nil
		}
		if res.TimingReady {
			o.board.SetStatus(string(entry.FlowIndex), model.StatusCompleted)
			return nil
		}
		o.board.SetStatus(string(entry.FlowIndex), model.StatusPending)
		return nil

	default:
		if res.Output != nil {
			o.writeOutput(entry, res.Output)
		}
		if res.Filter != nil {
			for _, child := range entry.SupportingChildren {
				o.board.InjectFilter(child, res.Filter)
			}
		}
		o.board.SetStatus(entry.ConceptToInfer, model.StatusCompleted)
		o.board.SetStatus(string(entry.FlowIndex), model.StatusCompleted)
		return nil
	}
}

// writeOutput performs OR: if the output is a singleton whose one
// element is a list and create_axis_on_list_output is set (the
// default), the list is exploded onto a new axis named after the
// concept instead of being stored as one opaque list-valued element.
func (o *Orchestrator) writeOutput(entry *model.InferenceEntry, out *reference.Reference) {
	o.concepts.SetReference(entry.ConceptToInfer, explodeListOutput(entry, out))
}

func explodeListOutput(entry *model.InferenceEntry, out *reference.Reference) *reference.Reference {
	if entry.SequenceKind != model.SequenceKindImperative && entry.SequenceKind != model.SequenceKindJudgement {
		return out
	}
	wi, err := entry.Semantic()
	if err != nil || !wi.CreatesAxisOnListOutput() {
		return out
	}
	if len(out.Tensor) != 1 {
		return out
	}
	list, ok := out.Tensor[0].Primitive.(element.List)
	if !ok || len(list) == 0 {
		return out
	}
	exploded, err := reference.New([]string{entry.ConceptToInfer}, []int{len(list)}, list)
	if err != nil {
		return out
	}
	return exploded
}

// skipSubtree marks entry and every inference descending from it (by
// flow-index ancestry) completed_skipped. Each descendant whose concept
// has no reference yet gets a single-element all-skip tensor on the none
// axis; the tensor's shape is not matched to the concept's own axes.
// Siblings outside the subtree are unaffected.
func (o *Orchestrator) skipSubtree(entry *model.InferenceEntry) {
	o.board.SetStatus(string(entry.FlowIndex), model.StatusCompletedSkipped)
	for _, e := range o.inferences.IterateSorted() {
		if !entry.FlowIndex.IsAncestorOf(e.FlowIndex) {
			continue
		}
		o.board.SetStatus(string(e.FlowIndex), model.StatusCompletedSkipped)
		o.board.SetStatus(e.ConceptToInfer, model.StatusCompletedSkipped)
		if !o.concepts.HasReference(e.ConceptToInfer) {
			o.concepts.SetReference(e.ConceptToInfer, reference.NewSkipTensor([]string{reference.NoneAxis}, []int{1}))
		}
	}
}

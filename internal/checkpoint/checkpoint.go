// Package checkpoint implements the durable (run_id, cycle)-keyed
// snapshot table described in §4.10: saving and loading orchestrator
// state, listing runs, forking a new run from a past cycle, and
// reconciling a loaded snapshot against the live in-memory state under
// one of three modes (PATCH, OVERWRITE, FILL_GAPS).
package checkpoint

import (
	"context"
	"errors"

	"normcode.dev/core/internal/blackboard"
	"normcode.dev/core/internal/reference"
)

// ErrReconciliationRefused is returned by Reconcile under OVERWRITE mode
// when the snapshot's recorded environment signature no longer matches
// the live one. The signature is the paradigm registry's Signature; the
// Body's tool set is not part of it.
var ErrReconciliationRefused = errors.New("reconciliation refused: environment signature mismatch")

// ErrRunNotFound is returned when a run_id has no stored snapshots.
var ErrRunNotFound = errors.New("run not found")

// Mode selects how a loaded Snapshot is merged into live state on resume.
type Mode string

const (
	// ModePatch resets only the inferences whose working-interpretation
	// + function-concept hash changed since the snapshot, along with
	// their transitive dependents, keeping everything else as loaded.
	// This is the default resume mode.
	ModePatch Mode = "patch"

	// ModeOverwrite loads the snapshot verbatim, refusing if the
	// environment signature no longer matches.
	ModeOverwrite Mode = "overwrite"

	// ModeFillGaps loads the snapshot only into pending/missing slots;
	// concepts already populated in the live repo keep their live value.
	ModeFillGaps Mode = "fill_gaps"
)

// InferenceFingerprint is the per-inference hash recorded at snapshot
// time, used by PATCH to detect which inferences changed since.
type InferenceFingerprint struct {
	FlowIndex string `json:"flow_index"`
	Hash      string `json:"hash"`
}

// Snapshot is the full durable state of one orchestrator cycle: every
// concept reference, the blackboard, and the per-inference fingerprint
// table PATCH reconciliation needs.
type Snapshot struct {
	RunID        string                           `json:"run_id"`
	Cycle        int                              `json:"cycle"`
	ConceptRefs  map[string]*reference.Reference  `json:"concept_refs"`
	Blackboard   blackboard.Snapshot              `json:"blackboard"`
	Fingerprints []InferenceFingerprint           `json:"fingerprints"`
}

// RunInfo is the metadata list_runs surfaces.
type RunInfo struct {
	RunID             string `json:"run_id"`
	ParentRunID       string `json:"parent_run_id,omitempty"`
	ParentCycle       int    `json:"parent_cycle,omitempty"`
	CreatedAtUnix     int64  `json:"created_at_unix"`
	EnvironmentSig    string `json:"environment_signature"`
	LatestCycle       int    `json:"latest_cycle"`
}

// Store is the durable backing for checkpoints. Implementations:
// memory (tests, single-process runs) and postgres (production).
type Store interface {
	// SaveSnapshot persists snap under (snap.RunID, snap.Cycle),
	// recording environmentSignature for later OVERWRITE comparisons.
	SaveSnapshot(ctx context.Context, snap Snapshot, environmentSignature string) error

	// LoadSnapshot returns the snapshot at exactly (runID, cycle).
	LoadSnapshot(ctx context.Context, runID string, cycle int) (*Snapshot, error)

	// LatestSnapshot returns the highest-cycle snapshot recorded for runID.
	LatestSnapshot(ctx context.Context, runID string) (*Snapshot, error)

	// ListRuns returns every known run's metadata.
	ListRuns(ctx context.Context) ([]RunInfo, error)

	// Fork creates newRunID as a child of (sourceRunID, sourceCycle),
	// copying that cycle's snapshot forward as newRunID's cycle 0.
	Fork(ctx context.Context, sourceRunID string, sourceCycle int, newRunID string) error

	// EnvironmentSignature returns the signature recorded when runID's
	// latest snapshot was saved, for OVERWRITE's mismatch check.
	EnvironmentSignature(ctx context.Context, runID string) (string, error)
}

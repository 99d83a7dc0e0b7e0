package checkpoint

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type runRecord struct {
	info      RunInfo
	snapshots map[int]Snapshot
}

// MemoryStore is an in-process Store, used by tests and single-process
// runs that do not need state to survive the process.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]*runRecord
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*runRecord)}
}

func (m *MemoryStore) SaveSnapshot(_ context.Context, snap Snapshot, environmentSignature string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rr, ok := m.runs[snap.RunID]
	if !ok {
		rr = &runRecord{
			info:      RunInfo{RunID: snap.RunID, CreatedAtUnix: time.Now().Unix()},
			snapshots: make(map[int]Snapshot),
		}
		m.runs[snap.RunID] = rr
	}
	rr.snapshots[snap.Cycle] = snap
	rr.info.EnvironmentSig = environmentSignature
	if snap.Cycle > rr.info.LatestCycle {
		rr.info.LatestCycle = snap.Cycle
	}
	return nil
}

func (m *MemoryStore) LoadSnapshot(_ context.Context, runID string, cycle int) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rr, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %q: %w", runID, ErrRunNotFound)
	}
	snap, ok := rr.snapshots[cycle]
	if !ok {
		return nil, fmt.Errorf("run %q cycle %d: %w", runID, cycle, ErrRunNotFound)
	}
	return &snap, nil
}

func (m *MemoryStore) LatestSnapshot(ctx context.Context, runID string) (*Snapshot, error) {
	m.mu.Lock()
	rr, ok := m.runs[runID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("run %q: %w", runID, ErrRunNotFound)
	}
	latest := rr.info.LatestCycle
	m.mu.Unlock()
	return m.LoadSnapshot(ctx, runID, latest)
}

func (m *MemoryStore) ListRuns(_ context.Context) ([]RunInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RunInfo, 0, len(m.runs))
	for _, rr := range m.runs {
		out = append(out, rr.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAtUnix < out[j].CreatedAtUnix })
	return out, nil
}

func (m *MemoryStore) Fork(_ context.Context, sourceRunID string, sourceCycle int, newRunID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.runs[sourceRunID]
	if !ok {
		return fmt.Errorf("source run %q: %w", sourceRunID, ErrRunNotFound)
	}
	snap, ok := src.snapshots[sourceCycle]
	if !ok {
		return fmt.Errorf("source run %q cycle %d: %w", sourceRunID, sourceCycle, ErrRunNotFound)
	}

	forked := snap
	forked.RunID = newRunID
	forked.Cycle = 0

	m.runs[newRunID] = &runRecord{
		info: RunInfo{
			RunID:          newRunID,
			ParentRunID:    sourceRunID,
			ParentCycle:    sourceCycle,
			CreatedAtUnix:  time.Now().Unix(),
			EnvironmentSig: src.info.EnvironmentSig,
			LatestCycle:    0,
		},
		snapshots: map[int]Snapshot{0: forked},
	}
	return nil
}

func (m *MemoryStore) EnvironmentSignature(_ context.Context, runID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rr, ok := m.runs[runID]
	if !ok {
		return "", fmt.Errorf("run %q: %w", runID, ErrRunNotFound)
	}
	return rr.info.EnvironmentSig, nil
}

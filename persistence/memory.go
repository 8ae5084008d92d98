package persistence

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/luoxifan/agentgraph/flow"
)

// MemoryStore keeps snapshots in process memory. Snapshots are stored as
// JSON so load always returns an independent copy.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string][]byte)}
}

func (s *MemoryStore) Save(ctx context.Context, snap *flow.Snapshot) error {
	if snap == nil || snap.RunID == "" {
		return errInvalidSnapshot()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.RunID] = data
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, runID string) (*flow.Snapshot, error) {
	s.mu.RLock()
	data, ok := s.snaps[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, errSnapshotNotFound(runID)
	}
	var snap flow.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *MemoryStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, runID)
	return nil
}

func (s *MemoryStore) ListRuns(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]string, 0, len(s.snaps))
	for id := range s.snaps {
		runs = append(runs, id)
	}
	sort.Strings(runs)
	return runs, nil
}

func (s *MemoryStore) Close() error { return nil }

// Package persistence provides snapshot stores for flow run state: an
// in-memory store for tests and single-process use, a Redis store for
// distributed deployments, and a SQLite store for durable local history.
package persistence

import (
	"context"

	"github.com/luoxifan/agentgraph/flow"
	"github.com/luoxifan/agentgraph/types"
)

// SnapshotStore persists and retrieves flow run snapshots keyed by run ID.
type SnapshotStore interface {
	// Save persists a snapshot, overwriting any previous snapshot of the
	// same run.
	Save(ctx context.Context, snap *flow.Snapshot) error
	// Load retrieves the snapshot for a run ID. Returns an error with code
	// types.ErrSnapshotNotFound when the run is unknown.
	Load(ctx context.Context, runID string) (*flow.Snapshot, error)
	// Delete removes a run's snapshot. Deleting an unknown run is not an
	// error.
	Delete(ctx context.Context, runID string) error
	// ListRuns returns the stored run IDs.
	ListRuns(ctx context.Context) ([]string, error)
	// Close releases the store's resources.
	Close() error
}

func errSnapshotNotFound(runID string) error {
	return types.NewError(types.ErrSnapshotNotFound, "no snapshot for run "+runID)
}

func errInvalidSnapshot() error {
	return types.NewError(types.ErrInvalidRequest, "nil snapshot or empty run id")
}

package ingest

import (
	"context"
	"time"
)

// RunStatus is the terminal status of a connector run.
type RunStatus string

const (
	RunStatusCommitted       RunStatus = "COMMITTED"
	RunStatusPartiallyFailed RunStatus = "PARTIALLY_FAILED"
	RunStatusFailed          RunStatus = "FAILED"
)

// Checkpoint is the durable cursor of one connector. It is passed
// explicitly into Fetch and written back by the orchestrator after the
// run completes; no connector holds implicit "last sync" state.
type Checkpoint struct {
	Connector Source
	// LastSyncedAt is the upper bound of the last fully processed
	// window. Zero means the connector has never synced.
	LastSyncedAt time.Time
	// Cursor is an opaque source token for feeds that resume by token
	// rather than by time. Empty for the current connectors.
	Cursor        string
	LastRunStatus RunStatus
	UpdatedAt     time.Time
}

// WindowFrom returns the lower bound of the next fetch window: the
// checkpoint minus a fixed overlap margin, so late-visible records and
// clock skew are re-requested. Idempotent upsert makes overlap safe.
// A never-synced checkpoint falls back to the lookback horizon.
func (c Checkpoint) WindowFrom(overlap, lookback time.Duration, now time.Time) time.Time {
	if c.LastSyncedAt.IsZero() {
		return now.Add(-lookback)
	}
	return c.LastSyncedAt.Add(-overlap)
}

// CheckpointStore persists one checkpoint per connector.
type CheckpointStore interface {
	// Get returns the connector's checkpoint, a zero-valued checkpoint
	// when the connector has never run.
	Get(ctx context.Context, connector Source) (Checkpoint, error)
	// Save overwrites the connector's checkpoint.
	Save(ctx context.Context, checkpoint Checkpoint) error
}

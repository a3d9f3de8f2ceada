package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FailureStage names the pipeline step a payload failed at.
type FailureStage string

const (
	FailureStageParse   FailureStage = "PARSE"
	FailureStageProject FailureStage = "PROJECT"
)

// IngestFailure records one payload the pipeline could not process.
// The payload itself stays untouched in the raw store; the failure row
// is what the next scheduled run replays (reprocessed from storage,
// never re-fetched from the API).
type IngestFailure struct {
	ID         uuid.UUID
	PayloadID  uuid.UUID
	Connector  Source
	Stage      FailureStage
	Reason     string
	RecordedAt time.Time
	ResolvedAt *time.Time
}

// NewIngestFailure records a failure for the given payload.
func NewIngestFailure(payloadID uuid.UUID, connector Source, stage FailureStage, reason string) IngestFailure {
	return IngestFailure{
		ID:         uuid.New(),
		PayloadID:  payloadID,
		Connector:  connector,
		Stage:      stage,
		Reason:     reason,
		RecordedAt: time.Now().UTC(),
	}
}

// IngestFailureStore persists per-item failures.
type IngestFailureStore interface {
	// Record stores a failure; recording the same payload twice keeps
	// a single unresolved row with the latest reason.
	Record(ctx context.Context, failure IngestFailure) error
	// Unresolved lists open failures for a connector, oldest first.
	Unresolved(ctx context.Context, connector Source, limit int) ([]IngestFailure, error)
	// Resolve closes every open failure for the given payload.
	Resolve(ctx context.Context, payloadID uuid.UUID) error
}

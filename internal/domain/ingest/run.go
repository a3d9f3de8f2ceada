package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunState is the orchestrator state machine position of one run.
type RunState string

const (
	RunStateIdle       RunState = "IDLE"
	RunStateFetching   RunState = "FETCHING"
	RunStateParsing    RunState = "PARSING"
	RunStateProjecting RunState = "PROJECTING"
	RunStateUpserting  RunState = "UPSERTING"
	RunStateCommitted  RunState = "COMMITTED"
	RunStateFailed     RunState = "FAILED"
	RunStatePartial    RunState = "PARTIALLY_FAILED"
)

// RunCounts are the per-run item counters published with the outcome.
type RunCounts struct {
	Fetched   int
	Parsed    int
	Projected int
	Upserted  int
	Failed    int
}

// SyncRunOutcome is the record of one connector run, handed to the
// operational surface once the run reaches a terminal state.
type SyncRunOutcome struct {
	ID         uuid.UUID
	Connector  Source
	State      RunState
	WindowFrom time.Time
	WindowTo   time.Time
	Counts     RunCounts
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Terminal reports whether the run reached a final state.
func (o SyncRunOutcome) Terminal() bool {
	switch o.State {
	case RunStateCommitted, RunStateFailed, RunStatePartial:
		return true
	default:
		return false
	}
}

// SyncRunStore persists run outcomes for operational consumers.
type SyncRunStore interface {
	Save(ctx context.Context, outcome SyncRunOutcome) error
	// Recent lists the newest outcomes, optionally for one connector.
	Recent(ctx context.Context, connector *Source, limit int) ([]SyncRunOutcome, error)
}

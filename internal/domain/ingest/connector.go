package ingest

import (
	"context"
)

// FetchResult is everything one connector run produced: the raw
// payloads of every page, the count of records the connector had to
// skip, and the checkpoint value that should become durable once the
// window is fully processed.
type FetchResult struct {
	Payloads []RawPayload
	// Skipped counts records dropped because they carry no business
	// key; without one they cannot enter the raw store.
	Skipped int
	Next    Checkpoint
}

// Connector pulls one external feed. Implementations follow the
// source's own pagination contract (offset/limit, date window, flag
// cursor) until exhausted or the page safety limit is hit, and return
// every page's records as raw payloads. Connectors perform no
// persistence; that keeps them testable against recorded fixtures.
//
// Network and 5xx failures fail the whole call with a *TransientError
// so the orchestrator retries with backoff. A malformed record inside
// an otherwise valid page never aborts the page: records with a
// business key are returned as-is (the parser decides), keyless
// fragments are skipped and counted in FetchResult.Skipped.
//
// When the page safety limit truncates the window, Next must not
// claim the full window as synced; it advances at most to the change
// time of the last fetched record so the remainder is picked up by
// the following run.
type Connector interface {
	// Name returns the source this connector serves.
	Name() Source
	// Fetch pulls the window implied by the checkpoint.
	Fetch(ctx context.Context, checkpoint Checkpoint) (FetchResult, error)
}

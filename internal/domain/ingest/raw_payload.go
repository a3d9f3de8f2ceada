package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RawPayload is the immutable record of one API response for one
// business object. It is created by a connector, persisted by the
// orchestrator and never mutated afterwards: the raw store is the
// audit and replay trail for the whole pipeline.
type RawPayload struct {
	ID           uuid.UUID
	Source       Source
	DocumentType DocumentType
	// BusinessKey is the source-native identifier of the business
	// object (posting number, srid, order id).
	BusinessKey string
	FetchedAt   time.Time
	// Body is the response fragment exactly as received.
	Body []byte
}

// NewRawPayload creates a raw payload record for a fetched response fragment.
func NewRawPayload(source Source, businessKey string, fetchedAt time.Time, body []byte) RawPayload {
	return RawPayload{
		ID:           uuid.New(),
		Source:       source,
		DocumentType: source.DocumentType(),
		BusinessKey:  businessKey,
		FetchedAt:    fetchedAt,
		Body:         body,
	}
}

// RawPayloadStore persists raw payloads append-only.
type RawPayloadStore interface {
	// Append stores payloads and returns the document version assigned
	// to each payload's business key. The version is monotonic per
	// (source, document_type, business_key): an identical body keeps
	// the current version, a changed body increments it.
	Append(ctx context.Context, payloads []RawPayload) (versions map[uuid.UUID]int, err error)

	// Get returns one payload by id.
	Get(ctx context.Context, id uuid.UUID) (*RawPayload, error)

	// LatestVersion returns the current document version for a
	// business key, 0 when the key has never been seen.
	LatestVersion(ctx context.Context, source Source, businessKey string) (int, error)
}

// RawPayloadArchiver offloads payload bodies to long-term storage.
// Archival is best-effort and never blocks the pipeline.
type RawPayloadArchiver interface {
	Archive(ctx context.Context, payload RawPayload) error
}

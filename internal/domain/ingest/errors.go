package ingest

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrConnectorBusy is returned when a run is requested while the
// previous run for the same connector is still in flight.
var ErrConnectorBusy = errors.New("connector run already in flight")

// ErrUnknownSource is returned for a source outside the closed set.
var ErrUnknownSource = errors.New("unknown source")

// TransientError wraps a fetch failure the orchestrator may retry:
// network errors, 5xx responses, rate limiting.
type TransientError struct {
	Connector Source
	Err       error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient fetch error: %v", e.Connector, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as retryable for the given connector.
func NewTransientError(connector Source, err error) *TransientError {
	return &TransientError{Connector: connector, Err: err}
}

// IsTransient reports whether err is retryable at the run level.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ParseError is a per-item failure: one raw payload failed
// required-field validation. It carries the payload reference so the
// record stays inspectable and replayable from the raw store.
type ParseError struct {
	PayloadID   uuid.UUID
	Source      Source
	BusinessKey string
	Reason      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: payload %s (%s): %s", e.Source, e.PayloadID, e.BusinessKey, e.Reason)
}

// NewParseError creates a parse error for the given payload.
func NewParseError(p RawPayload, reason string) *ParseError {
	return &ParseError{PayloadID: p.ID, Source: p.Source, BusinessKey: p.BusinessKey, Reason: reason}
}

// ProjectionError is a per-item failure: a parsed document is missing
// a field required to compute the register natural key. Handled the
// same way as a parse error.
type ProjectionError struct {
	SourceRef   uuid.UUID
	Source      Source
	BusinessKey string
	Reason      string
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("%s: document %s: %s", e.Source, e.BusinessKey, e.Reason)
}

package register

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mpoffice/backend/internal/domain/ingest"
	"github.com/mpoffice/backend/internal/domain/register"
	"github.com/mpoffice/backend/internal/domain/shared"
)

// QueryService is the read-only surface over the sales register and
// run history. It validates filters and never mutates anything.
type QueryService struct {
	store  register.Store
	runs   ingest.SyncRunStore
	logger *zap.Logger
}

// NewQueryService creates the register query service.
func NewQueryService(store register.Store, runs ingest.SyncRunStore, logger *zap.Logger) *QueryService {
	return &QueryService{store: store, runs: runs, logger: logger}
}

// EntryPage is one page of register rows with the total match count.
type EntryPage struct {
	Entries []register.Entry
	Total   int64
	Page    int
	Size    int
}

// List returns the register page matching the filter.
func (s *QueryService) List(ctx context.Context, filter register.QueryFilter) (EntryPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 1000 {
		filter.PageSize = 100
	}
	if !filter.DateFrom.IsZero() && !filter.DateTo.IsZero() && filter.DateTo.Before(filter.DateFrom) {
		return EntryPage{}, shared.NewDomainError("INVALID_INPUT", "date_to is before date_from")
	}

	entries, total, err := s.store.Query(ctx, filter)
	if err != nil {
		return EntryPage{}, err
	}
	return EntryPage{Entries: entries, Total: total, Page: filter.Page, Size: filter.PageSize}, nil
}

// Summarize aggregates delivered lines by day and marketplace.
func (s *QueryService) Summarize(ctx context.Context, from, to time.Time, marketplace *ingest.Marketplace) ([]register.SummaryRow, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, shared.NewDomainError("INVALID_INPUT", "date_to is before date_from")
	}
	return s.store.Summary(ctx, from, to, marketplace)
}

// Entry returns the current row for a natural key, nil when absent.
func (s *QueryService) Entry(ctx context.Context, key register.NaturalKey) (*register.Entry, error) {
	return s.store.Get(ctx, key)
}

// RecentRuns lists the newest run outcomes, optionally per connector.
func (s *QueryService) RecentRuns(ctx context.Context, connector *ingest.Source, limit int) ([]ingest.SyncRunOutcome, error) {
	return s.runs.Recent(ctx, connector, limit)
}

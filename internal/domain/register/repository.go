package register

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpoffice/backend/internal/domain/ingest"
)

// QueryFilter selects register rows for the read-only query surface.
type QueryFilter struct {
	DateFrom    time.Time
	DateTo      time.Time
	Marketplace *ingest.Marketplace
	StatusNorm  string
	SellerSKU   string
	SortBy      string
	SortOrder   string
	Page        int
	PageSize    int
}

// SummaryRow is a per-marketplace, per-day aggregate for reporting
// collaborators.
type SummaryRow struct {
	SaleDate    time.Time
	Marketplace ingest.Marketplace
	Lines       int64
	Qty         decimal.Decimal
	AmountTotal decimal.Decimal
}

// Store is the idempotent upsert target and query surface of the
// pipeline. Upsert applies the batch atomically: readers never observe
// a half-written batch. For the same natural key the row with the
// highest document_version wins regardless of arrival order; a win is
// always a whole-row replace, never a field-level merge.
type Store interface {
	Upsert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, filter QueryFilter) ([]Entry, int64, error)
	// Summary aggregates delivered lines by day and marketplace.
	Summary(ctx context.Context, from, to time.Time, marketplace *ingest.Marketplace) ([]SummaryRow, error)
	// Get returns the current row for a natural key, nil when absent.
	Get(ctx context.Context, key NaturalKey) (*Entry, error)
}

// Package ingest contains the application services of the sales
// ingestion pipeline: pure per-source payload parsers and the sync
// orchestrator that drives connectors, stores and the projection.
package ingest

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpoffice/backend/internal/domain/ingest"
)

// ParseDocument turns one raw payload into its typed document. It is
// pure and deterministic: no I/O, same payload in, same document out.
// A payload failing required-field validation yields a *ParseError
// carrying the payload reference; the caller treats that as a per-item
// failure, never a batch abort.
func ParseDocument(p ingest.RawPayload) (ingest.Document, error) {
	switch p.Source {
	case ingest.SourceOzonFBS:
		return ParseOzonPosting(p, ingest.OzonSchemeFBS)
	case ingest.SourceOzonFBO:
		return ParseOzonPosting(p, ingest.OzonSchemeFBO)
	case ingest.SourceWBSales:
		return ParseWbSaleEvent(p)
	case ingest.SourceYMOrders:
		return ParseYmOrder(p)
	default:
		return nil, ingest.ErrUnknownSource
	}
}

// docMeta builds the provenance block for a parsed document. The
// version is filled in by the orchestrator after the raw store has
// assigned it; parsers leave it at the payload's face value.
func docMeta(p ingest.RawPayload) ingest.DocumentMeta {
	return ingest.DocumentMeta{SourceRef: p.ID, FetchedAt: p.FetchedAt}
}

// extraFields returns every top-level payload field the typed struct
// does not model, so projection changes never require a re-fetch.
func extraFields(body []byte, modeled ...string) map[string]any {
	var all map[string]any
	if err := json.Unmarshal(body, &all); err != nil {
		return nil
	}
	for _, k := range modeled {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil
	}
	return all
}

// nullDec converts an optional wire value into a NullDecimal.
func nullDec(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

// sourceTimeFormats are the timestamp layouts the feeds are known to
// emit besides RFC3339.
var sourceTimeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02-01-2006 15:04:05",
	"2006-01-02",
	"02-01-2006",
}

// parseSourceTime parses a feed timestamp, trying each known layout.
// Returns nil for empty or unparseable input.
func parseSourceTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range sourceTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// Package register defines the marketplace-agnostic sales register:
// one row per sold line item, keyed by (marketplace, document_no,
// line_id), idempotently replaceable by document version.
package register

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mpoffice/backend/internal/domain/ingest"
)

// Normalized status vocabulary. status_source keeps the raw value;
// status_norm is what analytics filter on.
const (
	StatusDelivered  = "DELIVERED"
	StatusCancelled  = "CANCELLED"
	StatusReturned   = "RETURNED"
	StatusProcessing = "PROCESSING"
	StatusInDelivery = "IN_DELIVERY"
	StatusUnknown    = "UNKNOWN"
)

// NaturalKey uniquely identifies a register row. It is derived
// deterministically from the source document alone; no cross-document
// join is ever needed to compute it.
type NaturalKey struct {
	Marketplace ingest.Marketplace
	DocumentNo  string
	LineID      string
}

// String renders the key for logging.
func (k NaturalKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Marketplace, k.DocumentNo, k.LineID)
}

// Entry is one denormalized sales register row. Money and quantity
// values are stored exactly as the source reports them; nothing here
// converts currencies or computes derived totals.
type Entry struct {
	// Natural key
	Marketplace ingest.Marketplace
	DocumentNo  string
	LineID      string

	// Provenance
	Scheme          string
	DocumentType    ingest.DocumentType
	DocumentVersion int
	SourceRef       uuid.UUID

	// Timestamps and status
	EventTimeSource time.Time
	SaleDate        time.Time
	SourceUpdatedAt *time.Time
	StatusSource    string
	StatusNorm      string

	// Product identity
	MpItemID  string
	SellerSKU string
	Barcode   string
	Title     string

	// Quantity and money, verbatim
	Qty            decimal.Decimal
	PriceList      decimal.NullDecimal
	DiscountTotal  decimal.NullDecimal
	PriceEffective decimal.NullDecimal
	AmountLine     decimal.NullDecimal
	CurrencyCode   string

	LoadedAtUTC time.Time
}

// Key returns the entry's natural key.
func (e Entry) Key() NaturalKey {
	return NaturalKey{Marketplace: e.Marketplace, DocumentNo: e.DocumentNo, LineID: e.LineID}
}

package ingest

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentMeta carries provenance shared by every document variant.
type DocumentMeta struct {
	// SourceRef points at the raw payload this document was parsed from.
	SourceRef uuid.UUID
	FetchedAt time.Time
	// Version is monotonic per business key; assigned by the raw store
	// when the payload is appended.
	Version int
}

// Document is the closed set of parsed per-source representations.
// Documents are immutable value objects recreated on every parse; a
// new version supersedes the old one through re-projection, never
// through in-place update.
type Document interface {
	// BusinessKey returns the source-native document identity.
	BusinessKey() string
	// Source returns the feed the document came from.
	Source() Source
	// Meta returns the document's provenance.
	Meta() DocumentMeta
}

// OzonScheme distinguishes the two Ozon fulfillment schemes.
type OzonScheme string

const (
	OzonSchemeFBS OzonScheme = "FBS"
	OzonSchemeFBO OzonScheme = "FBO"
)

// OzonPostingLine is one sold item line inside a posting.
type OzonPostingLine struct {
	// LineID is deterministic: "<posting_number>_<position>", stable
	// across re-fetches of the same posting.
	LineID         string
	ProductID      string
	OfferID        string
	Name           string
	Qty            decimal.Decimal
	PriceList      decimal.NullDecimal
	DiscountTotal  decimal.NullDecimal
	PriceEffective decimal.NullDecimal
	AmountLine     decimal.NullDecimal
	CurrencyCode   string
}

// OzonPosting is a parsed Ozon FBS or FBO posting.
type OzonPosting struct {
	PostingNumber   string
	Scheme          OzonScheme
	StatusRaw       string
	SubstatusRaw    string
	StatusNorm      string
	CreatedAt       *time.Time
	DeliveredAt     *time.Time
	UpdatedAtSource *time.Time
	Lines           []OzonPostingLine
	// Extra preserves payload fields the parser does not model, so a
	// projection change never requires a re-fetch.
	Extra map[string]any

	DocMeta DocumentMeta
}

func (d OzonPosting) BusinessKey() string { return d.PostingNumber }
func (d OzonPosting) Meta() DocumentMeta  { return d.DocMeta }
func (d OzonPosting) Source() Source {
	if d.Scheme == OzonSchemeFBO {
		return SourceOzonFBO
	}
	return SourceOzonFBS
}

// WbEventType marks a WB statistics row as a sale or a return.
type WbEventType string

const (
	WbEventSale   WbEventType = "sale"
	WbEventReturn WbEventType = "return"
)

// WbSaleEvent is one Wildberries statistics row. WB emits one row per
// sold unit-line, so SRID is both the document and the line identity.
type WbSaleEvent struct {
	SRID            string
	SaleID          string
	EventType       WbEventType
	StatusNorm      string
	SaleDt          time.Time
	LastChangeDt    *time.Time
	SupplierArticle string
	NmID            int64
	Barcode         string
	Brand           string
	Qty             decimal.Decimal
	PriceList       decimal.NullDecimal
	DiscountTotal   decimal.NullDecimal
	PriceEffective  decimal.NullDecimal
	AmountLine      decimal.NullDecimal
	CurrencyCode    string
	WarehouseName   string
	Extra           map[string]any

	DocMeta DocumentMeta
}

func (d WbSaleEvent) BusinessKey() string { return d.SRID }
func (d WbSaleEvent) Source() Source      { return SourceWBSales }
func (d WbSaleEvent) Meta() DocumentMeta  { return d.DocMeta }

// YmOrderLine is one item line of a Yandex Market order.
type YmOrderLine struct {
	// LineID is the YM item id, unique within the order.
	LineID         string
	ShopSKU        string
	OfferID        string
	Name           string
	StatusRaw      string
	Qty            decimal.Decimal
	PriceList      decimal.NullDecimal
	DiscountTotal  decimal.NullDecimal
	PriceEffective decimal.NullDecimal
	AmountLine     decimal.NullDecimal
	CurrencyCode   string
}

// YmOrder is a parsed Yandex Market order.
type YmOrder struct {
	OrderID         string
	StatusRaw       string
	SubstatusRaw    string
	StatusNorm      string
	CreatedAt       *time.Time
	StatusChangedAt *time.Time
	DeliveredAt     *time.Time
	Lines           []YmOrderLine
	Extra           map[string]any

	DocMeta DocumentMeta
}

func (d YmOrder) BusinessKey() string { return d.OrderID }
func (d YmOrder) Source() Source      { return SourceYMOrders }
func (d YmOrder) Meta() DocumentMeta  { return d.DocMeta }

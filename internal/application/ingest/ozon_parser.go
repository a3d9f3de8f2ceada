package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mpoffice/backend/internal/domain/ingest"
)

// ozonPostingPayload is one posting as the Ozon posting list APIs
// return it. Price comes as a string, quantity as an integer.
type ozonPostingPayload struct {
	PostingNumber  string             `json:"posting_number"`
	Status         string             `json:"status"`
	Substatus      string             `json:"substatus"`
	CreatedAt      string             `json:"created_at"`
	InProcessAt    string             `json:"in_process_at"`
	DeliveringDate string             `json:"delivering_date"`
	DeliveredAt    string             `json:"delivered_at"`
	Products       []ozonProductEntry `json:"products"`
}

type ozonProductEntry struct {
	ProductID    int64            `json:"product_id"`
	OfferID      string           `json:"offer_id"`
	Name         string           `json:"name"`
	Quantity     int              `json:"quantity"`
	Price        *decimal.Decimal `json:"price"`
	CurrencyCode string           `json:"currency_code"`
}

// NormalizeOzonStatus maps a raw Ozon posting status onto the register
// vocabulary. Unrecognized statuses pass through uppercased so nothing
// is silently collapsed into UNKNOWN.
func NormalizeOzonStatus(status string) string {
	switch strings.ToUpper(status) {
	case "DELIVERED":
		return "DELIVERED"
	case "CANCELLED", "CANCELLED_FROM_SPLIT", "CANCELED":
		return "CANCELLED"
	case "DELIVERING", "DRIVER_PICKUP":
		return "IN_DELIVERY"
	case "":
		return "UNKNOWN"
	default:
		return strings.ToUpper(status)
	}
}

// ParseOzonPosting parses one Ozon FBS/FBO posting payload.
func ParseOzonPosting(p ingest.RawPayload, scheme ingest.OzonScheme) (ingest.Document, error) {
	var wire ozonPostingPayload
	if err := json.Unmarshal(p.Body, &wire); err != nil {
		return nil, ingest.NewParseError(p, fmt.Sprintf("invalid JSON: %v", err))
	}
	if wire.PostingNumber == "" {
		return nil, ingest.NewParseError(p, "posting_number is required")
	}

	lines := make([]ingest.OzonPostingLine, 0, len(wire.Products))
	for idx, product := range wire.Products {
		if product.OfferID == "" && product.ProductID == 0 {
			return nil, ingest.NewParseError(p, fmt.Sprintf("product %d has neither product_id nor offer_id", idx+1))
		}

		productID := product.OfferID
		if product.ProductID != 0 {
			productID = strconv.FormatInt(product.ProductID, 10)
		}

		qty := decimal.NewFromInt(int64(product.Quantity))
		var amount *decimal.Decimal
		if product.Price != nil {
			a := product.Price.Mul(qty)
			amount = &a
		}

		lines = append(lines, ingest.OzonPostingLine{
			LineID:         fmt.Sprintf("%s_%d", wire.PostingNumber, idx+1),
			ProductID:      productID,
			OfferID:        product.OfferID,
			Name:           product.Name,
			Qty:            qty,
			PriceList:      nullDec(product.Price),
			PriceEffective: nullDec(product.Price),
			AmountLine:     nullDec(amount),
			CurrencyCode:   product.CurrencyCode,
		})
	}

	delivered := parseSourceTime(wire.DeliveredAt)
	if delivered == nil {
		delivered = parseSourceTime(wire.DeliveringDate)
	}

	return ingest.OzonPosting{
		PostingNumber: wire.PostingNumber,
		Scheme:        scheme,
		StatusRaw:     wire.Status,
		SubstatusRaw:  wire.Substatus,
		StatusNorm:    NormalizeOzonStatus(wire.Status),
		CreatedAt:     parseSourceTime(wire.CreatedAt),
		DeliveredAt:   delivered,
		Lines:         lines,
		Extra: extraFields(p.Body,
			"posting_number", "status", "substatus", "created_at",
			"in_process_at", "delivering_date", "delivered_at", "products"),
		DocMeta: docMeta(p),
	}, nil
}

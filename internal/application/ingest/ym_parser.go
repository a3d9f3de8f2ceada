package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpoffice/backend/internal/domain/ingest"
)

// ymOrderPayload is one order from the YM campaign orders API.
type ymOrderPayload struct {
	ID               int64            `json:"id"`
	Status           string           `json:"status"`
	Substatus        string           `json:"substatus"`
	CreationDate     string           `json:"creationDate"`
	StatusUpdateDate string           `json:"statusUpdateDate"`
	Currency         string           `json:"currency"`
	Items            []ymOrderItem    `json:"items"`
	Delivery         *ymOrderDelivery `json:"delivery"`
}

type ymOrderItem struct {
	ID      int64            `json:"id"`
	OfferID string           `json:"offerId"`
	ShopSKU string           `json:"shopSku"`
	Name    string           `json:"name"`
	Status  string           `json:"status"`
	Count   int              `json:"count"`
	Price   *decimal.Decimal `json:"price"`
	Subsidy *decimal.Decimal `json:"subsidy"`
}

type ymOrderDelivery struct {
	Dates *ymDeliveryDates `json:"dates"`
}

type ymDeliveryDates struct {
	RealDeliveryDate string `json:"realDeliveryDate"`
}

// NormalizeYmStatus maps a raw YM order status onto the register
// vocabulary.
func NormalizeYmStatus(status string) string {
	switch strings.ToUpper(status) {
	case "DELIVERED", "PICKUP":
		return "DELIVERED"
	case "CANCELLED", "CANCELLED_IN_DELIVERY", "CANCELLED_BEFORE_PROCESSING":
		return "CANCELLED"
	case "PROCESSING", "PENDING", "RESERVATION":
		return "PROCESSING"
	case "DELIVERY":
		return "IN_DELIVERY"
	case "":
		return "UNKNOWN"
	default:
		return strings.ToUpper(status)
	}
}

// ParseYmOrder parses one Yandex Market order payload.
func ParseYmOrder(p ingest.RawPayload) (ingest.Document, error) {
	var wire ymOrderPayload
	if err := json.Unmarshal(p.Body, &wire); err != nil {
		return nil, ingest.NewParseError(p, fmt.Sprintf("invalid JSON: %v", err))
	}
	if wire.ID == 0 {
		return nil, ingest.NewParseError(p, "order id is required")
	}

	lines := make([]ingest.YmOrderLine, 0, len(wire.Items))
	for _, item := range wire.Items {
		if item.ID == 0 {
			return nil, ingest.NewParseError(p, "order item id is required")
		}

		qty := decimal.NewFromInt(int64(item.Count))

		// price - subsidy is what the buyer effectively paid the
		// seller for one unit; both components are kept verbatim.
		var effective, amount *decimal.Decimal
		if item.Price != nil {
			e := *item.Price
			if item.Subsidy != nil {
				e = e.Sub(*item.Subsidy)
			}
			effective = &e
			a := item.Price.Mul(qty)
			amount = &a
		}

		lines = append(lines, ingest.YmOrderLine{
			LineID:         strconv.FormatInt(item.ID, 10),
			ShopSKU:        item.ShopSKU,
			OfferID:        item.OfferID,
			Name:           item.Name,
			StatusRaw:      item.Status,
			Qty:            qty,
			PriceList:      nullDec(item.Price),
			DiscountTotal:  nullDec(item.Subsidy),
			PriceEffective: nullDec(effective),
			AmountLine:     nullDec(amount),
			CurrencyCode:   wire.Currency,
		})
	}

	var delivered *time.Time
	if wire.Delivery != nil && wire.Delivery.Dates != nil {
		delivered = parseSourceTime(wire.Delivery.Dates.RealDeliveryDate)
	}

	return ingest.YmOrder{
		OrderID:         strconv.FormatInt(wire.ID, 10),
		StatusRaw:       wire.Status,
		SubstatusRaw:    wire.Substatus,
		StatusNorm:      NormalizeYmStatus(wire.Status),
		CreatedAt:       parseSourceTime(wire.CreationDate),
		StatusChangedAt: parseSourceTime(wire.StatusUpdateDate),
		DeliveredAt:     delivered,
		Lines:           lines,
		Extra: extraFields(p.Body,
			"id", "status", "substatus", "creationDate", "statusUpdateDate",
			"currency", "items", "delivery"),
		DocMeta: docMeta(p),
	}, nil
}

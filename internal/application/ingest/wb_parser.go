package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mpoffice/backend/internal/domain/ingest"
)

// wbSaleRowPayload is one row of the WB statistics sales feed. Every
// field except srid arrives best-effort, so everything is optional on
// the wire.
type wbSaleRowPayload struct {
	SRID            string           `json:"srid"`
	SaleID          string           `json:"saleID"`
	NmID            int64            `json:"nmId"`
	SupplierArticle string           `json:"supplierArticle"`
	Barcode         string           `json:"barcode"`
	Brand           string           `json:"brand"`
	Date            string           `json:"date"`
	LastChangeDate  string           `json:"lastChangeDate"`
	WarehouseName   string           `json:"warehouseName"`
	PriceWithDisc   *decimal.Decimal `json:"priceWithDisc"`
	Discount        *decimal.Decimal `json:"discount"`
	Quantity        *int             `json:"quantity"`
	ForPay          *decimal.Decimal `json:"forPay"`
	FinishedPrice   *decimal.Decimal `json:"finishedPrice"`
}

// ParseWbSaleEvent parses one WB sales row. WB emits one row per sold
// unit-line; a negative quantity marks a return event.
func ParseWbSaleEvent(p ingest.RawPayload) (ingest.Document, error) {
	var wire wbSaleRowPayload
	if err := json.Unmarshal(p.Body, &wire); err != nil {
		return nil, ingest.NewParseError(p, fmt.Sprintf("invalid JSON: %v", err))
	}
	if wire.SRID == "" {
		return nil, ingest.NewParseError(p, "srid is required")
	}

	saleDt := parseSourceTime(wire.Date)
	if saleDt == nil {
		return nil, ingest.NewParseError(p, fmt.Sprintf("unparseable sale date %q", wire.Date))
	}

	qty := 1
	if wire.Quantity != nil {
		qty = *wire.Quantity
	}

	eventType := ingest.WbEventSale
	statusNorm := "DELIVERED"
	if qty < 0 {
		eventType = ingest.WbEventReturn
		statusNorm = "RETURNED"
	}

	currency := "RUB"

	return ingest.WbSaleEvent{
		SRID:            wire.SRID,
		SaleID:          wire.SaleID,
		EventType:       eventType,
		StatusNorm:      statusNorm,
		SaleDt:          *saleDt,
		LastChangeDt:    parseSourceTime(wire.LastChangeDate),
		SupplierArticle: wire.SupplierArticle,
		NmID:            wire.NmID,
		Barcode:         wire.Barcode,
		Brand:           wire.Brand,
		Qty:             decimal.NewFromInt(int64(qty)),
		PriceList:       nullDec(wire.PriceWithDisc),
		DiscountTotal:   nullDec(wire.Discount),
		PriceEffective:  nullDec(wire.PriceWithDisc),
		AmountLine:      nullDec(wire.ForPay),
		CurrencyCode:    currency,
		WarehouseName:   wire.WarehouseName,
		Extra: extraFields(p.Body,
			"srid", "saleID", "nmId", "supplierArticle", "barcode", "brand",
			"date", "lastChangeDate", "warehouseName", "priceWithDisc",
			"discount", "quantity", "forPay", "finishedPrice"),
		DocMeta: docMeta(p),
	}, nil
}

// Package register contains the application services around the sales
// register: the pure projection from parsed documents to register rows
// and the read-only query service.
package register

import (
	"strconv"
	"time"

	"github.com/mpoffice/backend/internal/domain/ingest"
	"github.com/mpoffice/backend/internal/domain/register"
)

// Project maps one document to its register rows. Pure and
// deterministic: the same document content always yields identical
// entries, which is what makes re-projection and overlap-window
// re-fetching safe. Zero entries is a valid result (nothing sold yet,
// or a return event).
func Project(doc ingest.Document) ([]register.Entry, error) {
	switch d := doc.(type) {
	case ingest.OzonPosting:
		return projectOzonPosting(d)
	case ingest.WbSaleEvent:
		return projectWbSaleEvent(d)
	case ingest.YmOrder:
		return projectYmOrder(d)
	default:
		return nil, ingest.ErrUnknownSource
	}
}

// projectOzonPosting emits one entry per posting line once the posting
// reached its delivered state. document_no is the posting number; the
// line id is the parser's positional key, stable across re-fetches.
func projectOzonPosting(d ingest.OzonPosting) ([]register.Entry, error) {
	if d.StatusNorm != register.StatusDelivered {
		return nil, nil
	}

	eventTime := d.DocMeta.FetchedAt
	if d.DeliveredAt != nil {
		eventTime = *d.DeliveredAt
	}

	entries := make([]register.Entry, 0, len(d.Lines))
	for _, line := range d.Lines {
		if line.LineID == "" {
			return nil, &ingest.ProjectionError{
				SourceRef:   d.DocMeta.SourceRef,
				Source:      d.Source(),
				BusinessKey: d.PostingNumber,
				Reason:      "posting line without line id",
			}
		}
		entries = append(entries, register.Entry{
			Marketplace:     ingest.MarketplaceOzon,
			DocumentNo:      d.PostingNumber,
			LineID:          line.LineID,
			Scheme:          string(d.Scheme),
			DocumentType:    d.Source().DocumentType(),
			DocumentVersion: d.DocMeta.Version,
			SourceRef:       d.DocMeta.SourceRef,
			EventTimeSource: eventTime,
			SaleDate:        saleDate(eventTime),
			SourceUpdatedAt: d.UpdatedAtSource,
			StatusSource:    d.StatusRaw,
			StatusNorm:      d.StatusNorm,
			MpItemID:        line.ProductID,
			SellerSKU:       line.OfferID,
			Title:           line.Name,
			Qty:             line.Qty,
			PriceList:       line.PriceList,
			DiscountTotal:   line.DiscountTotal,
			PriceEffective:  line.PriceEffective,
			AmountLine:      line.AmountLine,
			CurrencyCode:    line.CurrencyCode,
		})
	}
	return entries, nil
}

// projectWbSaleEvent emits exactly one entry per sale row; the srid is
// both the document number and the line id. Return events are
// deliberately excluded from this projection (they stay replayable
// from the raw store should a returns register be added).
func projectWbSaleEvent(d ingest.WbSaleEvent) ([]register.Entry, error) {
	if d.EventType != ingest.WbEventSale {
		return nil, nil
	}

	entry := register.Entry{
		Marketplace:     ingest.MarketplaceWB,
		DocumentNo:      d.SRID,
		LineID:          d.SRID,
		DocumentType:    d.Source().DocumentType(),
		DocumentVersion: d.DocMeta.Version,
		SourceRef:       d.DocMeta.SourceRef,
		EventTimeSource: d.SaleDt,
		SaleDate:        saleDate(d.SaleDt),
		SourceUpdatedAt: d.LastChangeDt,
		StatusSource:    string(d.EventType),
		StatusNorm:      d.StatusNorm,
		MpItemID:        formatNmID(d.NmID),
		SellerSKU:       d.SupplierArticle,
		Barcode:         d.Barcode,
		Title:           d.Brand,
		Qty:             d.Qty,
		PriceList:       d.PriceList,
		DiscountTotal:   d.DiscountTotal,
		PriceEffective:  d.PriceEffective,
		AmountLine:      d.AmountLine,
		CurrencyCode:    d.CurrencyCode,
	}
	return []register.Entry{entry}, nil
}

// projectYmOrder emits one entry per delivered item line. The order id
// is the document number, the YM item id the line id. Item-level
// status wins over the order status when present.
func projectYmOrder(d ingest.YmOrder) ([]register.Entry, error) {
	eventTime := d.DocMeta.FetchedAt
	if d.DeliveredAt != nil {
		eventTime = *d.DeliveredAt
	} else if d.StatusChangedAt != nil {
		eventTime = *d.StatusChangedAt
	}

	entries := make([]register.Entry, 0, len(d.Lines))
	for _, line := range d.Lines {
		lineStatus := d.StatusNorm
		lineStatusRaw := d.StatusRaw
		if line.StatusRaw != "" {
			lineStatus = NormalizeYmItemStatus(line.StatusRaw)
			lineStatusRaw = line.StatusRaw
		}
		if lineStatus != register.StatusDelivered {
			continue
		}
		if line.LineID == "" {
			return nil, &ingest.ProjectionError{
				SourceRef:   d.DocMeta.SourceRef,
				Source:      d.Source(),
				BusinessKey: d.OrderID,
				Reason:      "order item without item id",
			}
		}
		entries = append(entries, register.Entry{
			Marketplace:     ingest.MarketplaceYM,
			DocumentNo:      d.OrderID,
			LineID:          line.LineID,
			DocumentType:    d.Source().DocumentType(),
			DocumentVersion: d.DocMeta.Version,
			SourceRef:       d.DocMeta.SourceRef,
			EventTimeSource: eventTime,
			SaleDate:        saleDate(eventTime),
			SourceUpdatedAt: d.StatusChangedAt,
			StatusSource:    lineStatusRaw,
			StatusNorm:      lineStatus,
			MpItemID:        line.ShopSKU,
			SellerSKU:       line.ShopSKU,
			Title:           line.Name,
			Qty:             line.Qty,
			PriceList:       line.PriceList,
			DiscountTotal:   line.DiscountTotal,
			PriceEffective:  line.PriceEffective,
			AmountLine:      line.AmountLine,
			CurrencyCode:    line.CurrencyCode,
		})
	}
	return entries, nil
}

// NormalizeYmItemStatus maps a YM item-level status. DELIVERED and
// RECEIVED both mean the buyer has the item.
func NormalizeYmItemStatus(status string) string {
	switch status {
	case "DELIVERED", "RECEIVED", "PICKUP":
		return register.StatusDelivered
	case "RETURNED":
		return register.StatusReturned
	case "REJECTED", "CANCELLED":
		return register.StatusCancelled
	case "":
		return register.StatusUnknown
	default:
		return status
	}
}

// saleDate truncates an event time to its UTC calendar day.
func saleDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func formatNmID(nmID int64) string {
	if nmID == 0 {
		return ""
	}
	return strconv.FormatInt(nmID, 10)
}

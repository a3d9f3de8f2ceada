package ingest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpoffice/backend/internal/domain/ingest"
)

func payloadFor(t *testing.T, source ingest.Source, businessKey, body string) ingest.RawPayload {
	t.Helper()
	return ingest.NewRawPayload(source, businessKey, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), []byte(body))
}

func TestParseOzonPosting(t *testing.T) {
	body := `{
		"posting_number": "P1",
		"status": "delivered",
		"created_at": "2026-03-01T10:00:00Z",
		"delivered_at": "2026-03-05T18:30:00Z",
		"products": [
			{"product_id": 111, "offer_id": "SKU-A", "name": "Mug", "quantity": 2, "price": "150.50", "currency_code": "RUB"},
			{"offer_id": "SKU-B", "name": "Plate", "quantity": 1, "price": "99.90", "currency_code": "RUB"}
		],
		"analytics_data": {"city": "Moscow"}
	}`
	p := payloadFor(t, ingest.SourceOzonFBS, "P1", body)

	doc, err := ParseDocument(p)
	require.NoError(t, err)
	posting, ok := doc.(ingest.OzonPosting)
	require.True(t, ok)

	assert.Equal(t, "P1", posting.PostingNumber)
	assert.Equal(t, ingest.OzonSchemeFBS, posting.Scheme)
	assert.Equal(t, "delivered", posting.StatusRaw)
	assert.Equal(t, "DELIVERED", posting.StatusNorm)
	require.NotNil(t, posting.DeliveredAt)
	assert.Equal(t, time.Date(2026, 3, 5, 18, 30, 0, 0, time.UTC), *posting.DeliveredAt)

	require.Len(t, posting.Lines, 2)
	first := posting.Lines[0]
	assert.Equal(t, "P1_1", first.LineID)
	assert.Equal(t, "111", first.ProductID)
	assert.Equal(t, "SKU-A", first.OfferID)
	assert.True(t, first.Qty.Equal(decimal.NewFromInt(2)))
	require.True(t, first.AmountLine.Valid)
	assert.True(t, first.AmountLine.Decimal.Equal(decimal.RequireFromString("301.00")))

	second := posting.Lines[1]
	assert.Equal(t, "P1_2", second.LineID)
	assert.Equal(t, "SKU-B", second.ProductID)

	assert.Contains(t, posting.Extra, "analytics_data")
	assert.Equal(t, p.ID, posting.DocMeta.SourceRef)
}

func TestParseOzonPostingErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"posting_number": `},
		{"missing posting number", `{"status": "delivered", "products": []}`},
		{"product without identity", `{"posting_number": "P2", "products": [{"name": "Mug", "quantity": 1}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := payloadFor(t, ingest.SourceOzonFBO, "P2", tc.body)
			_, err := ParseDocument(p)
			require.Error(t, err)
			var parseErr *ingest.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, p.ID, parseErr.PayloadID)
		})
	}
}

func TestNormalizeOzonStatus(t *testing.T) {
	assert.Equal(t, "DELIVERED", NormalizeOzonStatus("delivered"))
	assert.Equal(t, "CANCELLED", NormalizeOzonStatus("cancelled"))
	assert.Equal(t, "IN_DELIVERY", NormalizeOzonStatus("delivering"))
	assert.Equal(t, "UNKNOWN", NormalizeOzonStatus(""))
	assert.Equal(t, "AWAITING_PACKAGING", NormalizeOzonStatus("awaiting_packaging"))
}

func TestParseWbSaleEvent(t *testing.T) {
	body := `{
		"srid": "WB100",
		"saleID": "S0001",
		"nmId": 4242,
		"supplierArticle": "ART-1",
		"barcode": "2000000000001",
		"brand": "Acme",
		"date": "2026-03-07T09:15:00",
		"lastChangeDate": "2026-03-08T10:00:00",
		"warehouseName": "Koledino",
		"priceWithDisc": 450.0,
		"discount": 50.0,
		"forPay": 405.0,
		"quantity": 1,
		"spp": 5
	}`
	p := payloadFor(t, ingest.SourceWBSales, "WB100", body)

	doc, err := ParseDocument(p)
	require.NoError(t, err)
	event, ok := doc.(ingest.WbSaleEvent)
	require.True(t, ok)

	assert.Equal(t, "WB100", event.SRID)
	assert.Equal(t, ingest.WbEventSale, event.EventType)
	assert.Equal(t, "DELIVERED", event.StatusNorm)
	assert.Equal(t, time.Date(2026, 3, 7, 9, 15, 0, 0, time.UTC), event.SaleDt)
	assert.Equal(t, int64(4242), event.NmID)
	assert.True(t, event.Qty.Equal(decimal.NewFromInt(1)))
	require.True(t, event.AmountLine.Valid)
	assert.True(t, event.AmountLine.Decimal.Equal(decimal.RequireFromString("405")))
	assert.Equal(t, "RUB", event.CurrencyCode)
	assert.Contains(t, event.Extra, "spp")
}

func TestParseWbSaleEventReturn(t *testing.T) {
	body := `{"srid": "WB200", "date": "2026-03-07", "quantity": -1, "forPay": -405.0}`
	p := payloadFor(t, ingest.SourceWBSales, "WB200", body)

	doc, err := ParseDocument(p)
	require.NoError(t, err)
	event := doc.(ingest.WbSaleEvent)

	assert.Equal(t, ingest.WbEventReturn, event.EventType)
	assert.Equal(t, "RETURNED", event.StatusNorm)
	assert.True(t, event.Qty.Equal(decimal.NewFromInt(-1)))
}

func TestParseWbSaleEventMissingQuantityDefaultsToOne(t *testing.T) {
	body := `{"srid": "WB300", "date": "2026-03-07T09:15:00"}`
	p := payloadFor(t, ingest.SourceWBSales, "WB300", body)

	doc, err := ParseDocument(p)
	require.NoError(t, err)
	event := doc.(ingest.WbSaleEvent)
	assert.Equal(t, ingest.WbEventSale, event.EventType)
	assert.True(t, event.Qty.Equal(decimal.NewFromInt(1)))
}

func TestParseWbSaleEventErrors(t *testing.T) {
	t.Run("missing srid", func(t *testing.T) {
		p := payloadFor(t, ingest.SourceWBSales, "", `{"date": "2026-03-07"}`)
		_, err := ParseDocument(p)
		var parseErr *ingest.ParseError
		require.ErrorAs(t, err, &parseErr)
	})
	t.Run("unparseable date", func(t *testing.T) {
		p := payloadFor(t, ingest.SourceWBSales, "WB400", `{"srid": "WB400", "date": "not-a-date"}`)
		_, err := ParseDocument(p)
		var parseErr *ingest.ParseError
		require.ErrorAs(t, err, &parseErr)
	})
}

func TestParseYmOrder(t *testing.T) {
	body := `{
		"id": 555001,
		"status": "DELIVERED",
		"creationDate": "02-03-2026 11:00:00",
		"statusUpdateDate": "06-03-2026 16:45:00",
		"currency": "RUR",
		"items": [
			{"id": 9001, "offerId": "OF-1", "shopSku": "YMSKU-1", "name": "Kettle", "count": 1, "price": 1200, "subsidy": 100}
		],
		"delivery": {"dates": {"realDeliveryDate": "06-03-2026"}},
		"buyerTotal": 1100
	}`
	p := payloadFor(t, ingest.SourceYMOrders, "555001", body)

	doc, err := ParseDocument(p)
	require.NoError(t, err)
	order, ok := doc.(ingest.YmOrder)
	require.True(t, ok)

	assert.Equal(t, "555001", order.OrderID)
	assert.Equal(t, "DELIVERED", order.StatusNorm)
	require.NotNil(t, order.DeliveredAt)
	assert.Equal(t, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), *order.DeliveredAt)

	require.Len(t, order.Lines, 1)
	line := order.Lines[0]
	assert.Equal(t, "9001", line.LineID)
	assert.Equal(t, "YMSKU-1", line.ShopSKU)
	require.True(t, line.PriceEffective.Valid)
	assert.True(t, line.PriceEffective.Decimal.Equal(decimal.RequireFromString("1100")))
	require.True(t, line.AmountLine.Valid)
	assert.True(t, line.AmountLine.Decimal.Equal(decimal.RequireFromString("1200")))

	assert.Contains(t, order.Extra, "buyerTotal")
}

func TestParseYmOrderErrors(t *testing.T) {
	t.Run("missing order id", func(t *testing.T) {
		p := payloadFor(t, ingest.SourceYMOrders, "", `{"status": "DELIVERED"}`)
		_, err := ParseDocument(p)
		var parseErr *ingest.ParseError
		require.ErrorAs(t, err, &parseErr)
	})
	t.Run("item without id", func(t *testing.T) {
		p := payloadFor(t, ingest.SourceYMOrders, "1", `{"id": 1, "items": [{"name": "Kettle"}]}`)
		_, err := ParseDocument(p)
		var parseErr *ingest.ParseError
		require.ErrorAs(t, err, &parseErr)
	})
}

func TestNormalizeYmStatus(t *testing.T) {
	assert.Equal(t, "DELIVERED", NormalizeYmStatus("PICKUP"))
	assert.Equal(t, "CANCELLED", NormalizeYmStatus("CANCELLED_IN_DELIVERY"))
	assert.Equal(t, "PROCESSING", NormalizeYmStatus("RESERVATION"))
	assert.Equal(t, "IN_DELIVERY", NormalizeYmStatus("DELIVERY"))
	assert.Equal(t, "UNKNOWN", NormalizeYmStatus(""))
}

func TestParseDocumentUnknownSource(t *testing.T) {
	p := ingest.RawPayload{Source: ingest.Source("NOPE"), Body: []byte(`{}`)}
	_, err := ParseDocument(p)
	require.ErrorIs(t, err, ingest.ErrUnknownSource)
}

func TestParseDocumentDeterministic(t *testing.T) {
	body := `{"srid": "WB500", "date": "2026-03-07T09:15:00", "quantity": 1, "forPay": 10.5}`
	p := payloadFor(t, ingest.SourceWBSales, "WB500", body)

	first, err := ParseDocument(p)
	require.NoError(t, err)
	second, err := ParseDocument(p)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseSourceTime(t *testing.T) {
	cases := []struct {
		in   string
		want *time.Time
	}{
		{"", nil},
		{"garbage", nil},
		{"2026-03-07T09:15:00Z", timePtr(time.Date(2026, 3, 7, 9, 15, 0, 0, time.UTC))},
		{"2026-03-07 09:15:00", timePtr(time.Date(2026, 3, 7, 9, 15, 0, 0, time.UTC))},
		{"07-03-2026", timePtr(time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC))},
	}
	for _, tc := range cases {
		got := parseSourceTime(tc.in)
		if tc.want == nil {
			assert.Nil(t, got, tc.in)
			continue
		}
		require.NotNil(t, got, tc.in)
		assert.Equal(t, *tc.want, *got, tc.in)
	}
}

func timePtr(t time.Time) *time.Time { return &t }

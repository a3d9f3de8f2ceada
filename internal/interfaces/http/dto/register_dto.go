package dto

import (
	"time"

	"github.com/mpoffice/backend/internal/domain/ingest"
	"github.com/mpoffice/backend/internal/domain/register"
)

// ListRegisterRequest defines the filter for register queries
type ListRegisterRequest struct {
	DateFrom    string `form:"date_from" example:"2026-03-01"`
	DateTo      string `form:"date_to" example:"2026-03-31"`
	Marketplace string `form:"marketplace" binding:"omitempty,oneof=OZON WB YM" example:"WB"`
	StatusNorm  string `form:"status" example:"DELIVERED"`
	SellerSKU   string `form:"seller_sku" example:"SKU-001"`
	SortBy      string `form:"sort_by" example:"sale_date"`
	SortOrder   string `form:"sort_order" binding:"omitempty,oneof=asc desc ASC DESC" example:"asc"`
	Page        int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=1000" example:"100"`
}

// SummaryRequest defines the filter for register summaries
type SummaryRequest struct {
	DateFrom    string `form:"date_from" example:"2026-03-01"`
	DateTo      string `form:"date_to" example:"2026-03-31"`
	Marketplace string `form:"marketplace" binding:"omitempty,oneof=OZON WB YM" example:"OZON"`
}

// RegisterEntryResponse represents one sales register row
type RegisterEntryResponse struct {
	Marketplace     string     `json:"marketplace" example:"WB"`
	DocumentNo      string     `json:"document_no" example:"WB-100200300"`
	LineID          string     `json:"line_id" example:"WB-100200300"`
	Scheme          string     `json:"scheme" example:"FBO"`
	DocumentType    string     `json:"document_type" example:"WB_SALE_EVENT"`
	DocumentVersion int        `json:"document_version" example:"2"`
	SourceRef       string     `json:"source_ref" example:"550e8400-e29b-41d4-a716-446655440000"`
	EventTimeSource time.Time  `json:"event_time_source"`
	SaleDate        string     `json:"sale_date" example:"2026-03-08"`
	SourceUpdatedAt *time.Time `json:"source_updated_at,omitempty"`
	StatusSource    string     `json:"status_source" example:"sale"`
	StatusNorm      string     `json:"status_norm" example:"DELIVERED"`
	MpItemID        string     `json:"mp_item_id" example:"4242"`
	SellerSKU       string     `json:"seller_sku" example:"SKU-001"`
	Barcode         string     `json:"barcode,omitempty"`
	Title           string     `json:"title,omitempty"`
	Qty             string     `json:"qty" example:"1"`
	PriceList       *string    `json:"price_list,omitempty" example:"450.00"`
	DiscountTotal   *string    `json:"discount_total,omitempty" example:"45.00"`
	PriceEffective  *string    `json:"price_effective,omitempty" example:"405.00"`
	AmountLine      *string    `json:"amount_line,omitempty" example:"405.00"`
	CurrencyCode    string     `json:"currency_code" example:"RUB"`
	LoadedAtUTC     time.Time  `json:"loaded_at_utc"`
}

// RegisterEntryResponseFromDomain converts a register entry to its wire form
func RegisterEntryResponseFromDomain(e register.Entry) RegisterEntryResponse {
	resp := RegisterEntryResponse{
		Marketplace:     e.Marketplace.String(),
		DocumentNo:      e.DocumentNo,
		LineID:          e.LineID,
		Scheme:          e.Scheme,
		DocumentType:    string(e.DocumentType),
		DocumentVersion: e.DocumentVersion,
		SourceRef:       e.SourceRef.String(),
		EventTimeSource: e.EventTimeSource,
		SaleDate:        e.SaleDate.Format("2006-01-02"),
		SourceUpdatedAt: e.SourceUpdatedAt,
		StatusSource:    e.StatusSource,
		StatusNorm:      e.StatusNorm,
		MpItemID:        e.MpItemID,
		SellerSKU:       e.SellerSKU,
		Barcode:         e.Barcode,
		Title:           e.Title,
		Qty:             e.Qty.String(),
		CurrencyCode:    e.CurrencyCode,
		LoadedAtUTC:     e.LoadedAtUTC,
	}
	if e.PriceList.Valid {
		s := e.PriceList.Decimal.String()
		resp.PriceList = &s
	}
	if e.DiscountTotal.Valid {
		s := e.DiscountTotal.Decimal.String()
		resp.DiscountTotal = &s
	}
	if e.PriceEffective.Valid {
		s := e.PriceEffective.Decimal.String()
		resp.PriceEffective = &s
	}
	if e.AmountLine.Valid {
		s := e.AmountLine.Decimal.String()
		resp.AmountLine = &s
	}
	return resp
}

// RegisterEntriesFromDomain converts a slice of register entries
func RegisterEntriesFromDomain(entries []register.Entry) []RegisterEntryResponse {
	out := make([]RegisterEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = RegisterEntryResponseFromDomain(e)
	}
	return out
}

// SummaryRowResponse represents a per-day per-marketplace aggregate
type SummaryRowResponse struct {
	SaleDate    string `json:"sale_date" example:"2026-03-08"`
	Marketplace string `json:"marketplace" example:"OZON"`
	Lines       int64  `json:"lines" example:"42"`
	Qty         string `json:"qty" example:"57"`
	AmountTotal string `json:"amount_total" example:"123450.00"`
}

// SummaryRowsFromDomain converts summary rows to their wire form
func SummaryRowsFromDomain(rows []register.SummaryRow) []SummaryRowResponse {
	out := make([]SummaryRowResponse, len(rows))
	for i, r := range rows {
		out[i] = SummaryRowResponse{
			SaleDate:    r.SaleDate.Format("2006-01-02"),
			Marketplace: r.Marketplace.String(),
			Lines:       r.Lines,
			Qty:         r.Qty.String(),
			AmountTotal: r.AmountTotal.String(),
		}
	}
	return out
}

// SyncRunResponse represents one connector run outcome
type SyncRunResponse struct {
	ID         string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Connector  string    `json:"connector" example:"OZON_FBS"`
	State      string    `json:"state" example:"COMMITTED"`
	WindowFrom time.Time `json:"window_from"`
	WindowTo   time.Time `json:"window_to"`
	Fetched    int       `json:"fetched" example:"120"`
	Parsed     int       `json:"parsed" example:"120"`
	Projected  int       `json:"projected" example:"118"`
	Upserted   int       `json:"upserted" example:"118"`
	Failed     int       `json:"failed" example:"2"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// SyncRunResponseFromDomain converts a run outcome to its wire form
func SyncRunResponseFromDomain(o ingest.SyncRunOutcome) SyncRunResponse {
	return SyncRunResponse{
		ID:         o.ID.String(),
		Connector:  o.Connector.String(),
		State:      string(o.State),
		WindowFrom: o.WindowFrom,
		WindowTo:   o.WindowTo,
		Fetched:    o.Counts.Fetched,
		Parsed:     o.Counts.Parsed,
		Projected:  o.Counts.Projected,
		Upserted:   o.Counts.Upserted,
		Failed:     o.Counts.Failed,
		Error:      o.Error,
		StartedAt:  o.StartedAt,
		FinishedAt: o.FinishedAt,
	}
}

// SyncRunsFromDomain converts a slice of run outcomes
func SyncRunsFromDomain(outcomes []ingest.SyncRunOutcome) []SyncRunResponse {
	out := make([]SyncRunResponse, len(outcomes))
	for i, o := range outcomes {
		out[i] = SyncRunResponseFromDomain(o)
	}
	return out
}

// CheckpointResponse represents one connector checkpoint
type CheckpointResponse struct {
	Connector     string     `json:"connector" example:"WB_SALES"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	Cursor        string     `json:"cursor,omitempty"`
	LastRunStatus string     `json:"last_run_status,omitempty" example:"COMMITTED"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// CheckpointResponseFromDomain converts a checkpoint to its wire form.
// Zero timestamps render as absent rather than the zero time.
func CheckpointResponseFromDomain(c ingest.Checkpoint) CheckpointResponse {
	resp := CheckpointResponse{
		Connector:     c.Connector.String(),
		Cursor:        c.Cursor,
		LastRunStatus: string(c.LastRunStatus),
	}
	if !c.LastSyncedAt.IsZero() {
		t := c.LastSyncedAt
		resp.LastSyncedAt = &t
	}
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

// IngestFailureResponse represents one open ingest failure
type IngestFailureResponse struct {
	ID         string     `json:"id"`
	PayloadID  string     `json:"payload_id"`
	Connector  string     `json:"connector" example:"YM_ORDERS"`
	Stage      string     `json:"stage" example:"PARSE"`
	Reason     string     `json:"reason"`
	RecordedAt time.Time  `json:"recorded_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// IngestFailuresFromDomain converts a slice of ingest failures
func IngestFailuresFromDomain(failures []ingest.IngestFailure) []IngestFailureResponse {
	out := make([]IngestFailureResponse, len(failures))
	for i, f := range failures {
		out[i] = IngestFailureResponse{
			ID:         f.ID.String(),
			PayloadID:  f.PayloadID.String(),
			Connector:  f.Connector.String(),
			Stage:      string(f.Stage),
			Reason:     f.Reason,
			RecordedAt: f.RecordedAt,
			ResolvedAt: f.ResolvedAt,
		}
	}
	return out
}

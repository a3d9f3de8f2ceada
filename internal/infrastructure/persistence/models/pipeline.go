package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mpoffice/backend/internal/domain/ingest"
	"github.com/mpoffice/backend/internal/domain/register"
)

// RawPayloadModel is the persistence model for one appended raw
// payload. Rows are append-only; document_version is assigned at
// append time and never rewritten.
type RawPayloadModel struct {
	ID              uuid.UUID           `gorm:"type:uuid;primary_key"`
	Source          ingest.Source       `gorm:"type:varchar(20);not null;index:idx_raw_payloads_key,priority:1"`
	DocumentType    ingest.DocumentType `gorm:"type:varchar(30);not null"`
	BusinessKey     string              `gorm:"type:varchar(100);not null;index:idx_raw_payloads_key,priority:2"`
	DocumentVersion int                 `gorm:"not null"`
	// BodyHash is the SHA-256 of the body, used to detect unchanged
	// re-fetches without comparing full bodies.
	BodyHash  string    `gorm:"type:char(64);not null"`
	FetchedAt time.Time `gorm:"not null;index"`
	Body      []byte    `gorm:"type:jsonb;not null"`
}

// TableName returns the table name for GORM
func (RawPayloadModel) TableName() string {
	return "raw_payloads"
}

// ToDomain converts the persistence model to a domain RawPayload.
func (m *RawPayloadModel) ToDomain() ingest.RawPayload {
	return ingest.RawPayload{
		ID:           m.ID,
		Source:       m.Source,
		DocumentType: m.DocumentType,
		BusinessKey:  m.BusinessKey,
		FetchedAt:    m.FetchedAt,
		Body:         m.Body,
	}
}

// CheckpointModel is the persistence model for one connector's sync
// checkpoint.
type CheckpointModel struct {
	Connector     ingest.Source    `gorm:"type:varchar(20);primary_key"`
	LastSyncedAt  time.Time        `gorm:""`
	Cursor        string           `gorm:"type:text"`
	LastRunStatus ingest.RunStatus `gorm:"type:varchar(20)"`
	UpdatedAt     time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CheckpointModel) TableName() string {
	return "sync_checkpoints"
}

// ToDomain converts the persistence model to a domain Checkpoint.
func (m *CheckpointModel) ToDomain() ingest.Checkpoint {
	return ingest.Checkpoint{
		Connector:     m.Connector,
		LastSyncedAt:  m.LastSyncedAt,
		Cursor:        m.Cursor,
		LastRunStatus: m.LastRunStatus,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Checkpoint.
func (m *CheckpointModel) FromDomain(c ingest.Checkpoint) {
	m.Connector = c.Connector
	m.LastSyncedAt = c.LastSyncedAt
	m.Cursor = c.Cursor
	m.LastRunStatus = c.LastRunStatus
	m.UpdatedAt = c.UpdatedAt
}

// SalesRegisterModel is the persistence model for one sales register
// row. The natural key (marketplace, document_no, line_id) is the
// composite primary key; document_version guards the upsert.
type SalesRegisterModel struct {
	Marketplace ingest.Marketplace `gorm:"type:varchar(10);primary_key"`
	DocumentNo  string             `gorm:"type:varchar(100);primary_key"`
	LineID      string             `gorm:"type:varchar(100);primary_key"`

	Scheme          string              `gorm:"type:varchar(10)"`
	DocumentType    ingest.DocumentType `gorm:"type:varchar(30);not null"`
	DocumentVersion int                 `gorm:"not null"`
	SourceRef       uuid.UUID           `gorm:"type:uuid;not null"`

	EventTimeSource time.Time  `gorm:"not null"`
	SaleDate        time.Time  `gorm:"type:date;not null;index:idx_sales_register_sale_date"`
	SourceUpdatedAt *time.Time `gorm:""`
	StatusSource    string     `gorm:"type:varchar(50)"`
	StatusNorm      string     `gorm:"type:varchar(20);not null;index:idx_sales_register_status"`

	MpItemID  string `gorm:"type:varchar(100)"`
	SellerSKU string `gorm:"type:varchar(100);index:idx_sales_register_seller_sku"`
	Barcode   string `gorm:"type:varchar(50)"`
	Title     string `gorm:"type:varchar(255)"`

	Qty            decimal.Decimal     `gorm:"type:numeric(18,4);not null"`
	PriceList      decimal.NullDecimal `gorm:"type:numeric(18,4)"`
	DiscountTotal  decimal.NullDecimal `gorm:"type:numeric(18,4)"`
	PriceEffective decimal.NullDecimal `gorm:"type:numeric(18,4)"`
	AmountLine     decimal.NullDecimal `gorm:"type:numeric(18,4)"`
	CurrencyCode   string              `gorm:"type:varchar(10)"`

	LoadedAtUTC time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SalesRegisterModel) TableName() string {
	return "sales_register"
}

// ToDomain converts the persistence model to a domain Entry.
func (m *SalesRegisterModel) ToDomain() register.Entry {
	return register.Entry{
		Marketplace:     m.Marketplace,
		DocumentNo:      m.DocumentNo,
		LineID:          m.LineID,
		Scheme:          m.Scheme,
		DocumentType:    m.DocumentType,
		DocumentVersion: m.DocumentVersion,
		SourceRef:       m.SourceRef,
		EventTimeSource: m.EventTimeSource,
		SaleDate:        m.SaleDate,
		SourceUpdatedAt: m.SourceUpdatedAt,
		StatusSource:    m.StatusSource,
		StatusNorm:      m.StatusNorm,
		MpItemID:        m.MpItemID,
		SellerSKU:       m.SellerSKU,
		Barcode:         m.Barcode,
		Title:           m.Title,
		Qty:             m.Qty,
		PriceList:       m.PriceList,
		DiscountTotal:   m.DiscountTotal,
		PriceEffective:  m.PriceEffective,
		AmountLine:      m.AmountLine,
		CurrencyCode:    m.CurrencyCode,
		LoadedAtUTC:     m.LoadedAtUTC,
	}
}

// FromDomain populates the persistence model from a domain Entry.
func (m *SalesRegisterModel) FromDomain(e register.Entry) {
	m.Marketplace = e.Marketplace
	m.DocumentNo = e.DocumentNo
	m.LineID = e.LineID
	m.Scheme = e.Scheme
	m.DocumentType = e.DocumentType
	m.DocumentVersion = e.DocumentVersion
	m.SourceRef = e.SourceRef
	m.EventTimeSource = e.EventTimeSource
	m.SaleDate = e.SaleDate
	m.SourceUpdatedAt = e.SourceUpdatedAt
	m.StatusSource = e.StatusSource
	m.StatusNorm = e.StatusNorm
	m.MpItemID = e.MpItemID
	m.SellerSKU = e.SellerSKU
	m.Barcode = e.Barcode
	m.Title = e.Title
	m.Qty = e.Qty
	m.PriceList = e.PriceList
	m.DiscountTotal = e.DiscountTotal
	m.PriceEffective = e.PriceEffective
	m.AmountLine = e.AmountLine
	m.CurrencyCode = e.CurrencyCode
	m.LoadedAtUTC = e.LoadedAtUTC
}

// SalesRegisterModelFromDomain creates a new persistence model from a
// domain Entry.
func SalesRegisterModelFromDomain(e register.Entry) *SalesRegisterModel {
	m := &SalesRegisterModel{}
	m.FromDomain(e)
	return m
}

// IngestFailureModel is the persistence model for one per-item
// pipeline failure.
type IngestFailureModel struct {
	ID         uuid.UUID           `gorm:"type:uuid;primary_key"`
	PayloadID  uuid.UUID           `gorm:"type:uuid;not null;index:idx_ingest_failures_payload"`
	Connector  ingest.Source       `gorm:"type:varchar(20);not null;index:idx_ingest_failures_connector"`
	Stage      ingest.FailureStage `gorm:"type:varchar(10);not null"`
	Reason     string              `gorm:"type:text;not null"`
	RecordedAt time.Time           `gorm:"not null"`
	ResolvedAt *time.Time          `gorm:"index"`
}

// TableName returns the table name for GORM
func (IngestFailureModel) TableName() string {
	return "ingest_failures"
}

// ToDomain converts the persistence model to a domain IngestFailure.
func (m *IngestFailureModel) ToDomain() ingest.IngestFailure {
	return ingest.IngestFailure{
		ID:         m.ID,
		PayloadID:  m.PayloadID,
		Connector:  m.Connector,
		Stage:      m.Stage,
		Reason:     m.Reason,
		RecordedAt: m.RecordedAt,
		ResolvedAt: m.ResolvedAt,
	}
}

// FromDomain populates the persistence model from a domain IngestFailure.
func (m *IngestFailureModel) FromDomain(f ingest.IngestFailure) {
	m.ID = f.ID
	m.PayloadID = f.PayloadID
	m.Connector = f.Connector
	m.Stage = f.Stage
	m.Reason = f.Reason
	m.RecordedAt = f.RecordedAt
	m.ResolvedAt = f.ResolvedAt
}

// SyncRunModel is the persistence model for one connector run outcome.
type SyncRunModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	Connector  ingest.Source   `gorm:"type:varchar(20);not null;index:idx_sync_runs_connector"`
	State      ingest.RunState `gorm:"type:varchar(20);not null"`
	WindowFrom time.Time       `gorm:""`
	WindowTo   time.Time       `gorm:""`

	FetchedCount   int `gorm:"not null"`
	ParsedCount    int `gorm:"not null"`
	ProjectedCount int `gorm:"not null"`
	UpsertedCount  int `gorm:"not null"`
	FailedCount    int `gorm:"not null"`

	Error      string    `gorm:"type:text"`
	StartedAt  time.Time `gorm:"not null;index:idx_sync_runs_started"`
	FinishedAt time.Time `gorm:""`
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_run_outcomes"
}

// ToDomain converts the persistence model to a domain SyncRunOutcome.
func (m *SyncRunModel) ToDomain() ingest.SyncRunOutcome {
	return ingest.SyncRunOutcome{
		ID:         m.ID,
		Connector:  m.Connector,
		State:      m.State,
		WindowFrom: m.WindowFrom,
		WindowTo:   m.WindowTo,
		Counts: ingest.RunCounts{
			Fetched:   m.FetchedCount,
			Parsed:    m.ParsedCount,
			Projected: m.ProjectedCount,
			Upserted:  m.UpsertedCount,
			Failed:    m.FailedCount,
		},
		Error:      m.Error,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncRunOutcome.
func (m *SyncRunModel) FromDomain(o ingest.SyncRunOutcome) {
	m.ID = o.ID
	m.Connector = o.Connector
	m.State = o.State
	m.WindowFrom = o.WindowFrom
	m.WindowTo = o.WindowTo
	m.FetchedCount = o.Counts.Fetched
	m.ParsedCount = o.Counts.Parsed
	m.ProjectedCount = o.Counts.Projected
	m.UpsertedCount = o.Counts.Upserted
	m.FailedCount = o.Counts.Failed
	m.Error = o.Error
	m.StartedAt = o.StartedAt
	m.FinishedAt = o.FinishedAt
}

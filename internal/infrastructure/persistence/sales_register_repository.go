package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mpoffice/backend/internal/domain/ingest"
	"github.com/mpoffice/backend/internal/domain/register"
	"github.com/mpoffice/backend/internal/infrastructure/persistence/models"
)

// upsertBatchSize keeps one INSERT under the bind-parameter limits of
// both postgres and sqlite.
const upsertBatchSize = 200

// GormSalesRegisterRepository is the sales register store: a
// version-guarded upsert target plus the read-only query surface.
type GormSalesRegisterRepository struct {
	db *gorm.DB
}

// NewGormSalesRegisterRepository creates a sales register repository.
func NewGormSalesRegisterRepository(db *gorm.DB) *GormSalesRegisterRepository {
	return &GormSalesRegisterRepository{db: db}
}

// salesRegisterUpdateColumns lists every non-key column; a version win
// replaces the whole row, never merges fields.
var salesRegisterUpdateColumns = []string{
	"scheme", "document_type", "document_version", "source_ref",
	"event_time_source", "sale_date", "source_updated_at",
	"status_source", "status_norm",
	"mp_item_id", "seller_sku", "barcode", "title",
	"qty", "price_list", "discount_total", "price_effective",
	"amount_line", "currency_code", "loaded_at_utc",
}

// Upsert applies the batch atomically. For an existing natural key the
// incoming row wins only when its document_version is not older than
// the stored one; stale replays are silently dropped by the conflict
// guard, which is what makes overlapping windows and reruns safe.
func (r *GormSalesRegisterRepository) Upsert(ctx context.Context, entries []register.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	loadedAt := time.Now().UTC()
	rows := make([]models.SalesRegisterModel, 0, len(entries))
	for _, e := range entries {
		if e.LoadedAtUTC.IsZero() {
			e.LoadedAtUTC = loadedAt
		}
		rows = append(rows, *models.SalesRegisterModelFromDomain(e))
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.
			Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "marketplace"}, {Name: "document_no"}, {Name: "line_id"},
				},
				DoUpdates: clause.AssignmentColumns(salesRegisterUpdateColumns),
				Where: clause.Where{Exprs: []clause.Expression{
					clause.Expr{SQL: "excluded.document_version >= sales_register.document_version"},
				}},
			}).
			CreateInBatches(rows, upsertBatchSize).Error
	})
}

// Query returns the register page matching the filter plus the total
// row count. The sort column is whitelisted; marketplace, document_no
// and line_id are appended as tie-breakers so pagination is stable.
func (r *GormSalesRegisterRepository) Query(ctx context.Context, filter register.QueryFilter) ([]register.Entry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SalesRegisterModel{})

	if !filter.DateFrom.IsZero() {
		query = query.Where("sale_date >= ?", filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		query = query.Where("sale_date <= ?", filter.DateTo)
	}
	if filter.Marketplace != nil {
		query = query.Where("marketplace = ?", *filter.Marketplace)
	}
	if filter.StatusNorm != "" {
		query = query.Where("status_norm = ?", filter.StatusNorm)
	}
	if filter.SellerSKU != "" {
		query = query.Where("seller_sku = ?", filter.SellerSKU)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 100
	}

	sortField := ValidateSortField(filter.SortBy, RegisterSortFields, "sale_date")
	sortOrder := ValidateSortOrder(filter.SortOrder)

	var rows []models.SalesRegisterModel
	err := query.
		Order(sortField + " " + sortOrder + ", marketplace ASC, document_no ASC, line_id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	entries := make([]register.Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].ToDomain())
	}
	return entries, total, nil
}

// summaryRow is the scan target for the aggregate query.
type summaryRow struct {
	SaleDate    time.Time
	Marketplace ingest.Marketplace
	Lines       int64
	Qty         decimal.Decimal
	AmountTotal decimal.NullDecimal
}

// Summary aggregates delivered lines by day and marketplace.
func (r *GormSalesRegisterRepository) Summary(ctx context.Context, from, to time.Time, marketplace *ingest.Marketplace) ([]register.SummaryRow, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SalesRegisterModel{}).
		Select("sale_date, marketplace, COUNT(*) AS lines, SUM(qty) AS qty, SUM(amount_line) AS amount_total").
		Where("status_norm = ?", register.StatusDelivered).
		Group("sale_date, marketplace").
		Order("sale_date ASC, marketplace ASC")

	if !from.IsZero() {
		query = query.Where("sale_date >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("sale_date <= ?", to)
	}
	if marketplace != nil {
		query = query.Where("marketplace = ?", *marketplace)
	}

	var rows []summaryRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]register.SummaryRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, register.SummaryRow{
			SaleDate:    row.SaleDate,
			Marketplace: row.Marketplace,
			Lines:       row.Lines,
			Qty:         row.Qty,
			AmountTotal: row.AmountTotal.Decimal,
		})
	}
	return out, nil
}

// Get returns the current row for a natural key, nil when absent.
func (r *GormSalesRegisterRepository) Get(ctx context.Context, key register.NaturalKey) (*register.Entry, error) {
	var model models.SalesRegisterModel
	err := r.db.WithContext(ctx).
		Where("marketplace = ? AND document_no = ? AND line_id = ?", key.Marketplace, key.DocumentNo, key.LineID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry := model.ToDomain()
	return &entry, nil
}

var _ register.Store = (*GormSalesRegisterRepository)(nil)

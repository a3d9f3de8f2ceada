package persistence

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mpoffice/backend/internal/domain/ingest"
	"github.com/mpoffice/backend/internal/infrastructure/persistence/models"
)

// GormSyncRunRepository persists connector run outcomes.
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a sync run repository.
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// Save stores a run outcome; saving the same run id again overwrites
// the earlier record, so a run saved as FAILED on the failure path can
// not duplicate.
func (r *GormSyncRunRepository) Save(ctx context.Context, outcome ingest.SyncRunOutcome) error {
	var model models.SyncRunModel
	model.FromDomain(outcome)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
}

// Recent lists the newest outcomes, optionally filtered by connector.
func (r *GormSyncRunRepository) Recent(ctx context.Context, connector *ingest.Source, limit int) ([]ingest.SyncRunOutcome, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Model(&models.SyncRunModel{})
	if connector != nil {
		query = query.Where("connector = ?", *connector)
	}

	var rows []models.SyncRunModel
	err := query.Order("started_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	outcomes := make([]ingest.SyncRunOutcome, 0, len(rows))
	for i := range rows {
		outcomes = append(outcomes, rows[i].ToDomain())
	}
	return outcomes, nil
}

var _ ingest.SyncRunStore = (*GormSyncRunRepository)(nil)

package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpoffice/backend/internal/domain/ingest"
	"github.com/mpoffice/backend/internal/infrastructure/persistence/models"
)

// GormIngestFailureRepository persists per-item pipeline failures.
type GormIngestFailureRepository struct {
	db *gorm.DB
}

// NewGormIngestFailureRepository creates an ingest failure repository.
func NewGormIngestFailureRepository(db *gorm.DB) *GormIngestFailureRepository {
	return &GormIngestFailureRepository{db: db}
}

// Record stores a failure. A payload that is already open keeps its
// single row with the reason refreshed, so repeated failing runs do
// not pile up duplicates.
func (r *GormIngestFailureRepository) Record(ctx context.Context, failure ingest.IngestFailure) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.IngestFailureModel{}).
			Where("payload_id = ? AND resolved_at IS NULL", failure.PayloadID).
			Updates(map[string]any{
				"stage":       failure.Stage,
				"reason":      failure.Reason,
				"recorded_at": failure.RecordedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		var model models.IngestFailureModel
		model.FromDomain(failure)
		return tx.Create(&model).Error
	})
}

// Unresolved lists open failures for a connector, oldest first.
func (r *GormIngestFailureRepository) Unresolved(ctx context.Context, connector ingest.Source, limit int) ([]ingest.IngestFailure, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.IngestFailureModel
	err := r.db.WithContext(ctx).
		Where("connector = ? AND resolved_at IS NULL", connector).
		Order("recorded_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	failures := make([]ingest.IngestFailure, 0, len(rows))
	for i := range rows {
		failures = append(failures, rows[i].ToDomain())
	}
	return failures, nil
}

// Resolve closes every open failure for the payload.
func (r *GormIngestFailureRepository) Resolve(ctx context.Context, payloadID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.IngestFailureModel{}).
		Where("payload_id = ? AND resolved_at IS NULL", payloadID).
		Update("resolved_at", time.Now().UTC()).Error
}

var _ ingest.IngestFailureStore = (*GormIngestFailureRepository)(nil)

package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mpoffice/backend/internal/domain/ingest"
	"github.com/mpoffice/backend/internal/infrastructure/persistence/models"
)

// GormCheckpointRepository persists one checkpoint row per connector.
type GormCheckpointRepository struct {
	db *gorm.DB
}

// NewGormCheckpointRepository creates a checkpoint repository.
func NewGormCheckpointRepository(db *gorm.DB) *GormCheckpointRepository {
	return &GormCheckpointRepository{db: db}
}

// Get returns the connector's checkpoint. A connector that has never
// run gets a zero-valued checkpoint carrying only its name.
func (r *GormCheckpointRepository) Get(ctx context.Context, connector ingest.Source) (ingest.Checkpoint, error) {
	var model models.CheckpointModel
	err := r.db.WithContext(ctx).Where("connector = ?", connector).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ingest.Checkpoint{Connector: connector}, nil
	}
	if err != nil {
		return ingest.Checkpoint{}, err
	}
	return model.ToDomain(), nil
}

// Save overwrites the connector's checkpoint.
func (r *GormCheckpointRepository) Save(ctx context.Context, checkpoint ingest.Checkpoint) error {
	var model models.CheckpointModel
	model.FromDomain(checkpoint)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "connector"}},
			UpdateAll: true,
		}).
		Create(&model).Error
}

var _ ingest.CheckpointStore = (*GormCheckpointRepository)(nil)

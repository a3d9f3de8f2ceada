package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mpoffice/backend/internal/domain/ingest"
	"github.com/mpoffice/backend/internal/infrastructure/persistence/models"
)

// GormRawPayloadRepository is the append-only raw payload store. Rows
// are never updated or deleted; re-fetching a business object appends
// a new row and the document version tells re-fetches apart from real
// changes.
type GormRawPayloadRepository struct {
	db *gorm.DB
}

// NewGormRawPayloadRepository creates a raw payload repository.
func NewGormRawPayloadRepository(db *gorm.DB) *GormRawPayloadRepository {
	return &GormRawPayloadRepository{db: db}
}

// Append stores the payloads and assigns each one its document
// version: the version stays when the body hash matches the latest
// appended row for the same business key, and increments when it
// differs. The whole batch commits atomically.
func (r *GormRawPayloadRepository) Append(ctx context.Context, payloads []ingest.RawPayload) (map[uuid.UUID]int, error) {
	versions := make(map[uuid.UUID]int, len(payloads))
	if len(payloads) == 0 {
		return versions, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The same key can appear more than once in one batch (a
		// document changed between pages); track in-batch heads so the
		// later occurrence versions against the earlier one.
		type head struct {
			version int
			hash    string
		}
		heads := make(map[string]head)

		for _, p := range payloads {
			key := fmt.Sprintf("%s/%s", p.Source, p.BusinessKey)
			h, seen := heads[key]
			if !seen {
				var latest models.RawPayloadModel
				err := tx.Where("source = ? AND business_key = ?", p.Source, p.BusinessKey).
					Order("document_version DESC, fetched_at DESC").
					First(&latest).Error
				switch {
				case errors.Is(err, gorm.ErrRecordNotFound):
					h = head{}
				case err != nil:
					return err
				default:
					h = head{version: latest.DocumentVersion, hash: latest.BodyHash}
				}
			}

			hash := bodyHash(p.Body)
			version := h.version
			if hash != h.hash || version == 0 {
				version++
			}
			heads[key] = head{version: version, hash: hash}

			model := models.RawPayloadModel{
				ID:              p.ID,
				Source:          p.Source,
				DocumentType:    p.DocumentType,
				BusinessKey:     p.BusinessKey,
				DocumentVersion: version,
				BodyHash:        hash,
				FetchedAt:       p.FetchedAt,
				Body:            p.Body,
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
			versions[p.ID] = version
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// Get returns one payload by id, nil when absent.
func (r *GormRawPayloadRepository) Get(ctx context.Context, id uuid.UUID) (*ingest.RawPayload, error) {
	var model models.RawPayloadModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	payload := model.ToDomain()
	return &payload, nil
}

// LatestVersion returns the current document version for a business
// key, 0 when the key has never been appended.
func (r *GormRawPayloadRepository) LatestVersion(ctx context.Context, source ingest.Source, businessKey string) (int, error) {
	var version *int
	err := r.db.WithContext(ctx).
		Model(&models.RawPayloadModel{}).
		Where("source = ? AND business_key = ?", source, businessKey).
		Select("MAX(document_version)").
		Scan(&version).Error
	if err != nil {
		return 0, err
	}
	if version == nil {
		return 0, nil
	}
	return *version, nil
}

func bodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

var _ ingest.RawPayloadStore = (*GormRawPayloadRepository)(nil)

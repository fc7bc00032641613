package repository

import (
	"context"
	"errors"

	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutosaveRepository stores the single working draft each user may have.
type AutosaveRepository interface {
	Upsert(ctx context.Context, draft *models.Autosave, replaceCover bool) error
	GetByUser(ctx context.Context, userID string) (*models.Autosave, error)
}

type autosaveRepository struct {
	db *gorm.DB
}

// NewAutosaveRepository creates a new autosave repository.
func NewAutosaveRepository(db *gorm.DB) AutosaveRepository {
	return &autosaveRepository{db: db}
}

// Upsert writes the draft in one statement keyed on user_id. When
// replaceCover is false an existing row keeps its cover image.
func (r *autosaveRepository) Upsert(ctx context.Context, draft *models.Autosave, replaceCover bool) error {
	columns := []string{"content", "created_at"}
	if replaceCover {
		columns = append(columns, "cover_image")
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(draft).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetByUser returns nil without error when the user has no draft.
func (r *autosaveRepository) GetByUser(ctx context.Context, userID string) (*models.Autosave, error) {
	var draft models.Autosave
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&draft).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &draft, nil
}

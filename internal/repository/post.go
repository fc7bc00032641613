package repository

import (
	"context"
	"errors"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations. Every
// lookup and mutation is scoped by the owning user.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	ListByUser(ctx context.Context, userID string) ([]*models.Post, error)
	GetByIDForUser(ctx context.Context, id, userID string) (*models.Post, error)
	Update(ctx context.Context, id, userID string, updates map[string]interface{}) error
	Delete(ctx context.Context, id, userID string) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListByUser returns the user's posts, most recently updated first.
func (r *postRepository) ListByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	posts := make([]*models.Post, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// GetByIDForUser treats another user's post exactly like a missing one.
func (r *postRepository) GetByIDForUser(ctx context.Context, id, userID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("post not found")
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) Update(ctx context.Context, id, userID string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("post not found")
	}
	return nil
}

// Delete reports how many rows were removed; zero is not an error.
func (r *postRepository) Delete(ctx context.Context, id, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Post{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

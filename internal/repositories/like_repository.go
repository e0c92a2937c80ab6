package repositories

import (
	"context"

	"github.com/anonto42/social-graph/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	// CreateLike reports whether a new row was inserted.
	CreateLike(ctx context.Context, userID, postID uint) (bool, error)
	// DeleteLike reports whether a row was removed.
	DeleteLike(ctx context.Context, userID, postID uint) (bool, error)
	GetLikesCountByPostID(ctx context.Context, postID uint) (int64, error)
	CountByPostIDs(ctx context.Context, postIDs []uint) (map[uint]int64, error)
	HasUserLikedPost(ctx context.Context, userID, postID uint) (bool, error)
	LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error)
}

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// CreateLike relies on idx_like_user_post; a duplicate is a no-op.
func (r *PostgresLikeRepository) CreateLike(ctx context.Context, userID, postID uint) (bool, error) {
	like := &models.Like{UserID: userID, PostID: postID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(like)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *PostgresLikeRepository) DeleteLike(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresLikeRepository) GetLikesCountByPostID(ctx context.Context, postID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresLikeRepository) CountByPostIDs(ctx context.Context, postIDs []uint) (map[uint]int64, error) {
	return countBy(ctx, r.db, &models.Like{}, "post_id", postIDs)
}

func (r *PostgresLikeRepository) HasUserLikedPost(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresLikeRepository) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(postIDs))
	if userID == 0 || len(postIDs) == 0 {
		return out, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

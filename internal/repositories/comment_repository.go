package repositories

import (
	"context"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/pkg/cursor"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id uint) (*models.Comment, error)
	GetCommentsByIDs(ctx context.Context, ids []uint) (map[uint]models.Comment, error)
	// GetCommentsByPostID lists a post's comments; authorID 0 means any author.
	GetCommentsByPostID(ctx context.Context, postID, authorID uint, after cursor.Position, limit int) ([]models.Comment, error)
	CountByPostIDs(ctx context.Context, postIDs []uint) (map[uint]int64, error)
	// UpdateComment changes content of a comment owned by authorID; false if none matched.
	UpdateComment(ctx context.Context, id, authorID uint, content string) (bool, error)
	DeleteComment(ctx context.Context, id, authorID uint) (bool, error)
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

func (r *PostgresCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Omit("Post", "Author").Create(comment).Error
}

func (r *PostgresCommentRepository) GetCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("Author").First(&comment, id).Error; err != nil {
		return nil, notFound(err, "comment")
	}
	return &comment, nil
}

func (r *PostgresCommentRepository) GetCommentsByIDs(ctx context.Context, ids []uint) (map[uint]models.Comment, error) {
	out := make(map[uint]models.Comment, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var comments []models.Comment
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&comments).Error; err != nil {
		return nil, err
	}
	for _, c := range comments {
		out[c.ID] = c
	}
	return out, nil
}

func (r *PostgresCommentRepository) GetCommentsByPostID(ctx context.Context, postID, authorID uint, after cursor.Position, limit int) ([]models.Comment, error) {
	q := r.db.WithContext(ctx).Preload("Author").Model(&models.Comment{}).Where("comments.post_id = ?", postID)
	if authorID != 0 {
		q = q.Where("comments.author_id = ?", authorID)
	}
	var comments []models.Comment
	if err := keyset(q, "comments", after, limit).Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *PostgresCommentRepository) CountByPostIDs(ctx context.Context, postIDs []uint) (map[uint]int64, error) {
	return countBy(ctx, r.db, &models.Comment{}, "post_id", postIDs)
}

func (r *PostgresCommentRepository) UpdateComment(ctx context.Context, id, authorID uint, content string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND author_id = ?", id, authorID).
		Update("content", content)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresCommentRepository) DeleteComment(ctx context.Context, id, authorID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND author_id = ?", id, authorID).Delete(&models.Comment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

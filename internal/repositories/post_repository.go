package repositories

import (
	"context"
	"strings"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/pkg/apperror"
	"github.com/anonto42/social-graph/backend/pkg/cursor"
	"gorm.io/gorm"
)

// PostFilter narrows List. Zero fields are ignored.
type PostFilter struct {
	AuthorID uint
	Tag      string
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id uint) (*models.Post, error)
	GetPostsByIDs(ctx context.Context, ids []uint) ([]models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post, tags *[]models.Tag) error
	// DeletePost removes a post owned by authorID and reports whether it did.
	DeletePost(ctx context.Context, id, authorID uint) (bool, error)
	List(ctx context.Context, filter PostFilter, after cursor.Position, limit int) ([]models.Post, error)
	// FollowingFeed lists posts by authors userID follows, newest first.
	FollowingFeed(ctx context.Context, userID uint, after cursor.Position, limit int) ([]models.Post, error)
	SearchPosts(ctx context.Context, query string, limit int) ([]models.Post, error)
}

// PostgresPostRepository implements PostRepository for PostgreSQL
type PostgresPostRepository struct {
	db *gorm.DB
}

// NewPostgresPostRepository creates a new PostgresPostRepository
func NewPostgresPostRepository(db *gorm.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

func (r *PostgresPostRepository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Author").Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("tags.name")
	})
}

// CreatePost inserts the post and links its already persisted tags.
func (r *PostgresPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit("Author", "Tags.*").Create(post).Error
}

func (r *PostgresPostRepository) GetPostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.withRelations(ctx).First(&post, id).Error; err != nil {
		return nil, notFound(err, "post")
	}
	return &post, nil
}

// GetPostsByIDs keeps the order of ids and skips ids that no longer exist.
func (r *PostgresPostRepository) GetPostsByIDs(ctx context.Context, ids []uint) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	var posts []models.Post
	if err := r.withRelations(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]models.Post, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// UpdatePost saves title and content. When tags is non-nil the tag set is replaced.
func (r *PostgresPostRepository) UpdatePost(ctx context.Context, post *models.Post, tags *[]models.Tag) error {
	db := r.db.WithContext(ctx)
	err := db.Model(post).Updates(map[string]interface{}{
		"title":   post.Title,
		"content": post.Content,
	}).Error
	if err != nil {
		return err
	}
	if tags == nil {
		return nil
	}
	assoc := db.Model(post).Association("Tags")
	if len(*tags) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(*tags)
	}
	if err != nil {
		return err
	}
	post.Tags = *tags
	return nil
}

func (r *PostgresPostRepository) DeletePost(ctx context.Context, id, authorID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND author_id = ?", id, authorID).Delete(&models.Post{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresPostRepository) List(ctx context.Context, filter PostFilter, after cursor.Position, limit int) ([]models.Post, error) {
	q := r.withRelations(ctx).Model(&models.Post{})
	if filter.AuthorID != 0 {
		q = q.Where("posts.author_id = ?", filter.AuthorID)
	}
	if filter.Tag != "" {
		q = q.Where("posts.id IN (?)", r.db.WithContext(ctx).Table("post_tags").
			Select("post_tags.post_id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.name = ?", strings.ToLower(filter.Tag)))
	}
	var posts []models.Post
	if err := keyset(q, "posts", after, limit).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *PostgresPostRepository) FollowingFeed(ctx context.Context, userID uint, after cursor.Position, limit int) ([]models.Post, error) {
	following := r.db.WithContext(ctx).Model(&models.Follow{}).
		Select("following_id").
		Where("follower_id = ?", userID)

	q := r.withRelations(ctx).Model(&models.Post{}).Where("posts.author_id IN (?)", following)

	var posts []models.Post
	if err := keyset(q, "posts", after, limit).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// SearchPosts is the SQL fallback used when no search index is configured.
func (r *PostgresPostRepository) SearchPosts(ctx context.Context, query string, limit int) ([]models.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.Validation("search query is required")
	}
	like := "%" + strings.ToLower(query) + "%"
	tagged := r.db.WithContext(ctx).Table("post_tags").
		Select("post_tags.post_id").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where("tags.name LIKE ?", like)

	var posts []models.Post
	err := r.withRelations(ctx).
		Where("LOWER(posts.title) LIKE ? OR LOWER(posts.content) LIKE ? OR posts.id IN (?)", like, like, tagged).
		Order("posts.created_at DESC").Order("posts.id DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

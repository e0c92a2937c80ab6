package repositories

import (
	"context"

	"github.com/anonto42/social-graph/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TagRepository interface {
	// EnsureTags returns persisted tags for names, creating missing ones.
	EnsureTags(ctx context.Context, names []string) ([]models.Tag, error)
}

type PostgresTagRepository struct {
	db *gorm.DB
}

func NewPostgresTagRepository(db *gorm.DB) *PostgresTagRepository {
	return &PostgresTagRepository{db: db}
}

func (r *PostgresTagRepository) EnsureTags(ctx context.Context, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return []models.Tag{}, nil
	}
	db := r.db.WithContext(ctx)
	rows := make([]models.Tag, len(names))
	for i, n := range names {
		rows[i] = models.Tag{Name: n}
	}
	err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&rows).Error
	if err != nil {
		return nil, err
	}
	var tags []models.Tag
	if err := db.Where("name IN ?", names).Order("name").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

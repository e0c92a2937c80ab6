package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/pkg/apperror"
	"github.com/anonto42/social-graph/backend/pkg/cursor"
	"gorm.io/gorm"
)

// Store groups the relational repositories over one connection or transaction.
type Store struct {
	db            *gorm.DB
	overrides     func(*Store)
	Users         UserRepository
	Posts         PostRepository
	Tags          TagRepository
	Comments      CommentRepository
	Likes         LikeRepository
	Follows       FollowRepository
	Notifications NotificationRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewPostgresUserRepository(db),
		Posts:         NewPostgresPostRepository(db),
		Tags:          NewPostgresTagRepository(db),
		Comments:      NewPostgresCommentRepository(db),
		Likes:         NewPostgresLikeRepository(db),
		Follows:       NewPostgresFollowRepository(db),
		Notifications: NewPostgresNotificationRepository(db),
	}
}

// Override returns a copy of s with apply run over its repositories. The
// same apply runs over every Store handed out by Transaction, so a
// replaced repository stays in place inside transactions too.
func (s *Store) Override(apply func(*Store)) *Store {
	prev := s.overrides
	combined := func(st *Store) {
		if prev != nil {
			prev(st)
		}
		apply(st)
	}
	c := *s
	apply(&c)
	c.overrides = combined
	return &c
}

// Transaction runs fn against a Store bound to one database transaction.
// fn must not touch the outer Store.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st := NewStore(tx)
		if s.overrides != nil {
			s.overrides(st)
			st.overrides = s.overrides
		}
		return fn(st)
	})
}

// AutoMigrate creates or updates every relational table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Tag{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Follow{},
		&models.Notification{},
	)
}

// keyset restricts q to rows strictly after pos in (created_at DESC, id DESC)
// order and applies that order.
func keyset(q *gorm.DB, table string, pos cursor.Position, limit int) *gorm.DB {
	if !pos.IsZero() {
		q = q.Where(
			fmt.Sprintf("(%[1]s.created_at < ? OR (%[1]s.created_at = ? AND %[1]s.id < ?))", table),
			pos.CreatedAt, pos.CreatedAt, pos.ID,
		)
	}
	return q.Order(table + ".created_at DESC").Order(table + ".id DESC").Limit(limit)
}

// notFound maps gorm.ErrRecordNotFound onto the merged not found/forbidden error.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.New(apperror.ErrNotFoundOrForbidden, what+" not found")
	}
	return err
}

// countBy returns COUNT(*) grouped by column for the given ids.
func countBy(ctx context.Context, db *gorm.DB, model interface{}, column string, ids []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		RefID uint
		Count int64
	}
	err := db.WithContext(ctx).Model(model).
		Select(column+" AS ref_id, COUNT(*) AS count").
		Where(column+" IN ?", ids).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.RefID] = r.Count
	}
	return out, nil
}

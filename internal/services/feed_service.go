package services

import (
	"context"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/pkg/cursor"
)

type FeedService struct {
	store    *repositories.Store
	enricher *postEnricher
}

func NewFeedService(store *repositories.Store, views repositories.PostViewRepository) *FeedService {
	return &FeedService{store: store, enricher: &postEnricher{store: store, views: views}}
}

// HomeFeed pages through posts by the authors userID follows, newest first.
// Pages are keyed on (created_at, id) so posts published between two
// requests never shift or repeat items of later pages.
func (s *FeedService) HomeFeed(ctx context.Context, userID uint, after string, limit int) (cursor.Page[models.PostSummary], error) {
	pos, err := cursor.Decode(after)
	if err != nil {
		return cursor.Page[models.PostSummary]{}, err
	}
	limit = cursor.ClampLimit(limit)

	posts, err := s.store.Posts.FollowingFeed(ctx, userID, pos, limit+1)
	if err != nil {
		return cursor.Page[models.PostSummary]{}, err
	}
	page := cursor.Paginate(posts, limit, postPosition)

	items, err := s.enricher.summarize(ctx, userID, page.Items)
	if err != nil {
		return cursor.Page[models.PostSummary]{}, err
	}
	return cursor.Page[models.PostSummary]{Items: items, NextCursor: page.NextCursor}, nil
}

func postPosition(p models.Post) cursor.Position {
	return cursor.Position{CreatedAt: p.CreatedAt, ID: p.ID}
}

package services

import (
	"context"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/pkg/logger"
)

// postEnricher attaches counters and the viewer's like state to posts
// with one batched query per counter.
type postEnricher struct {
	store *repositories.Store
	views repositories.PostViewRepository
}

func (e *postEnricher) summarize(ctx context.Context, viewerID uint, posts []models.Post) ([]models.PostSummary, error) {
	out := make([]models.PostSummary, len(posts))
	if len(posts) == 0 {
		return out, nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	likes, err := e.store.Likes.CountByPostIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	comments, err := e.store.Comments.CountByPostIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	liked, err := e.store.Likes.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	views := map[uint]int64{}
	if e.views != nil {
		if views, err = e.views.CountByPostIDs(ctx, ids); err != nil {
			logger.Warnf("count post views: %v", err)
			views = map[uint]int64{}
		}
	}

	for i, p := range posts {
		if p.Tags == nil {
			p.Tags = []models.Tag{}
		}
		out[i] = models.PostSummary{
			Post:          p,
			LikesCount:    likes[p.ID],
			CommentsCount: comments[p.ID],
			ViewCount:     views[p.ID],
			IsLiked:       liked[p.ID],
		}
		if p.Author != nil {
			out[i].Author = p.Author.ToCompact()
		}
	}
	return out, nil
}

func (e *postEnricher) summarizeOne(ctx context.Context, viewerID uint, post *models.Post) (*models.PostSummary, error) {
	s, err := e.summarize(ctx, viewerID, []models.Post{*post})
	if err != nil {
		return nil, err
	}
	return &s[0], nil
}

package services

import (
	"context"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/pkg/apperror"
	"github.com/anonto42/social-graph/backend/pkg/cursor"
	"github.com/anonto42/social-graph/backend/pkg/logger"
	"github.com/anonto42/social-graph/backend/pkg/search"
)

const maxTitleLength = 200
const maxContentLength = 10000

type PostService struct {
	store    *repositories.Store
	views    repositories.PostViewRepository
	index    search.PostIndex
	enricher *postEnricher
}

// NewPostService builds the service. views and index are optional.
func NewPostService(store *repositories.Store, views repositories.PostViewRepository, index search.PostIndex) *PostService {
	return &PostService{
		store:    store,
		views:    views,
		index:    index,
		enricher: &postEnricher{store: store, views: views},
	}
}

func (s *PostService) Create(ctx context.Context, authorID uint, req models.CreatePostRequest) (*models.PostSummary, error) {
	title, content, err := cleanPost(req.Title, req.Content)
	if err != nil {
		return nil, err
	}
	post := &models.Post{AuthorID: authorID, Title: title, Content: content}

	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		tags, err := tx.Tags.EnsureTags(ctx, normalizeTags(req.Tags))
		if err != nil {
			return err
		}
		post.Tags = tags
		return tx.Posts.CreatePost(ctx, post)
	})
	if err != nil {
		return nil, err
	}

	stored, err := s.store.Posts.GetPostByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	s.reindex(stored)
	return s.enricher.summarizeOne(ctx, authorID, stored)
}

// Get returns a post and records the viewer when view tracking is enabled.
func (s *PostService) Get(ctx context.Context, viewerID, postID uint, ip string) (*models.PostSummary, error) {
	post, err := s.store.Posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if s.views != nil {
		if err := s.views.RecordView(ctx, postID, viewerID, ip); err != nil {
			logger.Warnf("record view of post %d: %v", postID, err)
		}
	}
	return s.enricher.summarizeOne(ctx, viewerID, post)
}

func (s *PostService) Update(ctx context.Context, authorID, postID uint, req models.UpdatePostRequest) (*models.PostSummary, error) {
	post, err := s.ownedPost(ctx, authorID, postID)
	if err != nil {
		return nil, err
	}
	title, content := post.Title, post.Content
	if req.Title != nil {
		title = *req.Title
	}
	if req.Content != nil {
		content = *req.Content
	}
	if post.Title, post.Content, err = cleanPost(title, content); err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		var tags *[]models.Tag
		if req.Tags != nil {
			ensured, err := tx.Tags.EnsureTags(ctx, normalizeTags(*req.Tags))
			if err != nil {
				return err
			}
			tags = &ensured
		}
		return tx.Posts.UpdatePost(ctx, post, tags)
	})
	if err != nil {
		return nil, err
	}

	stored, err := s.store.Posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	s.reindex(stored)
	return s.enricher.summarizeOne(ctx, authorID, stored)
}

// Delete removes a post owned by authorID. Comments, likes and tag links
// go with it.
func (s *PostService) Delete(ctx context.Context, authorID, postID uint) error {
	ok, err := s.store.Posts.DeletePost(ctx, postID, authorID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.New(apperror.ErrNotFoundOrForbidden, "post not found")
	}
	if s.index != nil {
		if err := s.index.DeletePost(postID); err != nil {
			logger.Warnf("%v", err)
		}
	}
	if s.views != nil {
		if err := s.views.DeleteByPostID(ctx, postID); err != nil {
			logger.Warnf("delete views of post %d: %v", postID, err)
		}
	}
	return nil
}

// List pages through posts matching filter, newest first.
func (s *PostService) List(ctx context.Context, viewerID uint, filter repositories.PostFilter, after string, limit int) (cursor.Page[models.PostSummary], error) {
	pos, err := cursor.Decode(after)
	if err != nil {
		return cursor.Page[models.PostSummary]{}, err
	}
	limit = cursor.ClampLimit(limit)
	posts, err := s.store.Posts.List(ctx, filter, pos, limit+1)
	if err != nil {
		return cursor.Page[models.PostSummary]{}, err
	}
	page := cursor.Paginate(posts, limit, postPosition)
	items, err := s.enricher.summarize(ctx, viewerID, page.Items)
	if err != nil {
		return cursor.Page[models.PostSummary]{}, err
	}
	return cursor.Page[models.PostSummary]{Items: items, NextCursor: page.NextCursor}, nil
}

// Search matches title, content and tags. The search index is used when
// configured and reachable, the database otherwise.
func (s *PostService) Search(ctx context.Context, viewerID uint, query string, limit int) ([]models.PostSummary, error) {
	query = plainText(query)
	if query == "" {
		return nil, apperror.Validation("search query is required")
	}
	limit = cursor.ClampLimit(limit)

	var posts []models.Post
	var err error
	if s.index != nil {
		var ids []uint
		if ids, err = s.index.SearchPostIDs(query, limit); err == nil {
			posts, err = s.store.Posts.GetPostsByIDs(ctx, ids)
		} else {
			logger.Warnf("search index unavailable, falling back to database: %v", err)
		}
	}
	if s.index == nil || err != nil {
		if posts, err = s.store.Posts.SearchPosts(ctx, query, limit); err != nil {
			return nil, err
		}
	}
	return s.enricher.summarize(ctx, viewerID, posts)
}

// RecentViews lists who recently viewed a post. Only its author may ask.
func (s *PostService) RecentViews(ctx context.Context, authorID, postID uint, limit int) ([]models.PostView, error) {
	if s.views == nil {
		return nil, apperror.New(apperror.ErrUnavailable, "view tracking is not enabled")
	}
	if _, err := s.ownedPost(ctx, authorID, postID); err != nil {
		return nil, err
	}
	return s.views.GetRecentViews(ctx, postID, int64(cursor.ClampLimit(limit)))
}

func (s *PostService) ownedPost(ctx context.Context, authorID, postID uint) (*models.Post, error) {
	post, err := s.store.Posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != authorID {
		return nil, apperror.New(apperror.ErrNotFoundOrForbidden, "post not found")
	}
	return post, nil
}

func (s *PostService) reindex(post *models.Post) {
	if s.index == nil {
		return
	}
	doc := search.PostDocument{
		ID:        post.ID,
		Title:     post.Title,
		Content:   post.Content,
		AuthorID:  post.AuthorID,
		CreatedAt: post.CreatedAt.Unix(),
		Tags:      make([]string, len(post.Tags)),
	}
	for i, t := range post.Tags {
		doc.Tags[i] = t.Name
	}
	if post.Author != nil {
		doc.AuthorUsername = post.Author.Username
	}
	if err := s.index.IndexPost(doc); err != nil {
		logger.Warnf("%v", err)
	}
}

func cleanPost(title, content string) (string, string, error) {
	title, content = plainText(title), plainText(content)
	if err := checkLength("title", title, 1, maxTitleLength); err != nil {
		return "", "", err
	}
	if err := checkLength("content", content, 1, maxContentLength); err != nil {
		return "", "", err
	}
	return title, content, nil
}

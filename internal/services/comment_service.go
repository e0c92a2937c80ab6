package services

import (
	"context"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/pkg/apperror"
	"github.com/anonto42/social-graph/backend/pkg/cursor"
)

type CommentService struct {
	store    *repositories.Store
	notifier *NotificationService
}

func NewCommentService(store *repositories.Store, notifier *NotificationService) *CommentService {
	return &CommentService{store: store, notifier: notifier}
}

// Add stores a comment on postID and notifies the post author, unless the
// author is commenting on their own post. The notification targets the
// new comment.
func (s *CommentService) Add(ctx context.Context, postID, authorID uint, content string) (*models.Comment, error) {
	content = plainText(content)
	if err := checkLength("content", content, models.CommentMinLength, models.CommentMaxLength); err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: postID, AuthorID: authorID, Content: content}
	var event *models.Notification
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		post, err := tx.Posts.GetPostByID(ctx, postID)
		if err != nil {
			return err
		}
		if err := tx.Comments.CreateComment(ctx, comment); err != nil {
			return err
		}
		event, err = s.notifier.record(ctx, tx, post.AuthorID, authorID, models.VerbCommented, models.CommentTarget(comment.ID))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifier.publish(ctx, event)
	return s.store.Comments.GetCommentByID(ctx, comment.ID)
}

// Update edits a comment owned by authorID.
func (s *CommentService) Update(ctx context.Context, commentID, authorID uint, content string) (*models.Comment, error) {
	content = plainText(content)
	if err := checkLength("content", content, models.CommentMinLength, models.CommentMaxLength); err != nil {
		return nil, err
	}
	ok, err := s.store.Comments.UpdateComment(ctx, commentID, authorID, content)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.New(apperror.ErrNotFoundOrForbidden, "comment not found")
	}
	return s.store.Comments.GetCommentByID(ctx, commentID)
}

func (s *CommentService) Delete(ctx context.Context, commentID, authorID uint) error {
	ok, err := s.store.Comments.DeleteComment(ctx, commentID, authorID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.New(apperror.ErrNotFoundOrForbidden, "comment not found")
	}
	return nil
}

// ListByPost pages through a post's comments, newest first. A non-zero
// authorID keeps only that user's comments.
func (s *CommentService) ListByPost(ctx context.Context, postID, authorID uint, after string, limit int) (cursor.Page[models.Comment], error) {
	pos, err := cursor.Decode(after)
	if err != nil {
		return cursor.Page[models.Comment]{}, err
	}
	if _, err := s.store.Posts.GetPostByID(ctx, postID); err != nil {
		return cursor.Page[models.Comment]{}, err
	}
	limit = cursor.ClampLimit(limit)
	rows, err := s.store.Comments.GetCommentsByPostID(ctx, postID, authorID, pos, limit+1)
	if err != nil {
		return cursor.Page[models.Comment]{}, err
	}
	return cursor.Paginate(rows, limit, func(c models.Comment) cursor.Position {
		return cursor.Position{CreatedAt: c.CreatedAt, ID: c.ID}
	}), nil
}

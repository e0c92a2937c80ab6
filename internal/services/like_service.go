package services

import (
	"context"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/pkg/apperror"
)

type LikeService struct {
	store    *repositories.Store
	notifier *NotificationService
}

func NewLikeService(store *repositories.Store, notifier *NotificationService) *LikeService {
	return &LikeService{store: store, notifier: notifier}
}

// Toggle flips userID's like on postID in one transaction. The delete runs
// first; only when nothing was deleted is an insert attempted, guarded by
// the unique (user_id, post_id) index. If that insert loses to a concurrent
// toggle the call fails with ErrConflict and the caller may retry.
func (s *LikeService) Toggle(ctx context.Context, userID, postID uint) (models.LikeState, error) {
	var state models.LikeState
	var event *models.Notification
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		post, err := tx.Posts.GetPostByID(ctx, postID)
		if err != nil {
			return err
		}

		removed, err := tx.Likes.DeleteLike(ctx, userID, postID)
		if err != nil {
			return err
		}
		if !removed {
			created, err := tx.Likes.CreateLike(ctx, userID, postID)
			if err != nil {
				return err
			}
			if !created {
				return apperror.New(apperror.ErrConflict, "like was toggled concurrently, retry")
			}
			state.Liked = true
			event, err = s.notifier.record(ctx, tx, post.AuthorID, userID, models.VerbLiked, models.PostTarget(postID))
			if err != nil {
				return err
			}
		}

		state.LikeCount, err = tx.Likes.GetLikesCountByPostID(ctx, postID)
		return err
	})
	if err != nil {
		return models.LikeState{}, err
	}
	s.notifier.publish(ctx, event)
	return state, nil
}

// Like is the idempotent "set" form of Toggle. Liking twice notifies once.
func (s *LikeService) Like(ctx context.Context, userID, postID uint) (models.LikeState, error) {
	state := models.LikeState{Liked: true}
	var event *models.Notification
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		post, err := tx.Posts.GetPostByID(ctx, postID)
		if err != nil {
			return err
		}
		created, err := tx.Likes.CreateLike(ctx, userID, postID)
		if err != nil {
			return err
		}
		if created {
			event, err = s.notifier.record(ctx, tx, post.AuthorID, userID, models.VerbLiked, models.PostTarget(postID))
			if err != nil {
				return err
			}
		}
		state.LikeCount, err = tx.Likes.GetLikesCountByPostID(ctx, postID)
		return err
	})
	if err != nil {
		return models.LikeState{}, err
	}
	s.notifier.publish(ctx, event)
	return state, nil
}

// Unlike removes the like if present. Unliking a post never liked is a no-op.
func (s *LikeService) Unlike(ctx context.Context, userID, postID uint) (models.LikeState, error) {
	if _, err := s.store.Posts.GetPostByID(ctx, postID); err != nil {
		return models.LikeState{}, err
	}
	if _, err := s.store.Likes.DeleteLike(ctx, userID, postID); err != nil {
		return models.LikeState{}, err
	}
	count, err := s.store.Likes.GetLikesCountByPostID(ctx, postID)
	if err != nil {
		return models.LikeState{}, err
	}
	return models.LikeState{Liked: false, LikeCount: count}, nil
}

func (s *LikeService) Count(ctx context.Context, postID uint) (int64, error) {
	return s.store.Likes.GetLikesCountByPostID(ctx, postID)
}

func (s *LikeService) HasLiked(ctx context.Context, userID, postID uint) (bool, error) {
	return s.store.Likes.HasUserLikedPost(ctx, userID, postID)
}

package services

import (
	"context"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/pkg/apperror"
)

type FollowService struct {
	store    *repositories.Store
	notifier *NotificationService
}

func NewFollowService(store *repositories.Store, notifier *NotificationService) *FollowService {
	return &FollowService{store: store, notifier: notifier}
}

// Follow inserts the actor -> target edge. Only the call that creates the
// edge notifies target; repeats report created=false.
func (s *FollowService) Follow(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == targetID {
		return false, apperror.ErrSelfFollow
	}

	var created bool
	var event *models.Notification
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		exists, err := tx.Users.Exists(ctx, targetID)
		if err != nil {
			return err
		}
		if !exists {
			return apperror.New(apperror.ErrNotFoundOrForbidden, "user not found")
		}
		created, err = tx.Follows.CreateFollow(ctx, actorID, targetID)
		if err != nil || !created {
			return err
		}
		event, err = s.notifier.record(ctx, tx, targetID, actorID, models.VerbFollowed, models.UserTarget(actorID))
		return err
	})
	if err != nil {
		return false, err
	}
	s.notifier.publish(ctx, event)
	return created, nil
}

// Unfollow removes the edge if present. A missing edge is not an error.
func (s *FollowService) Unfollow(ctx context.Context, actorID, targetID uint) error {
	if actorID == targetID {
		return apperror.ErrSelfFollow
	}
	_, err := s.store.Follows.DeleteFollow(ctx, actorID, targetID)
	return err
}

func (s *FollowService) IsFollowing(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == 0 || actorID == targetID {
		return false, nil
	}
	return s.store.Follows.IsFollowing(ctx, actorID, targetID)
}

func (s *FollowService) FollowersCount(ctx context.Context, userID uint) (int64, error) {
	return s.store.Follows.GetFollowersCount(ctx, userID)
}

func (s *FollowService) FollowingCount(ctx context.Context, userID uint) (int64, error) {
	return s.store.Follows.GetFollowingCount(ctx, userID)
}

func (s *FollowService) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Follows.GetFollowers(ctx, userID)
}

func (s *FollowService) Following(ctx context.Context, userID uint) ([]models.User, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Follows.GetFollowing(ctx, userID)
}

func (s *FollowService) requireUser(ctx context.Context, userID uint) error {
	exists, err := s.store.Users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.New(apperror.ErrNotFoundOrForbidden, "user not found")
	}
	return nil
}

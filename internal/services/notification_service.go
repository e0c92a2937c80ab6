package services

import (
	"context"
	"encoding/json"
	"iter"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/pkg/apperror"
	"github.com/anonto42/social-graph/backend/pkg/cursor"
	"github.com/anonto42/social-graph/backend/pkg/logger"
	"github.com/anonto42/social-graph/backend/pkg/realtime"
)

// ListOptions selects a page of a recipient's notifications.
type ListOptions struct {
	UnreadOnly bool
	Cursor     string
	Limit      int
}

type NotificationService struct {
	store  *repositories.Store
	broker realtime.Broker
}

// NewNotificationService builds the service. broker may be nil, in which
// case notifications are only persisted.
func NewNotificationService(store *repositories.Store, broker realtime.Broker) *NotificationService {
	return &NotificationService{store: store, broker: broker}
}

// Notify records one event for recipient and publishes it. A user's own
// actions never notify themselves: that case returns (nil, nil).
func (s *NotificationService) Notify(ctx context.Context, recipientID, actorID uint, verb models.Verb, target models.Target) (*models.Notification, error) {
	n, err := s.record(ctx, s.store, recipientID, actorID, verb, target)
	if err != nil || n == nil {
		return n, err
	}
	s.publish(ctx, n)
	return n, nil
}

// record writes through tx so the event commits with its triggering change.
func (s *NotificationService) record(ctx context.Context, tx *repositories.Store, recipientID, actorID uint, verb models.Verb, target models.Target) (*models.Notification, error) {
	if recipientID == actorID {
		return nil, nil
	}
	if !verb.Valid() {
		return nil, apperror.Validation("unknown notification verb " + string(verb))
	}
	if !target.Kind.Valid() || target.ID == 0 {
		return nil, apperror.Validation("invalid notification target " + target.String())
	}
	n := &models.Notification{
		RecipientID: recipientID,
		ActorID:     actorID,
		Verb:        verb,
		Target:      target,
	}
	if err := tx.Notifications.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// publish is best effort; the stored row is the source of truth.
func (s *NotificationService) publish(ctx context.Context, n *models.Notification) {
	if s.broker == nil || n == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		logger.Errorf("marshal notification %d: %v", n.ID, err)
		return
	}
	if err := s.broker.Publish(ctx, n.RecipientID, payload); err != nil {
		logger.Warnf("publish notification %d to user %d: %v", n.ID, n.RecipientID, err)
	}
}

// List returns one page, newest first.
func (s *NotificationService) List(ctx context.Context, recipientID uint, opts ListOptions) (cursor.Page[models.Notification], error) {
	after, err := cursor.Decode(opts.Cursor)
	if err != nil {
		return cursor.Page[models.Notification]{}, err
	}
	limit := cursor.ClampLimit(opts.Limit)
	rows, err := s.store.Notifications.GetByRecipientID(ctx, recipientID, opts.UnreadOnly, after, limit+1)
	if err != nil {
		return cursor.Page[models.Notification]{}, err
	}
	return cursor.Paginate(rows, limit, notificationPosition), nil
}

// All lazily walks every notification of recipient, newest first, fetching
// a page at a time. Iteration stops at the first error.
func (s *NotificationService) All(ctx context.Context, recipientID uint, unreadOnly bool) iter.Seq2[models.Notification, error] {
	return func(yield func(models.Notification, error) bool) {
		var after cursor.Position
		for {
			rows, err := s.store.Notifications.GetByRecipientID(ctx, recipientID, unreadOnly, after, cursor.MaxLimit)
			if err != nil {
				yield(models.Notification{}, err)
				return
			}
			for _, n := range rows {
				if !yield(n, nil) {
					return
				}
			}
			if len(rows) < cursor.MaxLimit {
				return
			}
			after = notificationPosition(rows[len(rows)-1])
		}
	}
}

// MarkRead fails with ErrNotFoundOrForbidden both for missing ids and for
// notifications addressed to someone else.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, notificationID uint) error {
	return s.setRead(ctx, recipientID, notificationID, true)
}

func (s *NotificationService) MarkUnread(ctx context.Context, recipientID, notificationID uint) error {
	return s.setRead(ctx, recipientID, notificationID, false)
}

func (s *NotificationService) setRead(ctx context.Context, recipientID, notificationID uint, read bool) error {
	ok, err := s.store.Notifications.SetRead(ctx, recipientID, notificationID, read)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.New(apperror.ErrNotFoundOrForbidden, "notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	return s.store.Notifications.MarkAllAsRead(ctx, recipientID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	return s.store.Notifications.GetUnreadCount(ctx, recipientID)
}

// Stream subscribes to live notifications of recipient.
func (s *NotificationService) Stream(ctx context.Context, recipientID uint) (<-chan []byte, func(), error) {
	if s.broker == nil {
		return nil, nil, apperror.New(apperror.ErrUnavailable, "realtime notifications are not enabled")
	}
	return s.broker.Subscribe(ctx, recipientID)
}

func notificationPosition(n models.Notification) cursor.Position {
	return cursor.Position{CreatedAt: n.CreatedAt, ID: n.ID}
}

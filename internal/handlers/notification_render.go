package handlers

import (
	"context"
	"unicode/utf8"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/repositories"
)

const commentPreviewRunes = 50

var verbText = map[models.Verb]string{
	models.VerbFollowed:  "started following you",
	models.VerbLiked:     "liked your post",
	models.VerbCommented: "commented on your post",
}

// NotificationView is what clients receive for one notification.
type NotificationView struct {
	models.Notification
	Actor           models.UserCompact `json:"actor"`
	Text            string             `json:"text"`
	TargetDisplay   string             `json:"target_display"`
	TargetAvailable bool               `json:"target_available"`
}

// targetResolver returns a display string for each id that still exists.
type targetResolver func(ctx context.Context, ids []uint) (map[uint]string, error)

type notificationRenderer struct {
	users     repositories.UserRepository
	resolvers map[models.TargetKind]targetResolver
}

func newNotificationRenderer(store *repositories.Store) *notificationRenderer {
	r := &notificationRenderer{users: store.Users}
	r.resolvers = map[models.TargetKind]targetResolver{
		models.TargetPost: func(ctx context.Context, ids []uint) (map[uint]string, error) {
			posts, err := store.Posts.GetPostsByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			out := make(map[uint]string, len(posts))
			for _, p := range posts {
				out[p.ID] = "Post: " + p.Title
			}
			return out, nil
		},
		models.TargetComment: func(ctx context.Context, ids []uint) (map[uint]string, error) {
			comments, err := store.Comments.GetCommentsByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			out := make(map[uint]string, len(comments))
			for id, c := range comments {
				out[id] = "Comment: " + preview(c.Content, commentPreviewRunes)
			}
			return out, nil
		},
		models.TargetUser: func(ctx context.Context, ids []uint) (map[uint]string, error) {
			users, err := store.Users.GetUsersByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			out := make(map[uint]string, len(users))
			for id, u := range users {
				out[id] = u.Username
			}
			return out, nil
		},
	}
	return r
}

// render batches one lookup per target kind plus one for actors. Targets
// that no longer exist render as unavailable.
func (r *notificationRenderer) render(ctx context.Context, notifications []models.Notification) ([]NotificationView, error) {
	views := make([]NotificationView, len(notifications))
	if len(notifications) == 0 {
		return views, nil
	}

	actorIDs := make([]uint, 0, len(notifications))
	byKind := map[models.TargetKind][]uint{}
	for _, n := range notifications {
		actorIDs = append(actorIDs, n.ActorID)
		byKind[n.Target.Kind] = append(byKind[n.Target.Kind], n.Target.ID)
	}

	actors, err := r.users.GetUsersByIDs(ctx, actorIDs)
	if err != nil {
		return nil, err
	}
	displays := map[models.TargetKind]map[uint]string{}
	for kind, ids := range byKind {
		resolve, ok := r.resolvers[kind]
		if !ok {
			continue
		}
		if displays[kind], err = resolve(ctx, ids); err != nil {
			return nil, err
		}
	}

	for i, n := range notifications {
		v := NotificationView{Notification: n, Text: verbText[n.Verb], TargetDisplay: "unavailable"}
		if actor, ok := actors[n.ActorID]; ok {
			v.Actor = actor.ToCompact()
		}
		if d, ok := displays[n.Target.Kind][n.Target.ID]; ok {
			v.TargetDisplay = d
			v.TargetAvailable = true
		}
		views[i] = v
	}
	return views, nil
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

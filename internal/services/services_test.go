package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/internal/services"
	"github.com/anonto42/social-graph/backend/internal/testutil"
	"github.com/anonto42/social-graph/backend/pkg/apperror"
	"github.com/anonto42/social-graph/backend/pkg/realtime"
	"gorm.io/gorm"
)

type env struct {
	db       *gorm.DB
	store    *repositories.Store
	broker   realtime.Broker
	notify   *services.NotificationService
	follows  *services.FollowService
	likes    *services.LikeService
	comments *services.CommentService
	feed     *services.FeedService
	posts    *services.PostService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	store := repositories.NewStore(db)
	broker := realtime.NewMemoryBroker()
	notify := services.NewNotificationService(store, broker)
	return &env{
		db:       db,
		store:    store,
		broker:   broker,
		notify:   notify,
		follows:  services.NewFollowService(store, notify),
		likes:    services.NewLikeService(store, notify),
		comments: services.NewCommentService(store, notify),
		feed:     services.NewFeedService(store, nil),
		posts:    services.NewPostService(store, nil, nil),
	}
}

func (e *env) notificationsFor(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	var out []models.Notification
	if err := e.db.Where("recipient_id = ?", userID).Order("id").Find(&out).Error; err != nil {
		t.Fatal(err)
	}
	return out
}

func TestFollowTwiceCreatesOneEdgeAndOneNotification(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	created, err := e.follows.Follow(ctx, a.ID, b.ID)
	if err != nil || !created {
		t.Fatalf("Follow() = %v, %v", created, err)
	}
	created, err = e.follows.Follow(ctx, a.ID, b.ID)
	if err != nil || created {
		t.Fatalf("second Follow() = %v, %v; want false, nil", created, err)
	}

	if n := testutil.Count(t, e.db, &models.Follow{}, ""); n != 1 {
		t.Errorf("edges = %d, want 1", n)
	}
	notes := e.notificationsFor(t, b.ID)
	if len(notes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notes))
	}
	if notes[0].Verb != models.VerbFollowed || notes[0].ActorID != a.ID || notes[0].Target != models.UserTarget(a.ID) {
		t.Errorf("notification = %+v", notes[0])
	}
}

func TestFollowErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")

	if _, err := e.follows.Follow(ctx, a.ID, a.ID); !errors.Is(err, apperror.ErrSelfFollow) {
		t.Errorf("self follow error = %v", err)
	}
	if _, err := e.follows.Follow(ctx, a.ID, 9999); !errors.Is(err, apperror.ErrNotFoundOrForbidden) {
		t.Errorf("missing target error = %v", err)
	}
	if err := e.follows.Unfollow(ctx, a.ID, a.ID); !errors.Is(err, apperror.ErrSelfFollow) {
		t.Errorf("self unfollow error = %v", err)
	}
}

func TestUnfollowIsSilentAndDoesNotNotify(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	if err := e.follows.Unfollow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Unfollow() of missing edge = %v", err)
	}
	e.follows.Follow(ctx, a.ID, b.ID)
	if err := e.follows.Unfollow(ctx, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	if n := testutil.Count(t, e.db, &models.Follow{}, ""); n != 0 {
		t.Errorf("edges = %d", n)
	}
	if notes := e.notificationsFor(t, b.ID); len(notes) != 1 {
		t.Errorf("notifications = %d, want only the follow", len(notes))
	}
	count, _ := e.follows.FollowersCount(ctx, b.ID)
	if count != 0 {
		t.Errorf("FollowersCount() = %d", count)
	}
}

func TestToggleLikeTwice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	p := testutil.CreatePost(t, e.db, b.ID, "Hello")

	first, err := e.likes.Toggle(ctx, a.ID, p.ID)
	if err != nil || !first.Liked || first.LikeCount != 1 {
		t.Fatalf("first Toggle() = %+v, %v", first, err)
	}
	second, err := e.likes.Toggle(ctx, a.ID, p.ID)
	if err != nil || second.Liked || second.LikeCount != 0 {
		t.Fatalf("second Toggle() = %+v, %v", second, err)
	}
	if n := testutil.Count(t, e.db, &models.Like{}, ""); n != 0 {
		t.Errorf("like rows = %d, want 0", n)
	}
	if notes := e.notificationsFor(t, b.ID); len(notes) != 1 || notes[0].Verb != models.VerbLiked {
		t.Errorf("notifications = %+v, want one liked", notes)
	}
}

func TestLikeOwnPostDoesNotNotify(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	p := testutil.CreatePost(t, e.db, a.ID, "mine")

	state, err := e.likes.Toggle(ctx, a.ID, p.ID)
	if err != nil || !state.Liked {
		t.Fatalf("Toggle() = %+v, %v", state, err)
	}
	if n := testutil.Count(t, e.db, &models.Notification{}, ""); n != 0 {
		t.Errorf("self like produced %d notifications", n)
	}
}

func TestLikeAndUnlikeAreIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	p := testutil.CreatePost(t, e.db, b.ID, "post")

	for i := 0; i < 2; i++ {
		state, err := e.likes.Like(ctx, a.ID, p.ID)
		if err != nil || !state.Liked || state.LikeCount != 1 {
			t.Fatalf("Like() #%d = %+v, %v", i, state, err)
		}
	}
	if notes := e.notificationsFor(t, b.ID); len(notes) != 1 {
		t.Errorf("notifications = %d, want 1", len(notes))
	}
	for i := 0; i < 2; i++ {
		state, err := e.likes.Unlike(ctx, a.ID, p.ID)
		if err != nil || state.Liked || state.LikeCount != 0 {
			t.Fatalf("Unlike() #%d = %+v, %v", i, state, err)
		}
	}
	if _, err := e.likes.Toggle(ctx, a.ID, 4242); !errors.Is(err, apperror.ErrNotFoundOrForbidden) {
		t.Errorf("Toggle() on missing post error = %v", err)
	}
}

func TestNotifySelfIsSuppressed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, e.db, "alice")

	n, err := e.notify.Notify(ctx, u.ID, u.ID, models.VerbLiked, models.PostTarget(1))
	if err != nil || n != nil {
		t.Fatalf("Notify(self) = %v, %v; want nil, nil", n, err)
	}
	if c := testutil.Count(t, e.db, &models.Notification{}, ""); c != 0 {
		t.Errorf("rows = %d", c)
	}
}

func TestNotifyValidatesVocabulary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	if _, err := e.notify.Notify(ctx, a.ID, b.ID, models.Verb("poked"), models.UserTarget(b.ID)); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("unknown verb error = %v", err)
	}
	if _, err := e.notify.Notify(ctx, a.ID, b.ID, models.VerbLiked, models.Target{Kind: "story", ID: 1}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("unknown target kind error = %v", err)
	}
}

func TestNotifyPublishesToRecipient(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	stream, stop, err := e.notify.Stream(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer stop()

	if _, err := e.follows.Follow(ctx, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	select {
	case payload := <-stream:
		var n models.Notification
		if err := json.Unmarshal(payload, &n); err != nil {
			t.Fatal(err)
		}
		if n.Verb != models.VerbFollowed || n.ActorID != a.ID || n.ID == 0 {
			t.Errorf("published %+v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("nothing published")
	}
}

func TestMarkReadDoesNotLeakExistence(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	c := testutil.CreateUser(t, e.db, "carol")
	n, err := e.notify.Notify(ctx, a.ID, b.ID, models.VerbFollowed, models.UserTarget(b.ID))
	if err != nil {
		t.Fatal(err)
	}

	foreign := e.notify.MarkRead(ctx, c.ID, n.ID)
	missing := e.notify.MarkRead(ctx, c.ID, n.ID+1000)
	if !errors.Is(foreign, apperror.ErrNotFoundOrForbidden) || !errors.Is(missing, apperror.ErrNotFoundOrForbidden) {
		t.Fatalf("errors = %v / %v", foreign, missing)
	}
	if foreign.Error() != missing.Error() {
		t.Errorf("foreign and missing differ: %q vs %q", foreign, missing)
	}

	if err := e.notify.MarkRead(ctx, a.ID, n.ID); err != nil {
		t.Fatal(err)
	}
	if count, _ := e.notify.UnreadCount(ctx, a.ID); count != 0 {
		t.Errorf("unread = %d", count)
	}
	if err := e.notify.MarkUnread(ctx, a.ID, n.ID); err != nil {
		t.Fatal(err)
	}
	if count, _ := e.notify.UnreadCount(ctx, a.ID); count != 1 {
		t.Errorf("unread after MarkUnread = %d", count)
	}
	if updated, _ := e.notify.MarkAllRead(ctx, a.ID); updated != 1 {
		t.Errorf("MarkAllRead() = %d", updated)
	}
}

func TestListNotificationsPagesNewestFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	var actors []*models.User
	for i := 0; i < 5; i++ {
		u := testutil.CreateUser(t, e.db, fmt.Sprintf("fan%d", i))
		actors = append(actors, u)
		if _, err := e.follows.Follow(ctx, u.ID, a.ID); err != nil {
			t.Fatal(err)
		}
	}
	readOne := e.notificationsFor(t, a.ID)[0]
	e.notify.MarkRead(ctx, a.ID, readOne.ID)

	page1, err := e.notify.List(ctx, a.ID, services.ListOptions{Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(page1.Items) != 3 || page1.NextCursor == "" {
		t.Fatalf("page1 = %d items, cursor %q", len(page1.Items), page1.NextCursor)
	}
	if page1.Items[0].ActorID != actors[4].ID {
		t.Errorf("newest first: got actor %d", page1.Items[0].ActorID)
	}
	page2, _ := e.notify.List(ctx, a.ID, services.ListOptions{Limit: 3, Cursor: page1.NextCursor})
	if len(page2.Items) != 2 || page2.NextCursor != "" {
		t.Fatalf("page2 = %d items, cursor %q", len(page2.Items), page2.NextCursor)
	}

	unread, _ := e.notify.List(ctx, a.ID, services.ListOptions{UnreadOnly: true})
	if len(unread.Items) != 4 {
		t.Errorf("unread = %d, want 4", len(unread.Items))
	}

	if _, err := e.notify.List(ctx, a.ID, services.ListOptions{Cursor: "%%%"}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("bad cursor error = %v", err)
	}
}

func TestAllIteratesLazilyAcrossPages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	const total = 57
	rows := make([]models.Notification, total)
	for i := range rows {
		rows[i] = models.Notification{RecipientID: a.ID, ActorID: b.ID, Verb: models.VerbLiked, Target: models.PostTarget(uint(i + 1))}
	}
	if err := e.db.Create(&rows).Error; err != nil {
		t.Fatal(err)
	}

	seen := 0
	lastID := uint(1 << 31)
	for n, err := range e.notify.All(ctx, a.ID, false) {
		if err != nil {
			t.Fatal(err)
		}
		if n.ID >= lastID {
			t.Fatalf("out of order: %d after %d", n.ID, lastID)
		}
		lastID = n.ID
		seen++
	}
	if seen != total {
		t.Errorf("iterated %d, want %d", seen, total)
	}

	taken := 0
	for range e.notify.All(ctx, a.ID, false) {
		taken++
		if taken == 3 {
			break
		}
	}
	if taken != 3 {
		t.Errorf("early break yielded %d", taken)
	}
}

func TestHomeFeedOnlyFollowedAuthors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, e.db, "reader")
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	c := testutil.CreateUser(t, e.db, "carol")

	empty, err := e.feed.HomeFeed(ctx, u.ID, "", 10)
	if err != nil || len(empty.Items) != 0 {
		t.Fatalf("feed of user following no one = %+v, %v", empty, err)
	}

	e.follows.Follow(ctx, u.ID, a.ID)
	e.follows.Follow(ctx, u.ID, b.ID)
	pa := testutil.CreatePost(t, e.db, a.ID, "from alice")
	testutil.CreatePost(t, e.db, c.ID, "from carol")
	pb := testutil.CreatePost(t, e.db, b.ID, "from bob")
	e.likes.Toggle(ctx, u.ID, pa.ID)

	page, err := e.feed.HomeFeed(ctx, u.ID, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("feed = %d items, want 2", len(page.Items))
	}
	if page.Items[0].ID != pb.ID || page.Items[1].ID != pa.ID {
		t.Errorf("order = %d,%d; want %d,%d", page.Items[0].ID, page.Items[1].ID, pb.ID, pa.ID)
	}
	if !page.Items[1].IsLiked || page.Items[1].LikesCount != 1 || page.Items[0].IsLiked {
		t.Errorf("like decoration wrong: %+v", page.Items)
	}
	if page.Items[0].Author.Username != "bob" {
		t.Errorf("author = %+v", page.Items[0].Author)
	}
}

func TestHomeFeedCursorSurvivesInserts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, e.db, "reader")
	a := testutil.CreateUser(t, e.db, "alice")
	e.follows.Follow(ctx, u.ID, a.ID)

	var ids []uint
	for i := 0; i < 5; i++ {
		ids = append(ids, testutil.CreatePost(t, e.db, a.ID, fmt.Sprintf("p%d", i)).ID)
	}

	page1, err := e.feed.HomeFeed(ctx, u.ID, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := summaryIDs(page1.Items); !equalIDs(got, []uint{ids[4], ids[3]}) {
		t.Fatalf("page1 = %v", got)
	}

	// a new post lands between the two requests
	testutil.CreatePost(t, e.db, a.ID, "late")

	page2, err := e.feed.HomeFeed(ctx, u.ID, page1.NextCursor, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := summaryIDs(page2.Items); !equalIDs(got, []uint{ids[2], ids[1]}) {
		t.Errorf("page2 = %v, want %v", got, []uint{ids[2], ids[1]})
	}
	page3, _ := e.feed.HomeFeed(ctx, u.ID, page2.NextCursor, 2)
	if got := summaryIDs(page3.Items); !equalIDs(got, []uint{ids[0]}) || page3.NextCursor != "" {
		t.Errorf("page3 = %v, cursor %q", got, page3.NextCursor)
	}
}

func TestAddComment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	p := testutil.CreatePost(t, e.db, b.ID, "post")

	for _, body := range []string{"", "  ", "hi", "<b></b>"} {
		if _, err := e.comments.Add(ctx, p.ID, a.ID, body); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Add(%q) error = %v, want ErrValidation", body, err)
		}
	}
	if _, err := e.comments.Add(ctx, 999, a.ID, "nice post"); !errors.Is(err, apperror.ErrNotFoundOrForbidden) {
		t.Errorf("Add() on missing post error = %v", err)
	}

	c, err := e.comments.Add(ctx, p.ID, a.ID, "<script>x</script>nice post")
	if err != nil {
		t.Fatal(err)
	}
	if c.Content != "nice post" || c.Author == nil || c.Author.Username != "alice" {
		t.Errorf("comment = %+v", c)
	}
	notes := e.notificationsFor(t, b.ID)
	if len(notes) != 1 || notes[0].Verb != models.VerbCommented || notes[0].Target != models.CommentTarget(c.ID) {
		t.Errorf("notifications = %+v", notes)
	}

	if _, err := e.comments.Add(ctx, p.ID, b.ID, "thanks all"); err != nil {
		t.Fatal(err)
	}
	if notes := e.notificationsFor(t, b.ID); len(notes) != 1 {
		t.Errorf("author commenting on own post notified: %d", len(notes))
	}
}

func TestCommentOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	p := testutil.CreatePost(t, e.db, a.ID, "post")
	c, err := e.comments.Add(ctx, p.ID, a.ID, "first!")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.comments.Update(ctx, c.ID, b.ID, "hijacked"); !errors.Is(err, apperror.ErrNotFoundOrForbidden) {
		t.Errorf("foreign Update() error = %v", err)
	}
	if err := e.comments.Delete(ctx, c.ID, b.ID); !errors.Is(err, apperror.ErrNotFoundOrForbidden) {
		t.Errorf("foreign Delete() error = %v", err)
	}
	updated, err := e.comments.Update(ctx, c.ID, a.ID, "edited")
	if err != nil || updated.Content != "edited" {
		t.Fatalf("Update() = %+v, %v", updated, err)
	}

	page, err := e.comments.ListByPost(ctx, p.ID, 0, "", 10)
	if err != nil || len(page.Items) != 1 {
		t.Fatalf("ListByPost() = %+v, %v", page, err)
	}
	if err := e.comments.Delete(ctx, c.ID, a.ID); err != nil {
		t.Fatal(err)
	}
}

// A follows B; B posts; A sees it; A likes and unlikes.
func TestFollowPostLikeScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "a")
	b := testutil.CreateUser(t, e.db, "b")

	if _, err := e.follows.Follow(ctx, a.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	created, err := e.posts.Create(ctx, b.ID, models.CreatePostRequest{Title: "Hello", Content: "first post"})
	if err != nil {
		t.Fatal(err)
	}

	feed, err := e.feed.HomeFeed(ctx, a.ID, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Items) != 1 || feed.Items[0].Title != "Hello" {
		t.Fatalf("A's feed = %+v", feed.Items)
	}

	// b's only notification so far is the follow; the post itself notifies no one
	baseline := len(e.notificationsFor(t, b.ID))
	if baseline != 1 {
		t.Fatalf("b notifications before like = %d", baseline)
	}

	state, err := e.likes.Toggle(ctx, a.ID, created.ID)
	if err != nil || !state.Liked {
		t.Fatalf("like = %+v, %v", state, err)
	}
	notes := e.notificationsFor(t, b.ID)
	if len(notes) != baseline+1 || notes[len(notes)-1].Verb != models.VerbLiked {
		t.Fatalf("after like: %+v", notes)
	}

	state, err = e.likes.Toggle(ctx, a.ID, created.ID)
	if err != nil || state.Liked || state.LikeCount != 0 {
		t.Fatalf("unlike = %+v, %v", state, err)
	}
	if n := len(e.notificationsFor(t, b.ID)); n != baseline+1 {
		t.Errorf("unlike notified: %d", n)
	}
	if c, _ := e.likes.Count(ctx, created.ID); c != 0 {
		t.Errorf("like count = %d", c)
	}
}

func summaryIDs(items []models.PostSummary) []uint {
	ids := make([]uint, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func equalIDs(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListByPostFiltersByAuthor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	p := testutil.CreatePost(t, e.db, a.ID, "hello")

	for _, c := range []struct {
		author uint
		body   string
	}{{a.ID, "first from alice"}, {b.ID, "first from bob"}, {a.ID, "second from alice"}} {
		if _, err := e.comments.Add(ctx, p.ID, c.author, c.body); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name     string
		authorID uint
		want     int
	}{
		{"all authors", 0, 3},
		{"alice only", a.ID, 2},
		{"bob only", b.ID, 1},
		{"no comments", 999, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := e.comments.ListByPost(ctx, p.ID, tt.authorID, "", 10)
			if err != nil {
				t.Fatal(err)
			}
			if len(page.Items) != tt.want {
				t.Fatalf("items = %d, want %d", len(page.Items), tt.want)
			}
			for _, c := range page.Items {
				if tt.authorID != 0 && c.AuthorID != tt.authorID {
					t.Errorf("comment %d by %d, want %d", c.ID, c.AuthorID, tt.authorID)
				}
			}
		})
	}
}

package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/internal/testutil"
	"github.com/anonto42/social-graph/backend/pkg/apperror"
	"github.com/anonto42/social-graph/backend/pkg/cursor"
)

func TestCreateFollowIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewPostgresFollowRepository(db)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	created, err := repo.CreateFollow(ctx, a.ID, b.ID)
	if err != nil || !created {
		t.Fatalf("first CreateFollow() = %v, %v", created, err)
	}
	created, err = repo.CreateFollow(ctx, a.ID, b.ID)
	if err != nil || created {
		t.Fatalf("second CreateFollow() = %v, %v; want false, nil", created, err)
	}
	if n := testutil.Count(t, db, &models.Follow{}, ""); n != 1 {
		t.Errorf("follow rows = %d, want 1", n)
	}

	followers, _ := repo.GetFollowersCount(ctx, b.ID)
	following, _ := repo.GetFollowingCount(ctx, a.ID)
	if followers != 1 || following != 1 {
		t.Errorf("counts = %d/%d, want 1/1", followers, following)
	}
	if back, _ := repo.IsFollowing(ctx, b.ID, a.ID); back {
		t.Error("follow edges must be directed")
	}
}

func TestFollowCheckRejectsSelfEdge(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewPostgresFollowRepository(db)
	a := testutil.CreateUser(t, db, "alice")

	if _, err := repo.CreateFollow(context.Background(), a.ID, a.ID); err == nil {
		t.Fatal("expected check constraint violation")
	}
}

func TestDeleteFollowMissingEdge(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewPostgresFollowRepository(db)
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	removed, err := repo.DeleteFollow(context.Background(), a.ID, b.ID)
	if err != nil || removed {
		t.Errorf("DeleteFollow() = %v, %v; want false, nil", removed, err)
	}
}

func TestGetFollowersAndFollowing(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewPostgresFollowRepository(db)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")
	c := testutil.CreateUser(t, db, "carol")

	repo.CreateFollow(ctx, b.ID, a.ID)
	repo.CreateFollow(ctx, c.ID, a.ID)
	repo.CreateFollow(ctx, a.ID, c.ID)

	followers, err := repo.GetFollowers(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(followers) != 2 || followers[0].Username != "bob" || followers[1].Username != "carol" {
		t.Errorf("followers = %+v", followers)
	}
	following, _ := repo.GetFollowing(ctx, a.ID)
	if len(following) != 1 || following[0].ID != c.ID {
		t.Errorf("following = %+v", following)
	}
}

func TestLikeRowsAreUnique(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewPostgresLikeRepository(db)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")
	p := testutil.CreatePost(t, db, a.ID, "hello")
	q := testutil.CreatePost(t, db, a.ID, "again")

	if ok, err := repo.CreateLike(ctx, b.ID, p.ID); err != nil || !ok {
		t.Fatalf("CreateLike() = %v, %v", ok, err)
	}
	if ok, err := repo.CreateLike(ctx, b.ID, p.ID); err != nil || ok {
		t.Fatalf("duplicate CreateLike() = %v, %v", ok, err)
	}
	repo.CreateLike(ctx, a.ID, p.ID)

	counts, err := repo.CountByPostIDs(ctx, []uint{p.ID, q.ID})
	if err != nil {
		t.Fatal(err)
	}
	if counts[p.ID] != 2 || counts[q.ID] != 0 {
		t.Errorf("counts = %v", counts)
	}
	liked, _ := repo.LikedPostIDs(ctx, b.ID, []uint{p.ID, q.ID})
	if !liked[p.ID] || liked[q.ID] {
		t.Errorf("liked = %v", liked)
	}

	if removed, _ := repo.DeleteLike(ctx, b.ID, p.ID); !removed {
		t.Error("expected like removed")
	}
	if has, _ := repo.HasUserLikedPost(ctx, b.ID, p.ID); has {
		t.Error("like still present after delete")
	}
}

func postAt(t *testing.T, store *repositories.Store, authorID uint, title string, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{AuthorID: authorID, Title: title, Content: "body", CreatedAt: at, UpdatedAt: at}
	if err := store.Posts.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("CreatePost(%s): %v", title, err)
	}
	return p
}

func TestFollowingFeedKeyset(t *testing.T) {
	db := testutil.NewDB(t)
	store := repositories.NewStore(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "reader")
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")
	stranger := testutil.CreateUser(t, db, "stranger")
	store.Follows.CreateFollow(ctx, u.ID, a.ID)
	store.Follows.CreateFollow(ctx, u.ID, b.ID)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	p1 := postAt(t, store, a.ID, "a1", base)
	p2 := postAt(t, store, b.ID, "b1", base.Add(time.Second))
	p3 := postAt(t, store, a.ID, "a2", base.Add(time.Second)) // same instant as p2
	postAt(t, store, stranger.ID, "s1", base.Add(2*time.Second))
	p4 := postAt(t, store, b.ID, "b2", base.Add(3*time.Second))

	page1, err := store.Posts.FollowingFeed(ctx, u.ID, cursor.Position{}, 2)
	if err != nil {
		t.Fatal(err)
	}
	assertIDs(t, page1, p4.ID, p3.ID)
	if page1[0].Author == nil || page1[0].Author.Username != "bob" {
		t.Errorf("author not preloaded: %+v", page1[0].Author)
	}

	last := page1[len(page1)-1]
	page2, err := store.Posts.FollowingFeed(ctx, u.ID, cursor.Position{CreatedAt: last.CreatedAt, ID: last.ID}, 2)
	if err != nil {
		t.Fatal(err)
	}
	assertIDs(t, page2, p2.ID, p1.ID)
}

func TestListByTag(t *testing.T) {
	db := testutil.NewDB(t)
	store := repositories.NewStore(db)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")

	tags, err := store.Tags.EnsureTags(ctx, []string{"go", "web"})
	if err != nil || len(tags) != 2 {
		t.Fatalf("EnsureTags() = %v, %v", tags, err)
	}
	again, _ := store.Tags.EnsureTags(ctx, []string{"go"})
	if len(again) != 1 || again[0].ID != tags[0].ID {
		t.Fatalf("EnsureTags must reuse existing tags, got %+v", again)
	}

	tagged := &models.Post{AuthorID: a.ID, Title: "tagged", Content: "x", Tags: tags[:1]}
	if err := store.Posts.CreatePost(ctx, tagged); err != nil {
		t.Fatal(err)
	}
	testutil.CreatePost(t, db, a.ID, "plain")

	posts, err := store.Posts.List(ctx, repositories.PostFilter{Tag: "GO"}, cursor.Position{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	assertIDs(t, posts, tagged.ID)
	if len(posts[0].Tags) != 1 || posts[0].Tags[0].Name != "go" {
		t.Errorf("tags = %+v", posts[0].Tags)
	}

	found, err := store.Posts.SearchPosts(ctx, "tag", 10)
	if err != nil {
		t.Fatal(err)
	}
	assertIDs(t, found, tagged.ID)
}

func TestDeleteUserCascades(t *testing.T) {
	db := testutil.NewDB(t)
	store := repositories.NewStore(db)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")
	p := testutil.CreatePost(t, db, a.ID, "hello")
	store.Comments.CreateComment(ctx, &models.Comment{PostID: p.ID, AuthorID: b.ID, Content: "hi"})
	store.Likes.CreateLike(ctx, b.ID, p.ID)
	store.Follows.CreateFollow(ctx, b.ID, a.ID)
	store.Notifications.CreateNotification(ctx, &models.Notification{
		RecipientID: a.ID, ActorID: b.ID, Verb: models.VerbFollowed, Target: models.UserTarget(b.ID),
	})

	if err := store.Users.DeleteUser(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	for name, model := range map[string]interface{}{
		"posts": &models.Post{}, "comments": &models.Comment{}, "likes": &models.Like{},
		"follows": &models.Follow{}, "notifications": &models.Notification{},
	} {
		if n := testutil.Count(t, db, model, ""); n != 0 {
			t.Errorf("%s left after cascade: %d", name, n)
		}
	}

	if err := store.Users.DeleteUser(ctx, a.ID); !errors.Is(err, apperror.ErrNotFoundOrForbidden) {
		t.Errorf("second DeleteUser() error = %v", err)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewPostgresUserRepository(db)
	testutil.CreateUser(t, db, "alice")

	err := repo.CreateUser(context.Background(), &models.User{Username: "alice", Email: "other@example.com"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("CreateUser() error = %v, want ErrValidation", err)
	}

	u, err := repo.GetUserByLogin(context.Background(), "ALICE@example.com")
	if err != nil || u.Username != "alice" {
		t.Errorf("GetUserByLogin(email) = %v, %v", u, err)
	}
}

func TestSetReadRequiresOwnership(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repositories.NewPostgresNotificationRepository(db)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")
	n := &models.Notification{RecipientID: a.ID, ActorID: b.ID, Verb: models.VerbFollowed, Target: models.UserTarget(b.ID)}
	if err := repo.CreateNotification(ctx, n); err != nil {
		t.Fatal(err)
	}

	if ok, _ := repo.SetRead(ctx, b.ID, n.ID, true); ok {
		t.Error("non-recipient flipped the flag")
	}
	if ok, _ := repo.SetRead(ctx, a.ID, n.ID, true); !ok {
		t.Error("recipient could not mark read")
	}
	// repeating the same value still matches the row
	if ok, _ := repo.SetRead(ctx, a.ID, n.ID, true); !ok {
		t.Error("idempotent mark read reported no match")
	}
	if c, _ := repo.GetUnreadCount(ctx, a.ID); c != 0 {
		t.Errorf("unread = %d", c)
	}
	unread, _ := repo.GetByRecipientID(ctx, a.ID, true, cursor.Position{}, 10)
	if len(unread) != 0 {
		t.Errorf("unread list = %+v", unread)
	}
}

func assertIDs(t *testing.T, posts []models.Post, want ...uint) {
	t.Helper()
	if len(posts) != len(want) {
		t.Fatalf("got %d posts, want %d", len(posts), len(want))
	}
	for i, p := range posts {
		if p.ID != want[i] {
			t.Errorf("posts[%d].ID = %d, want %d", i, p.ID, want[i])
		}
	}
}

type countingLikes struct {
	repositories.LikeRepository
	calls *int
}

func (c countingLikes) CreateLike(ctx context.Context, userID, postID uint) (bool, error) {
	*c.calls++
	return c.LikeRepository.CreateLike(ctx, userID, postID)
}

func TestOverrideAppliesInsideTransaction(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "alice")
	p := testutil.CreatePost(t, db, u.ID, "hello")

	var calls int
	store := repositories.NewStore(db).Override(func(s *repositories.Store) {
		s.Likes = countingLikes{LikeRepository: s.Likes, calls: &calls}
	})

	if _, err := store.Likes.CreateLike(ctx, u.ID, p.ID); err != nil {
		t.Fatal(err)
	}
	err := store.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := tx.Likes.DeleteLike(ctx, u.ID, p.ID); err != nil {
			return err
		}
		_, err := tx.Likes.CreateLike(ctx, u.ID, p.ID)
		return err
	})
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("CreateLike calls through override = %d, want 2", calls)
	}
	if n := testutil.Count(t, db, &models.Like{}, ""); n != 1 {
		t.Errorf("likes = %d, want 1", n)
	}
}

package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
)

// =========================================================================
// FAVORITE TESTS
// =========================================================================

func TestFavorite_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	createTestUser(t, db, "jake")
	createTestUser(t, db, "jane")
	article := createTestArticle(t, db, "jake", "post")

	mustNoErr(t, db.Favorite(ctx, "jane", article.ID))
	mustNoErr(t, db.Favorite(ctx, "jane", article.ID))

	n, err := db.FavoritesCount(ctx, article.ID)
	if err != nil {
		t.Fatalf("FavoritesCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("FavoritesCount() = %d after favoriting twice, want 1", n)
	}

	got, err := db.GetArticleBySlug(ctx, "post", "jane")
	if err != nil {
		t.Fatalf("GetArticleBySlug() error = %v", err)
	}
	if !got.Favorited || got.FavoritesCount != 1 {
		t.Errorf("as jane: favorited=%v count=%d", got.Favorited, got.FavoritesCount)
	}

	got, err = db.GetArticleBySlug(ctx, "post", "jake")
	if err != nil {
		t.Fatalf("GetArticleBySlug() error = %v", err)
	}
	if got.Favorited {
		t.Error("article should not be favorited from jake's point of view")
	}
}

func TestUnfavorite(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	createTestUser(t, db, "jake")
	article := createTestArticle(t, db, "jake", "post")

	// never favorited: no-op
	mustNoErr(t, db.Unfavorite(ctx, "jake", article.ID))

	mustNoErr(t, db.Favorite(ctx, "jake", article.ID))
	mustNoErr(t, db.Unfavorite(ctx, "jake", article.ID))

	if ok, _ := db.IsFavoritedBy(ctx, "jake", article.ID); ok {
		t.Error("IsFavoritedBy() = true after Unfavorite")
	}
	if n, _ := db.FavoritesCount(ctx, article.ID); n != 0 {
		t.Errorf("FavoritesCount() = %d, want 0", n)
	}
}

func TestFavorite_UnknownParty(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	createTestUser(t, db, "jake")
	article := createTestArticle(t, db, "jake", "post")

	if err := db.Favorite(ctx, "jake", article.ID+100); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Favorite(unknown article) error = %v, want ErrNotFound", err)
	}
	if err := db.Favorite(ctx, "ghost", article.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Favorite(unknown user) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// FOLLOW TESTS
// =========================================================================

func TestFollow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	createTestUser(t, db, "jake")
	createTestUser(t, db, "jane")

	mustNoErr(t, db.Follow(ctx, "jake", "jane"))
	mustNoErr(t, db.Follow(ctx, "jake", "jane"))

	if ok, _ := db.IsFollowing(ctx, "jake", "jane"); !ok {
		t.Error("jake should follow jane")
	}
	if ok, _ := db.IsFollowing(ctx, "jane", "jake"); ok {
		t.Error("follow edges are directed")
	}
	if ok, _ := db.IsFollowing(ctx, "", "jane"); ok {
		t.Error("anonymous viewer follows nobody")
	}

	mustNoErr(t, db.Unfollow(ctx, "jake", "jane"))
	mustNoErr(t, db.Unfollow(ctx, "jake", "jane"))
	if ok, _ := db.IsFollowing(ctx, "jake", "jane"); ok {
		t.Error("jake should no longer follow jane")
	}
}

func TestFollow_UnknownTarget(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "jake")

	err := db.Follow(context.Background(), "jake", "ghost")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Follow() error = %v, want ErrNotFound", err)
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Message != "user ghost not found" {
		t.Errorf("message = %q", appErr.Message)
	}
}

// =========================================================================
// COMMENT / TAG TESTS
// =========================================================================

func TestComments(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	createTestUser(t, db, "jake")
	article := createTestArticle(t, db, "jake", "post")

	first := &model.Comment{ArticleID: article.ID, AuthorUsername: "jake", Body: "one"}
	second := &model.Comment{ArticleID: article.ID, AuthorUsername: "jake", Body: "two"}
	mustNoErr(t, db.CreateComment(ctx, first))
	mustNoErr(t, db.CreateComment(ctx, second))

	comments, err := db.ListComments(ctx, article.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(comments) != 2 || comments[0].Body != "one" || comments[1].Body != "two" {
		t.Errorf("ListComments() = %+v", comments)
	}

	got, err := db.GetComment(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetComment() error = %v", err)
	}
	if got.ArticleID != article.ID || got.Body != "two" {
		t.Errorf("GetComment() = %+v", got)
	}

	mustNoErr(t, db.DeleteComment(ctx, first.ID))
	if _, err := db.GetComment(ctx, first.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetComment() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteComment(ctx, first.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteComment() error = %v, want ErrNotFound", err)
	}
}

func TestCreateComment_UnknownArticle(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "jake")

	err := db.CreateComment(context.Background(), &model.Comment{ArticleID: 7, AuthorUsername: "jake", Body: "hi"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("CreateComment() error = %v, want ErrNotFound", err)
	}
}

func TestCreateComment_UnknownAuthor(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	createTestUser(t, db, "jake")
	article := createTestArticle(t, db, "jake", "quiet")

	err := db.CreateComment(ctx, &model.Comment{ArticleID: article.ID, AuthorUsername: "ghost", Body: "boo"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("CreateComment() error = %v, want ErrNotFound", err)
	}
	if want := "user ghost not found"; err.Error() != want {
		t.Errorf("CreateComment() error = %q, want %q", err, want)
	}

	comments, err := db.ListComments(ctx, article.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("ListComments() = %+v, want none stored", comments)
	}
}

func TestListTags(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "jake")
	createTestArticle(t, db, "jake", "a", "go", "sql")
	createTestArticle(t, db, "jake", "b", "go", "api")

	tags, err := db.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	want := []string{"api", "go", "sql"}
	if len(tags) != len(want) {
		t.Fatalf("ListTags() = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("ListTags()[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}

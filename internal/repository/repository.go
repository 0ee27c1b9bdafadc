// Package repository declares the storage contracts of the identity and
// relationship store. internal/repository/sqlite implements all of them on
// a single *sqlite.DB.
//
// Errors: a missing entity is apperror.ErrNotFound, a uniqueness violation
// (username, email, slug) is apperror.ErrConflict. Every method honours
// ctx cancellation.
package repository

import (
	"context"

	"github.com/sakif/conduit/internal/model"
)

// ListOptions pages a listing. Limit <= 0 means the default page size.
// The filters apply to ListArticles only; empty means unfiltered.
type ListOptions struct {
	Limit  int
	Offset int

	Tag         string
	Author      string
	FavoritedBy string
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, username string) error
}

// ArticleRepository reads articles relative to a viewer, whose username
// (empty for anonymous reads) drives the computed Favorited flag.
type ArticleRepository interface {
	CreateArticle(ctx context.Context, article *model.Article) error
	GetArticleBySlug(ctx context.Context, slug, viewer string) (*model.Article, error)
	GetArticleByID(ctx context.Context, id int64, viewer string) (*model.Article, error)
	ListArticles(ctx context.Context, opts ListOptions, viewer string) ([]model.Article, error)
	FeedArticles(ctx context.Context, viewer string, opts ListOptions) ([]model.Article, error)
	// CountArticles and CountFeed count every match, ignoring Limit and
	// Offset.
	CountArticles(ctx context.Context, opts ListOptions) (int, error)
	CountFeed(ctx context.Context, viewer string) (int, error)
	UpdateArticle(ctx context.Context, article *model.Article) error
	// DeleteArticle removes the article's favorite edges and the article in
	// one transaction; comments and tag links cascade.
	DeleteArticle(ctx context.Context, id int64) error
}

// FavoriteRepository manages favorite edges. Favorite and Unfavorite are
// idempotent.
type FavoriteRepository interface {
	Favorite(ctx context.Context, username string, articleID int64) error
	Unfavorite(ctx context.Context, username string, articleID int64) error
	FavoritesCount(ctx context.Context, articleID int64) (int, error)
	IsFavoritedBy(ctx context.Context, username string, articleID int64) (bool, error)
}

// FollowRepository manages directed follow edges. Follow and Unfollow are
// idempotent; self-follow is not prevented here.
type FollowRepository interface {
	Follow(ctx context.Context, follower, target string) error
	Unfollow(ctx context.Context, follower, target string) error
	IsFollowing(ctx context.Context, follower, target string) (bool, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetComment(ctx context.Context, id int64) (*model.Comment, error)
	ListComments(ctx context.Context, articleID int64) ([]model.Comment, error)
	DeleteComment(ctx context.Context, id int64) error
}

type TagRepository interface {
	ListTags(ctx context.Context) ([]string, error)
}

// Store is the full identity and relationship store.
type Store interface {
	UserRepository
	ArticleRepository
	FavoriteRepository
	FollowRepository
	CommentRepository
	TagRepository
}

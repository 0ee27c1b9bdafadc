package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gosimple/slug"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

const (
	MaxTitleLength = 200
	MaxBodyLength  = 100000
	MaxTagLength   = 40
)

// ArticleStore is what ArticleService needs from the store.
type ArticleStore interface {
	repository.ArticleRepository
	repository.FavoriteRepository
}

type ArticleService struct {
	store    ArticleStore
	profiles *ProfileService
	logger   *slog.Logger
}

func NewArticleService(store ArticleStore, profiles *ProfileService, logger *slog.Logger) *ArticleService {
	return &ArticleService{store: store, profiles: profiles, logger: logger}
}

// ArticleInput carries the writable fields of an article. On update, nil
// fields are left unchanged.
type ArticleInput struct {
	Title       *string
	Description *string
	Body        *string
	TagList     []string
}

// normalizeTags trims, drops empties and duplicates, and sorts.
func normalizeTags(tags []string) ([]string, error) {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		if len(tag) > MaxTagLength {
			return nil, apperror.ValidationFailed("tagList",
				fmt.Sprintf("tags must be %d characters or less", MaxTagLength))
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out, nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if slug.Make(title) == "" {
		return "", apperror.ValidationFailed("title", "title must contain letters or digits")
	}
	return title, nil
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// withAuthor fills the Author profile of each article for viewer.
func (s *ArticleService) withAuthor(ctx context.Context, viewer string, articles ...*model.Article) error {
	authors := s.profiles.forViewer(viewer)
	for _, a := range articles {
		p, err := authors.get(ctx, a.AuthorUsername)
		if err != nil {
			return err
		}
		a.Author = p
	}
	return nil
}

// Create publishes a new article by author. The slug comes from the title;
// a title whose slug is taken is apperror.ErrConflict.
func (s *ArticleService) Create(ctx context.Context, author string, in ArticleInput) (*model.Article, error) {
	title, err := validateTitle(value(in.Title))
	if err != nil {
		return nil, err
	}
	body := value(in.Body)
	if strings.TrimSpace(body) == "" {
		return nil, apperror.ValidationFailed("body", "body is required")
	}
	if len(body) > MaxBodyLength {
		return nil, apperror.ValidationFailed("body",
			fmt.Sprintf("body must be %d characters or less", MaxBodyLength))
	}
	tags, err := normalizeTags(in.TagList)
	if err != nil {
		return nil, err
	}

	article := &model.Article{
		Slug:           slug.Make(title),
		Title:          title,
		Description:    strings.TrimSpace(value(in.Description)),
		Body:           body,
		TagList:        tags,
		AuthorUsername: author,
	}
	if err := s.store.CreateArticle(ctx, article); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to create article",
			slog.String("slug", article.Slug),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/article: creating %s: %w", article.Slug, err)
	}

	s.logger.Info("article created",
		slog.String("slug", article.Slug),
		slog.String("author", author),
	)

	if err := s.withAuthor(ctx, author, article); err != nil {
		return nil, err
	}
	return article, nil
}

// Get returns the article with favorite and follow state relative to
// viewer, which may be empty.
func (s *ArticleService) Get(ctx context.Context, viewer, articleSlug string) (*model.Article, error) {
	article, err := s.store.GetArticleBySlug(ctx, articleSlug, viewer)
	if err != nil {
		return nil, err
	}
	if err := s.withAuthor(ctx, viewer, article); err != nil {
		return nil, err
	}
	return article, nil
}

func (s *ArticleService) decorate(ctx context.Context, viewer string, articles []model.Article) ([]model.Article, error) {
	ptrs := make([]*model.Article, len(articles))
	for i := range articles {
		ptrs[i] = &articles[i]
	}
	if err := s.withAuthor(ctx, viewer, ptrs...); err != nil {
		return nil, err
	}
	return articles, nil
}

// List returns a page of recent articles, filtered by the tag, author and
// favorited-by fields of opts, and the number of articles matching the
// filters across all pages.
func (s *ArticleService) List(ctx context.Context, viewer string, opts repository.ListOptions) ([]model.Article, int, error) {
	articles, err := s.store.ListArticles(ctx, clampList(opts), viewer)
	if err != nil {
		s.logger.Error("failed to list articles", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("service/article: listing: %w", err)
	}
	total, err := s.store.CountArticles(ctx, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("service/article: counting: %w", err)
	}
	articles, err = s.decorate(ctx, viewer, articles)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// Feed returns a page of recent articles by authors viewer follows and the
// size of the whole feed.
func (s *ArticleService) Feed(ctx context.Context, viewer string, opts repository.ListOptions) ([]model.Article, int, error) {
	articles, err := s.store.FeedArticles(ctx, viewer, clampList(opts))
	if err != nil {
		s.logger.Error("failed to build feed",
			slog.String("viewer", viewer),
			slog.String("error", err.Error()),
		)
		return nil, 0, fmt.Errorf("service/article: feed for %s: %w", viewer, err)
	}
	total, err := s.store.CountFeed(ctx, viewer)
	if err != nil {
		return nil, 0, fmt.Errorf("service/article: counting feed for %s: %w", viewer, err)
	}
	articles, err = s.decorate(ctx, viewer, articles)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// owned fetches the article and checks that username wrote it.
func (s *ArticleService) owned(ctx context.Context, username, articleSlug string) (*model.Article, error) {
	article, err := s.store.GetArticleBySlug(ctx, articleSlug, username)
	if err != nil {
		return nil, err
	}
	if article.AuthorUsername != username {
		return nil, apperror.Forbidden("only the author may change this article")
	}
	return article, nil
}

// Update edits an article. Changing the title changes the slug.
func (s *ArticleService) Update(ctx context.Context, username, articleSlug string, in ArticleInput) (*model.Article, error) {
	article, err := s.owned(ctx, username, articleSlug)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title, err := validateTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		article.Title = title
		article.Slug = slug.Make(title)
	}
	if in.Description != nil {
		article.Description = strings.TrimSpace(*in.Description)
	}
	if in.Body != nil {
		if strings.TrimSpace(*in.Body) == "" {
			return nil, apperror.ValidationFailed("body", "body must not be empty")
		}
		if len(*in.Body) > MaxBodyLength {
			return nil, apperror.ValidationFailed("body",
				fmt.Sprintf("body must be %d characters or less", MaxBodyLength))
		}
		article.Body = *in.Body
	}
	if in.TagList != nil {
		tags, err := normalizeTags(in.TagList)
		if err != nil {
			return nil, err
		}
		article.TagList = tags
	} else {
		// leave the stored tags alone
		article.TagList = nil
	}

	if err := s.store.UpdateArticle(ctx, article); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/article: updating %s: %w", articleSlug, err)
	}

	s.logger.Info("article updated",
		slog.String("slug", article.Slug),
		slog.String("author", username),
	)
	return s.Get(ctx, username, article.Slug)
}

// Delete removes an article together with its comments and favorites.
func (s *ArticleService) Delete(ctx context.Context, username, articleSlug string) error {
	article, err := s.owned(ctx, username, articleSlug)
	if err != nil {
		return err
	}
	if err := s.store.DeleteArticle(ctx, article.ID); err != nil {
		return err
	}
	s.logger.Info("article deleted",
		slog.String("slug", articleSlug),
		slog.String("author", username),
	)
	return nil
}

// Favorite marks the article as a favorite of username. Repeating it does
// not change the count.
func (s *ArticleService) Favorite(ctx context.Context, username, articleSlug string) (*model.Article, error) {
	article, err := s.store.GetArticleBySlug(ctx, articleSlug, username)
	if err != nil {
		return nil, err
	}
	if err := s.store.Favorite(ctx, username, article.ID); err != nil {
		return nil, err
	}
	return s.Get(ctx, username, articleSlug)
}

// Unfavorite is a no-op if username never favorited the article.
func (s *ArticleService) Unfavorite(ctx context.Context, username, articleSlug string) (*model.Article, error) {
	article, err := s.store.GetArticleBySlug(ctx, articleSlug, username)
	if err != nil {
		return nil, err
	}
	if err := s.store.Unfavorite(ctx, username, article.ID); err != nil {
		return nil, err
	}
	return s.Get(ctx, username, articleSlug)
}

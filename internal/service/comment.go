package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

const MaxCommentLength = 10000

type CommentService struct {
	comments repository.CommentRepository
	articles repository.ArticleRepository
	profiles *ProfileService
	logger   *slog.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	articles repository.ArticleRepository,
	profiles *ProfileService,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{comments: comments, articles: articles, profiles: profiles, logger: logger}
}

// Add posts a comment by author on the article.
func (s *CommentService) Add(ctx context.Context, author, articleSlug, body string) (*model.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperror.ValidationFailed("body", "comment body is required")
	}
	if len(body) > MaxCommentLength {
		return nil, apperror.ValidationFailed("body",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}

	article, err := s.articles.GetArticleBySlug(ctx, articleSlug, author)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{ArticleID: article.ID, AuthorUsername: author, Body: body}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.logger.Info("comment added",
		slog.String("slug", articleSlug),
		slog.Int64("id", comment.ID),
		slog.String("author", author),
	)

	comment.Author, err = s.profiles.forViewer(author).get(ctx, author)
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// List returns the article's comments oldest first. A comment whose author
// has been deleted keeps the bare username.
func (s *CommentService) List(ctx context.Context, viewer, articleSlug string) ([]model.Comment, error) {
	article, err := s.articles.GetArticleBySlug(ctx, articleSlug, viewer)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListComments(ctx, article.ID)
	if err != nil {
		return nil, fmt.Errorf("service/comment: listing for %s: %w", articleSlug, err)
	}

	authors := s.profiles.forViewer(viewer)
	for i := range comments {
		comments[i].Author, err = authors.get(ctx, comments[i].AuthorUsername)
		if err != nil {
			return nil, err
		}
	}
	return comments, nil
}

// Delete removes a comment. Only its author may delete it, and it must
// belong to the named article.
func (s *CommentService) Delete(ctx context.Context, username, articleSlug string, id int64) error {
	article, err := s.articles.GetArticleBySlug(ctx, articleSlug, username)
	if err != nil {
		return err
	}
	comment, err := s.comments.GetComment(ctx, id)
	if err != nil {
		return err
	}
	if comment.ArticleID != article.ID {
		return apperror.NotFound("comment", fmt.Sprint(id))
	}
	if comment.AuthorUsername != username {
		return apperror.Forbidden("only the author may delete this comment")
	}
	if err := s.comments.DeleteComment(ctx, id); err != nil {
		return err
	}
	s.logger.Info("comment deleted", slog.String("slug", articleSlug), slog.Int64("id", id))
	return nil
}

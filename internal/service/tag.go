package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/conduit/internal/repository"
)

type TagService struct {
	tags   repository.TagRepository
	logger *slog.Logger
}

func NewTagService(tags repository.TagRepository, logger *slog.Logger) *TagService {
	return &TagService{tags: tags, logger: logger}
}

// List returns every tag used by at least one article.
func (s *TagService) List(ctx context.Context) ([]string, error) {
	tags, err := s.tags.ListTags(ctx)
	if err != nil {
		s.logger.Error("failed to list tags", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/tag: %w", err)
	}
	return tags, nil
}

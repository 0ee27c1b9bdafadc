package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

// ProfileService exposes users as seen by another user and manages follow
// edges.
type ProfileService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	logger  *slog.Logger
}

func NewProfileService(users repository.UserRepository, follows repository.FollowRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{users: users, follows: follows, logger: logger}
}

// Get returns username's profile. viewer may be empty.
func (s *ProfileService) Get(ctx context.Context, viewer, username string) (*model.Profile, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.profileOf(ctx, viewer, user)
}

func (s *ProfileService) profileOf(ctx context.Context, viewer string, user *model.User) (*model.Profile, error) {
	following, err := s.follows.IsFollowing(ctx, viewer, user.Username)
	if err != nil {
		return nil, fmt.Errorf("service/profile: %w", err)
	}
	return &model.Profile{
		Username:  user.Username,
		Bio:       user.Bio,
		Image:     user.Image,
		Following: following,
	}, nil
}

// authorProfiles resolves author profiles for one viewer, looking each
// username up once. A deleted author yields a bare profile.
type authorProfiles struct {
	svc    *ProfileService
	viewer string
	seen   map[string]model.Profile
}

func (s *ProfileService) forViewer(viewer string) *authorProfiles {
	return &authorProfiles{svc: s, viewer: viewer, seen: make(map[string]model.Profile)}
}

func (a *authorProfiles) get(ctx context.Context, username string) (model.Profile, error) {
	if p, ok := a.seen[username]; ok {
		return p, nil
	}
	p, err := a.svc.Get(ctx, a.viewer, username)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return model.Profile{}, err
		}
		p = &model.Profile{Username: username}
	}
	a.seen[username] = *p
	return *p, nil
}

// Follow makes viewer follow target. Following yourself is rejected.
func (s *ProfileService) Follow(ctx context.Context, viewer, target string) (*model.Profile, error) {
	if viewer == target {
		return nil, apperror.ValidationFailed("username", "you cannot follow yourself")
	}
	if err := s.follows.Follow(ctx, viewer, target); err != nil {
		return nil, err
	}
	s.logger.Info("user followed", slog.String("follower", viewer), slog.String("username", target))
	return s.Get(ctx, viewer, target)
}

// Unfollow removes the edge; it is not an error if none existed.
func (s *ProfileService) Unfollow(ctx context.Context, viewer, target string) (*model.Profile, error) {
	profile, err := s.Get(ctx, viewer, target)
	if err != nil {
		return nil, err
	}
	if err := s.follows.Unfollow(ctx, viewer, target); err != nil {
		return nil, err
	}
	profile.Following = false
	s.logger.Info("user unfollowed", slog.String("follower", viewer), slog.String("username", target))
	return profile, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

const (
	MaxUsernameLength = 64
	MinPasswordLength = 8
)

// UserService registers and authenticates users and edits their own
// account. Tokens it hands out carry the username as subject.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	issuer    *auth.Issuer
	now       Clock
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	issuer *auth.Issuer,
	now Clock,
	logger *slog.Logger,
) *UserService {
	if now == nil {
		now = systemClock
	}
	return &UserService{
		users:     users,
		passwords: passwords,
		issuer:    issuer,
		now:       now,
		logger:    logger,
	}
}

// AuthResult bundles a user with a freshly issued access token.
type AuthResult struct {
	User  *model.User
	Token string
}

// UserUpdate holds the fields a user may change. Nil means unchanged.
type UserUpdate struct {
	Email    *string
	Password *string
	Bio      *string
	Image    *string
}

func validateUsername(username string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if strings.ContainsAny(username, " /\t\n") {
		return apperror.ValidationFailed("username", "username must not contain spaces or slashes")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperror.ValidationFailed("email", "email is invalid")
	}
	return nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return "", apperror.ValidationFailed("password", err.Error())
	}
	return hash, nil
}

func (s *UserService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.issuer.Issue(user.Username, s.now())
	if err != nil {
		return nil, fmt.Errorf("service/user: issuing token for %s: %w", user.Username, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Register creates an account and logs it in. A taken username or email is
// apperror.ErrConflict.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/user: registering %s: %w", username, err)
	}

	s.logger.Info("user registered", slog.String("username", username))
	return s.issue(user)
}

// Login checks an email and password pair. Unknown email and wrong
// password produce the same apperror.ErrUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	invalid := apperror.Unauthorized("invalid email or password")

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/user: looking up %s: %w", email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("failed login", slog.String("username", user.Username))
			return nil, invalid
		}
		return nil, fmt.Errorf("service/user: verifying password: %w", err)
	}

	s.logger.Info("user logged in", slog.String("username", user.Username))
	return s.issue(user)
}

// Current returns the authenticated user with a fresh token.
func (s *UserService) Current(ctx context.Context, username string) (*AuthResult, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Update applies the non-nil fields of upd to the user's own account.
func (s *UserService) Update(ctx context.Context, username string, upd UserUpdate) (*AuthResult, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if upd.Password != nil {
		hash, err := s.hashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if upd.Bio != nil {
		user.Bio = *upd.Bio
	}
	if upd.Image != nil {
		user.Image = strings.TrimSpace(*upd.Image)
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/user: updating %s: %w", username, err)
	}

	s.logger.Info("user updated", slog.String("username", username))
	return s.issue(user)
}

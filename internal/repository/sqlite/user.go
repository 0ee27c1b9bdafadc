package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

// compile-time check that *DB implements the whole store
var _ repository.Store = (*DB)(nil)

const userColumns = `username, email, bio, image, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.Username, &u.Email, &u.Bio, &u.Image, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// userConflict turns a unique violation on users into the matching
// apperror.Conflict.
func userConflict(err error, user *model.User) error {
	if violatedColumn(err) == "users.email" {
		return apperror.Conflict("user", "email", user.Email)
	}
	return apperror.Conflict("user", "username", user.Username)
}

// CreateUser inserts a new user. A taken username or email is
// apperror.ErrConflict; the existing row is never overwritten.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := db.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.Bio, user.Image, user.PasswordHash,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return userConflict(err, user)
		}
		return fmt.Errorf("sqlite: creating user %s: %w", user.Username, err)
	}
	return nil
}

// GetUserByUsername returns apperror.ErrNotFound if no such user exists.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", username, err)
	}
	return u, nil
}

// GetUserByEmail returns apperror.ErrNotFound if no user has that email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user with email", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// UpdateUser writes the mutable profile fields. The username is the key and
// cannot change.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = db.now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET email = ?, bio = ?, image = ?, password_hash = ?, updated_at = ?
		 WHERE username = ?`,
		user.Email, user.Bio, user.Image, user.PasswordHash, user.UpdatedAt, user.Username,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return userConflict(err, user)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.Username, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", user.Username)
	}
	return nil
}

// DeleteUser removes a user. Their articles, favorites and incoming follow
// edges cascade; their outgoing follow edges and the favorites on their
// articles sit on NO ACTION keys and are cleared first. Their comments on
// other users' articles stay, with an orphaned author.
func (db *DB) DeleteUser(ctx context.Context, username string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM user_links WHERE follower_username = ?`, username); err != nil {
			return fmt.Errorf("sqlite: clearing follows of %s: %w", username, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM article_favorites
			 WHERE article_id IN (SELECT id FROM articles WHERE author_username = ?)`, username); err != nil {
			return fmt.Errorf("sqlite: clearing favorites on articles of %s: %w", username, err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
		if err != nil {
			return fmt.Errorf("sqlite: deleting user %s: %w", username, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFound("user", username)
		}
		return nil
	})
}

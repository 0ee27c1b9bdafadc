package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/conduit/internal/apperror"
)

// Follow adds the edge follower -> target. Following twice is a no-op.
// Either user missing is apperror.ErrNotFound.
func (db *DB) Follow(ctx context.Context, follower, target string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_links (username, follower_username, created_at) VALUES (?, ?, ?)`,
		target, follower, db.now(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return db.missingFollowParty(ctx, follower, target)
		}
		return fmt.Errorf("sqlite: %s following %s: %w", follower, target, err)
	}
	return nil
}

func (db *DB) missingFollowParty(ctx context.Context, follower, target string) error {
	ok, err := exists(ctx, db.conn, `SELECT 1 FROM users WHERE username = ?`, target)
	if err != nil {
		return fmt.Errorf("sqlite: checking user %s: %w", target, err)
	}
	if !ok {
		return apperror.NotFound("user", target)
	}
	return apperror.NotFound("user", follower)
}

// Unfollow removes the edge if present.
func (db *DB) Unfollow(ctx context.Context, follower, target string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM user_links WHERE username = ? AND follower_username = ?`, target, follower)
	if err != nil {
		return fmt.Errorf("sqlite: %s unfollowing %s: %w", follower, target, err)
	}
	return nil
}

func (db *DB) IsFollowing(ctx context.Context, follower, target string) (bool, error) {
	if follower == "" {
		return false, nil
	}
	ok, err := exists(ctx, db.conn,
		`SELECT 1 FROM user_links WHERE username = ? AND follower_username = ?`, target, follower)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking follow: %w", err)
	}
	return ok, nil
}

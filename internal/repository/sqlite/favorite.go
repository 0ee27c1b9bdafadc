package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/conduit/internal/apperror"
)

// Favorite records that username favorited the article. Favoriting twice
// is a no-op. An unknown user or article is apperror.ErrNotFound.
func (db *DB) Favorite(ctx context.Context, username string, articleID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO article_favorites (article_id, username, created_at) VALUES (?, ?, ?)`,
		articleID, username, db.now(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return db.missingFavoriteParty(ctx, username, articleID)
		}
		return fmt.Errorf("sqlite: favoriting article %d: %w", articleID, err)
	}
	return nil
}

// missingFavoriteParty works out which side of a rejected favorite edge
// does not exist.
func (db *DB) missingFavoriteParty(ctx context.Context, username string, articleID int64) error {
	ok, err := exists(ctx, db.conn, `SELECT 1 FROM articles WHERE id = ?`, articleID)
	if err != nil {
		return fmt.Errorf("sqlite: checking article %d: %w", articleID, err)
	}
	if !ok {
		return apperror.NotFound("article", fmt.Sprint(articleID))
	}
	return apperror.NotFound("user", username)
}

// Unfavorite removes the edge if present.
func (db *DB) Unfavorite(ctx context.Context, username string, articleID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM article_favorites WHERE article_id = ? AND username = ?`, articleID, username)
	if err != nil {
		return fmt.Errorf("sqlite: unfavoriting article %d: %w", articleID, err)
	}
	return nil
}

func (db *DB) FavoritesCount(ctx context.Context, articleID int64) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM article_favorites WHERE article_id = ?`, articleID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting favorites of article %d: %w", articleID, err)
	}
	return n, nil
}

func (db *DB) IsFavoritedBy(ctx context.Context, username string, articleID int64) (bool, error) {
	ok, err := exists(ctx, db.conn,
		`SELECT 1 FROM article_favorites WHERE article_id = ? AND username = ?`, articleID, username)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking favorite: %w", err)
	}
	return ok, nil
}

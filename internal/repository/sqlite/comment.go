package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
)

const commentColumns = `id, article_id, author_username, body, created_at, updated_at`

func scanComment(row interface{ Scan(...any) error }) (*model.Comment, error) {
	var c model.Comment
	if err := row.Scan(&c.ID, &c.ArticleID, &c.AuthorUsername, &c.Body, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateComment adds a comment to an article. An unknown article or author
// is apperror.ErrNotFound. The author column has no foreign key, so the
// author is checked inside the same transaction as the insert.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	now := db.now()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	return db.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM users WHERE username = ?`, comment.AuthorUsername)
		if err != nil {
			return fmt.Errorf("sqlite: checking user %s: %w", comment.AuthorUsername, err)
		}
		if !ok {
			return apperror.NotFound("user", comment.AuthorUsername)
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO comments (article_id, author_username, body, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			comment.ArticleID, comment.AuthorUsername, comment.Body, comment.CreatedAt, comment.UpdatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("article", fmt.Sprint(comment.ArticleID))
			}
			return fmt.Errorf("sqlite: creating comment: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: getting comment id: %w", err)
		}
		comment.ID = id
		return nil
	})
}

func (db *DB) GetComment(ctx context.Context, id int64) (*model.Comment, error) {
	c, err := scanComment(db.conn.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment", fmt.Sprint(id))
		}
		return nil, fmt.Errorf("sqlite: getting comment %d: %w", id, err)
	}
	return c, nil
}

// ListComments returns an article's comments oldest first.
func (db *DB) ListComments(ctx context.Context, articleID int64) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE article_id = ? ORDER BY created_at, id`, articleID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments: %w", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

func (db *DB) DeleteComment(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("comment", fmt.Sprint(id))
	}
	return nil
}

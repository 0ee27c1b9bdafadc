package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

// articleSelect reads an article with its computed favorite fields. The
// first bind argument is always the viewer ("" for anonymous).
const articleSelect = `
	SELECT a.id, a.slug, a.title, a.description, a.body, a.author_username,
	       a.created_at, a.updated_at,
	       (SELECT COUNT(*) FROM article_favorites f WHERE f.article_id = a.id),
	       EXISTS(SELECT 1 FROM article_favorites f WHERE f.article_id = a.id AND f.username = ?)
	FROM articles a`

const defaultListLimit = 20

func scanArticle(row interface{ Scan(...any) error }) (*model.Article, error) {
	var a model.Article
	err := row.Scan(&a.ID, &a.Slug, &a.Title, &a.Description, &a.Body, &a.AuthorUsername,
		&a.CreatedAt, &a.UpdatedAt, &a.FavoritesCount, &a.Favorited)
	if err != nil {
		return nil, err
	}
	a.TagList = []string{}
	return &a, nil
}

// CreateArticle inserts the article and its tags in one transaction. A taken
// slug is apperror.ErrConflict; an unknown author is apperror.ErrNotFound.
func (db *DB) CreateArticle(ctx context.Context, article *model.Article) error {
	now := db.now()
	article.CreatedAt = now
	article.UpdatedAt = now

	return db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO articles (slug, title, description, body, author_username, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			article.Slug, article.Title, article.Description, article.Body,
			article.AuthorUsername, article.CreatedAt, article.UpdatedAt,
		)
		if err != nil {
			switch {
			case isUniqueViolation(err):
				return apperror.Conflict("article", "slug", article.Slug)
			case isForeignKeyViolation(err):
				return apperror.NotFound("user", article.AuthorUsername)
			}
			return fmt.Errorf("sqlite: creating article %s: %w", article.Slug, err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: getting article id: %w", err)
		}
		article.ID = id

		if err := setTags(ctx, tx, id, article.TagList); err != nil {
			return err
		}
		if article.TagList == nil {
			article.TagList = []string{}
		}
		article.Favorited = false
		article.FavoritesCount = 0
		return nil
	})
}

// setTags replaces the tag links of an article.
func setTags(ctx context.Context, tx *sql.Tx, articleID int64, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM article_tags WHERE article_id = ?`, articleID); err != nil {
		return fmt.Errorf("sqlite: clearing tags: %w", err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, tag); err != nil {
			return fmt.Errorf("sqlite: inserting tag %s: %w", tag, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO article_tags (article_id, tag_name) VALUES (?, ?)`, articleID, tag); err != nil {
			return fmt.Errorf("sqlite: linking tag %s: %w", tag, err)
		}
	}
	return nil
}

// loadTags fills TagList for every article. It must run after any row
// iteration has finished: in-memory databases have a single connection.
func (db *DB) loadTags(ctx context.Context, articles []*model.Article) error {
	if len(articles) == 0 {
		return nil
	}

	byID := make(map[int64]*model.Article, len(articles))
	placeholders := make([]string, 0, len(articles))
	args := make([]any, 0, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
		placeholders = append(placeholders, "?")
		args = append(args, a.ID)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT article_id, tag_name FROM article_tags
		 WHERE article_id IN (`+strings.Join(placeholders, ",")+`)
		 ORDER BY tag_name`, args...)
	if err != nil {
		return fmt.Errorf("sqlite: loading tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return fmt.Errorf("sqlite: scanning tag: %w", err)
		}
		if a, ok := byID[id]; ok {
			a.TagList = append(a.TagList, tag)
		}
	}
	return rows.Err()
}

func (db *DB) getArticle(ctx context.Context, where string, key any, viewer string) (*model.Article, error) {
	a, err := scanArticle(db.conn.QueryRowContext(ctx, articleSelect+" WHERE "+where, viewer, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("article", fmt.Sprint(key))
		}
		return nil, fmt.Errorf("sqlite: getting article %v: %w", key, err)
	}
	if err := db.loadTags(ctx, []*model.Article{a}); err != nil {
		return nil, err
	}
	return a, nil
}

// GetArticleBySlug returns apperror.ErrNotFound if no article has the slug.
func (db *DB) GetArticleBySlug(ctx context.Context, slug, viewer string) (*model.Article, error) {
	return db.getArticle(ctx, "a.slug = ?", slug, viewer)
}

// GetArticleByID returns apperror.ErrNotFound if no article has the id.
func (db *DB) GetArticleByID(ctx context.Context, id int64, viewer string) (*model.Article, error) {
	return db.getArticle(ctx, "a.id = ?", id, viewer)
}

// listArticles runs an articleSelect query, closes the rows and then loads
// the tags.
func (db *DB) listArticles(ctx context.Context, query string, args ...any) ([]model.Article, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing articles: %w", err)
	}

	var list []*model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning article: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating articles: %w", err)
	}
	rows.Close()

	if err := db.loadTags(ctx, list); err != nil {
		return nil, err
	}

	articles := make([]model.Article, 0, len(list))
	for _, a := range list {
		articles = append(articles, *a)
	}
	return articles, nil
}

func limitOffset(opts repository.ListOptions) (int, int) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// articleFilter builds the WHERE clause for the tag, author and
// favorited-by filters of opts. It is empty when nothing is filtered.
func articleFilter(opts repository.ListOptions) (string, []any) {
	var conds []string
	var args []any
	if opts.Tag != "" {
		conds = append(conds, "EXISTS(SELECT 1 FROM article_tags t WHERE t.article_id = a.id AND t.tag_name = ?)")
		args = append(args, opts.Tag)
	}
	if opts.Author != "" {
		conds = append(conds, "a.author_username = ?")
		args = append(args, opts.Author)
	}
	if opts.FavoritedBy != "" {
		conds = append(conds, "EXISTS(SELECT 1 FROM article_favorites f WHERE f.article_id = a.id AND f.username = ?)")
		args = append(args, opts.FavoritedBy)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListArticles returns articles newest first, optionally narrowed by tag,
// author or a user who favorited them.
func (db *DB) ListArticles(ctx context.Context, opts repository.ListOptions, viewer string) ([]model.Article, error) {
	where, filterArgs := articleFilter(opts)
	limit, offset := limitOffset(opts)

	args := append([]any{viewer}, filterArgs...)
	args = append(args, limit, offset)
	query := articleSelect + where + " ORDER BY a.created_at DESC, a.id DESC LIMIT ? OFFSET ?"
	return db.listArticles(ctx, query, args...)
}

// CountArticles counts every article matching the filters of opts,
// ignoring Limit and Offset.
func (db *DB) CountArticles(ctx context.Context, opts repository.ListOptions) (int, error) {
	where, args := articleFilter(opts)

	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles a`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting articles: %w", err)
	}
	return n, nil
}

const feedJoin = `
	JOIN user_links l ON l.username = a.author_username AND l.follower_username = ?`

// FeedArticles returns articles written by users the viewer follows, newest
// first.
func (db *DB) FeedArticles(ctx context.Context, viewer string, opts repository.ListOptions) ([]model.Article, error) {
	limit, offset := limitOffset(opts)
	query := articleSelect + feedJoin + `
	ORDER BY a.created_at DESC, a.id DESC LIMIT ? OFFSET ?`
	return db.listArticles(ctx, query, viewer, viewer, limit, offset)
}

// CountFeed counts the articles FeedArticles pages through.
func (db *DB) CountFeed(ctx context.Context, viewer string) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles a`+feedJoin, viewer).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting feed of %s: %w", viewer, err)
	}
	return n, nil
}

// UpdateArticle writes slug, title, description, body and tags. The author
// never changes.
func (db *DB) UpdateArticle(ctx context.Context, article *model.Article) error {
	article.UpdatedAt = db.now()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE articles SET slug = ?, title = ?, description = ?, body = ?, updated_at = ?
			 WHERE id = ?`,
			article.Slug, article.Title, article.Description, article.Body, article.UpdatedAt, article.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("article", "slug", article.Slug)
			}
			return fmt.Errorf("sqlite: updating article %d: %w", article.ID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFound("article", fmt.Sprint(article.ID))
		}

		if article.TagList != nil {
			return setTags(ctx, tx, article.ID, article.TagList)
		}
		return nil
	})
}

// DeleteArticle clears the article's favorite edges and deletes it in one
// transaction. Comments and tag links cascade.
func (db *DB) DeleteArticle(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM article_favorites WHERE article_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: clearing favorites of article %d: %w", id, err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting article %d: %w", id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFound("article", fmt.Sprint(id))
		}
		return nil
	})
}

// Package sqlite implements the repository interfaces on SQLite using the
// pure-Go modernc.org/sqlite driver (no cgo).
//
// RELATIONSHIP RULES (enforced by the schema, see migrate):
//
//	articles.author_username      → users     ON DELETE CASCADE
//	comments.article_id           → articles  ON DELETE CASCADE
//	comments.author_username        (no foreign key: orphaned on user delete)
//	user_links.username           → users     ON DELETE CASCADE   (followed side)
//	user_links.follower_username  → users     NO ACTION           (follower side)
//	article_favorites.article_id  → articles  NO ACTION
//	article_favorites.username    → users     ON DELETE CASCADE
//
// The NO ACTION edges are cleared explicitly by DeleteArticle and
// DeleteUser inside their transactions.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx, so read helpers can run
// inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/conduit.db"  → file-based database
//   - ":memory:"         → in-memory database, used by tests
//
// Pragmas go in the DSN so that every pooled connection gets them; a
// PRAGMA executed once would only configure one connection.
func New(dbPath string) (*DB, error) {
	memory := dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")

	pragmas := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	if !memory {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_txlock=immediate")
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}

	conn, err := sql.Open("sqlite", dbPath+sep+strings.Join(pragmas, "&"))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each connection to ":memory:" is a separate, empty database.
	if memory {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn, now: func() time.Time { return time.Now().UTC() }}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. Every statement is idempotent.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				username      TEXT PRIMARY KEY,
				email         TEXT NOT NULL,
				bio           TEXT NOT NULL DEFAULT '',
				image         TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL DEFAULT '',
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);
		`},
		{"articles", `
			CREATE TABLE IF NOT EXISTS articles (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				slug            TEXT NOT NULL,
				title           TEXT NOT NULL,
				description     TEXT NOT NULL DEFAULT '',
				body            TEXT NOT NULL DEFAULT '',
				author_username TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
				created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_articles_slug ON articles(slug);
			CREATE INDEX IF NOT EXISTS idx_articles_author ON articles(author_username);
			CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at);
		`},
		{"tags", `
			CREATE TABLE IF NOT EXISTS tags (
				name TEXT PRIMARY KEY
			);
			CREATE TABLE IF NOT EXISTS article_tags (
				article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
				tag_name   TEXT NOT NULL REFERENCES tags(name) ON DELETE CASCADE,
				PRIMARY KEY (article_id, tag_name)
			);
		`},
		{"comments", `
			CREATE TABLE IF NOT EXISTS comments (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				article_id      INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
				author_username TEXT NOT NULL,
				body            TEXT NOT NULL,
				created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_comments_article ON comments(article_id);
		`},
		{"user_links", `
			CREATE TABLE IF NOT EXISTS user_links (
				username          TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
				follower_username TEXT NOT NULL REFERENCES users(username) ON DELETE NO ACTION,
				created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (username, follower_username)
			);
			CREATE INDEX IF NOT EXISTS idx_user_links_follower ON user_links(follower_username);
		`},
		{"article_favorites", `
			CREATE TABLE IF NOT EXISTS article_favorites (
				article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE NO ACTION,
				username   TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (article_id, username)
			);
			CREATE INDEX IF NOT EXISTS idx_article_favorites_username ON article_favorites(username);
		`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s: %w", step.name, err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// constraintCode returns the extended SQLite result code of a constraint
// violation, or 0 if err is not one.
func constraintCode(err error) int {
	var sqliteErr *sqlitedriver.Error
	if !errors.As(err, &sqliteErr) {
		return 0
	}
	if sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return 0
	}
	return sqliteErr.Code()
}

// isUniqueViolation reports a UNIQUE or PRIMARY KEY violation.
func isUniqueViolation(err error) bool {
	code := constraintCode(err)
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// isForeignKeyViolation reports a FOREIGN KEY violation.
func isForeignKeyViolation(err error) bool {
	return constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// violatedColumn extracts "table.column" from a SQLite constraint message
// such as "UNIQUE constraint failed: users.email".
func violatedColumn(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, "failed: "); i >= 0 {
		col := msg[i+len("failed: "):]
		if j := strings.IndexAny(col, " ,)"); j >= 0 {
			col = col[:j]
		}
		return col
	}
	return ""
}

// exists reports whether query returns at least one row.
func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

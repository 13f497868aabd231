package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"forum-api/internal/domain"
)

// SqlitePostRepository implementa PostRepository sobre SQLite.
type SqlitePostRepository struct {
	db *sql.DB
}

func NewSqlitePostRepository(db *sql.DB) *SqlitePostRepository {
	return &SqlitePostRepository{db: db}
}

// sqlQuerier es el subconjunto comun a *sql.DB y *sql.Tx.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx hace commit si fn no falla y rollback en cualquier otro caso.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

func (r *SqlitePostRepository) List(ctx context.Context) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	posts := []domain.Post{}
	var ids []string
	for rows.Next() {
		p, err := scanSqlitePost(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		posts = append(posts, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list posts: %w", err)
	}
	// Con una sola conexion abierta hay que liberar rows antes de la siguiente consulta.
	rows.Close()

	if len(posts) == 0 {
		return posts, nil
	}
	comments, err := sqliteCommentsFor(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if cs, ok := comments[posts[i].ID]; ok {
			posts[i].Comments = cs
		}
	}
	return posts, nil
}

func (r *SqlitePostRepository) Create(ctx context.Context, post domain.Post) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return insertSqlitePost(ctx, tx, post)
	})
}

func (r *SqlitePostRepository) GetByID(ctx context.Context, id string) (domain.Post, error) {
	return sqliteGetPost(ctx, r.db, id)
}

func (r *SqlitePostRepository) Upvote(ctx context.Context, id string, at time.Time) (domain.Post, error) {
	return r.updateVotes(ctx, `UPDATE posts SET upvotes = upvotes + 1, updated_at = ? WHERE id = ?`, id, at)
}

func (r *SqlitePostRepository) Downvote(ctx context.Context, id string, at time.Time) (domain.Post, error) {
	return r.updateVotes(ctx, `UPDATE posts SET upvotes = MAX(upvotes - 1, 0), updated_at = ? WHERE id = ?`, id, at)
}

func (r *SqlitePostRepository) AddComment(ctx context.Context, comment domain.Comment) (domain.Post, error) {
	var post domain.Post
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE posts SET updated_at = ? WHERE id = ?`, formatSqliteTime(comment.CreatedAt), comment.PostID)
		if err != nil {
			return fmt.Errorf("touch post: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		if err := insertSqliteComment(ctx, tx, comment); err != nil {
			return err
		}
		post, err = sqliteGetPost(ctx, tx, comment.PostID)
		return err
	})
	if err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

func (r *SqlitePostRepository) ReplaceAll(ctx context.Context, posts []domain.Post) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM posts`); err != nil {
			return fmt.Errorf("delete posts: %w", err)
		}
		for _, p := range posts {
			if err := insertSqlitePost(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SqlitePostRepository) updateVotes(ctx context.Context, query, id string, at time.Time) (domain.Post, error) {
	res, err := r.db.ExecContext(ctx, query, formatSqliteTime(at), id)
	if err != nil {
		return domain.Post{}, fmt.Errorf("update votes: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Post{}, ErrNotFound
	}
	return sqliteGetPost(ctx, r.db, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSqlitePost(row rowScanner) (domain.Post, error) {
	var (
		p                    domain.Post
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Body, &p.Author, &p.CommunitySlug, &p.Upvotes, &createdAt, &updatedAt); err != nil {
		return domain.Post{}, err
	}
	var err error
	if p.CreatedAt, err = parseSqliteTime(createdAt); err != nil {
		return domain.Post{}, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseSqliteTime(updatedAt); err != nil {
		return domain.Post{}, fmt.Errorf("parse updated_at: %w", err)
	}
	p.Comments = []domain.Comment{}
	return p, nil
}

func sqliteGetPost(ctx context.Context, q sqlQuerier, id string) (domain.Post, error) {
	p, err := scanSqlitePost(q.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Post{}, ErrNotFound
	}
	if err != nil {
		return domain.Post{}, fmt.Errorf("select post: %w", err)
	}
	comments, err := sqliteCommentsFor(ctx, q, []string{id})
	if err != nil {
		return domain.Post{}, err
	}
	if cs, ok := comments[id]; ok {
		p.Comments = cs
	}
	return p, nil
}

func sqliteCommentsFor(ctx context.Context, q sqlQuerier, postIDs []string) (map[string][]domain.Comment, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(postIDs)), ",")
	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
	}
	query := `
		SELECT id, post_id, author, text, created_at, updated_at
		FROM post_comments
		WHERE post_id IN (` + placeholders + `)
		ORDER BY created_at ASC
	`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Comment, len(postIDs))
	for rows.Next() {
		var (
			c                    domain.Comment
			createdAt, updatedAt string
		)
		if err := rows.Scan(&c.ID, &c.PostID, &c.Author, &c.Text, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if c.CreatedAt, err = parseSqliteTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if c.UpdatedAt, err = parseSqliteTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		out[c.PostID] = append(out[c.PostID], c)
	}
	return out, rows.Err()
}

func insertSqlitePost(ctx context.Context, tx *sql.Tx, p domain.Post) error {
	const query = `
		INSERT INTO posts (id, title, body, author, community_slug, upvotes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.ExecContext(ctx, query, p.ID, p.Title, p.Body, p.Author, p.CommunitySlug, p.Upvotes,
		formatSqliteTime(p.CreatedAt), formatSqliteTime(p.UpdatedAt))
	if isSqliteUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	for _, c := range p.Comments {
		c.PostID = p.ID
		if err := insertSqliteComment(ctx, tx, c); err != nil {
			return err
		}
	}
	return nil
}

func insertSqliteComment(ctx context.Context, tx *sql.Tx, c domain.Comment) error {
	const query = `
		INSERT INTO post_comments (id, post_id, author, text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query, c.ID, c.PostID, c.Author, c.Text,
		formatSqliteTime(c.CreatedAt), formatSqliteTime(c.UpdatedAt)); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

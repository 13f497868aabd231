package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"forum-api/internal/domain"
)

// PostRepository define el contrato de persistencia del feed.
type PostRepository interface {
	List(ctx context.Context) ([]domain.Post, error)
	Create(ctx context.Context, post domain.Post) error
	GetByID(ctx context.Context, id string) (domain.Post, error)
	Upvote(ctx context.Context, id string, at time.Time) (domain.Post, error)
	Downvote(ctx context.Context, id string, at time.Time) (domain.Post, error)
	AddComment(ctx context.Context, comment domain.Comment) (domain.Post, error)
	ReplaceAll(ctx context.Context, posts []domain.Post) error
}

// PgPostRepository implementa PostRepository usando pgxpool.
type PgPostRepository struct {
	pool *pgxpool.Pool
}

func NewPgPostRepository(pool *pgxpool.Pool) *PgPostRepository {
	return &PgPostRepository{pool: pool}
}

const postColumns = `id, title, body, author, community_slug, upvotes, created_at, updated_at`

func (r *PgPostRepository) List(ctx context.Context) ([]domain.Post, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var (
		posts []domain.Post
		ids   []string
	)
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Body, &p.Author, &p.CommunitySlug, &p.Upvotes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.Comments = []domain.Comment{}
		posts = append(posts, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if len(posts) == 0 {
		return []domain.Post{}, nil
	}

	comments, err := r.commentsFor(ctx, r.pool, ids)
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

func (r *PgPostRepository) Create(ctx context.Context, post domain.Post) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return insertPgPost(ctx, tx, post)
	})
}

func (r *PgPostRepository) GetByID(ctx context.Context, id string) (domain.Post, error) {
	return r.getByID(ctx, r.pool, id)
}

func (r *PgPostRepository) Upvote(ctx context.Context, id string, at time.Time) (domain.Post, error) {
	return r.updateVotes(ctx, `UPDATE posts SET upvotes = upvotes + 1, updated_at = $2 WHERE id = $1`, id, at)
}

func (r *PgPostRepository) Downvote(ctx context.Context, id string, at time.Time) (domain.Post, error) {
	return r.updateVotes(ctx, `UPDATE posts SET upvotes = GREATEST(upvotes - 1, 0), updated_at = $2 WHERE id = $1`, id, at)
}

func (r *PgPostRepository) AddComment(ctx context.Context, comment domain.Comment) (domain.Post, error) {
	var post domain.Post
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE posts SET updated_at = $2 WHERE id = $1`, comment.PostID, comment.CreatedAt)
		if err != nil {
			return fmt.Errorf("touch post: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if err := insertPgComment(ctx, tx, comment); err != nil {
			return err
		}
		post, err = r.getByID(ctx, tx, comment.PostID)
		return err
	})
	if err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

func (r *PgPostRepository) ReplaceAll(ctx context.Context, posts []domain.Post) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM posts`); err != nil {
			return fmt.Errorf("delete posts: %w", err)
		}
		for _, p := range posts {
			if err := insertPgPost(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PgPostRepository) updateVotes(ctx context.Context, query, id string, at time.Time) (domain.Post, error) {
	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return domain.Post{}, fmt.Errorf("update votes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Post{}, ErrNotFound
	}
	return r.getByID(ctx, r.pool, id)
}

// pgQuerier es el subconjunto comun a *pgxpool.Pool y pgx.Tx.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PgPostRepository) getByID(ctx context.Context, q pgQuerier, id string) (domain.Post, error) {
	var p domain.Post
	err := q.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id).Scan(
		&p.ID, &p.Title, &p.Body, &p.Author, &p.CommunitySlug, &p.Upvotes, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Post{}, ErrNotFound
	}
	if err != nil {
		return domain.Post{}, fmt.Errorf("select post: %w", err)
	}
	comments, err := r.commentsFor(ctx, q, []string{id})
	if err != nil {
		return domain.Post{}, err
	}
	p.Comments = comments[id]
	if p.Comments == nil {
		p.Comments = []domain.Comment{}
	}
	return p, nil
}

func (r *PgPostRepository) commentsFor(ctx context.Context, q pgQuerier, postIDs []string) (map[string][]domain.Comment, error) {
	const query = `
		SELECT id, post_id, author, text, created_at, updated_at
		FROM post_comments
		WHERE post_id = ANY($1)
		ORDER BY created_at ASC
	`
	rows, err := q.Query(ctx, query, postIDs)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Comment, len(postIDs))
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Author, &c.Text, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out[c.PostID] = append(out[c.PostID], c)
	}
	return out, rows.Err()
}

func insertPgPost(ctx context.Context, tx pgx.Tx, p domain.Post) error {
	const query = `
		INSERT INTO posts (id, title, body, author, community_slug, upvotes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.Exec(ctx, query, p.ID, p.Title, p.Body, p.Author, p.CommunitySlug, p.Upvotes, p.CreatedAt, p.UpdatedAt)
	if isPgUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	for _, c := range p.Comments {
		c.PostID = p.ID
		if err := insertPgComment(ctx, tx, c); err != nil {
			return err
		}
	}
	return nil
}

func insertPgComment(ctx context.Context, tx pgx.Tx, c domain.Comment) error {
	const query = `
		INSERT INTO post_comments (id, post_id, author, text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, query, c.ID, c.PostID, c.Author, c.Text, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

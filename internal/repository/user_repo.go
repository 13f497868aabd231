package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"forum-api/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, name, username, email, password_hash, created_at, updated_at`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, name, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		nullIfEmpty(user.Name),
		nullIfEmpty(user.Username),
		nullIfEmpty(user.Email),
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isPgUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PgUserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *PgUserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE ($1::text IS NOT NULL AND email = $1)
			   OR ($2::text IS NOT NULL AND username = $2)
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, nullIfEmpty(email), nullIfEmpty(username)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (r *PgUserRepository) getOne(ctx context.Context, query string, arg string) (domain.User, error) {
	var (
		u                     domain.User
		name, username, email *string
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&name,
		&username,
		&email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	u.Name = fromNull(name)
	u.Username = fromNull(username)
	u.Email = fromNull(email)
	return u, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"forum-api/internal/domain"
)

// Formato de ancho fijo: el orden lexicografico coincide con el cronologico.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatSqliteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSqliteTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, s)
}

// SqliteUserRepository implementa UserRepository sobre SQLite (modernc.org/sqlite).
type SqliteUserRepository struct {
	db *sql.DB
}

func NewSqliteUserRepository(db *sql.DB) *SqliteUserRepository {
	return &SqliteUserRepository{db: db}
}

func (r *SqliteUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, name, username, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		nullIfEmpty(user.Name),
		nullIfEmpty(user.Username),
		nullIfEmpty(user.Email),
		user.PasswordHash,
		formatSqliteTime(user.CreatedAt),
		formatSqliteTime(user.UpdatedAt),
	)
	if isSqliteUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *SqliteUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *SqliteUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *SqliteUserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *SqliteUserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE (?1 IS NOT NULL AND email = ?1)
			   OR (?2 IS NOT NULL AND username = ?2)
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, nullIfEmpty(email), nullIfEmpty(username)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (r *SqliteUserRepository) getOne(ctx context.Context, query string, arg string) (domain.User, error) {
	var (
		u                     domain.User
		name, username, email sql.NullString
		createdAt, updatedAt  string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&name,
		&username,
		&email,
		&u.PasswordHash,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	u.Name = name.String
	u.Username = username.String
	u.Email = email.String
	if u.CreatedAt, err = parseSqliteTime(createdAt); err != nil {
		return domain.User{}, fmt.Errorf("parse created_at: %w", err)
	}
	if u.UpdatedAt, err = parseSqliteTime(updatedAt); err != nil {
		return domain.User{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return u, nil
}

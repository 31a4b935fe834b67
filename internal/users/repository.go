package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warden-hq/warden/internal/shared"
)

// Repository provides PostgreSQL backed persistence for user accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `u.id, u.name, u.email, u.password_hash, u.is_admin, u.is_active, u.created_at, u.updated_at,
COALESCE((SELECT array_agg(r.name ORDER BY r.name) FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = u.id), '{}')`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.Roles)
	return u, err
}

// FindByID fetches a user with their role names.
func (r *Repository) FindByID(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// Create inserts a new account.
func (r *Repository) Create(ctx context.Context, u User) (User, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `
INSERT INTO users (name, email, password_hash, is_admin, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
RETURNING id, created_at, updated_at`,
		u.Name, u.Email, u.PasswordHash, u.IsAdmin, u.IsActive, now).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, mapUniqueViolation(err)
	}
	return u, nil
}

// Update overwrites name, email and credential hash.
func (r *Repository) Update(ctx context.Context, u User) (User, error) {
	err := r.pool.QueryRow(ctx, `
UPDATE users SET name = $2, email = $3, password_hash = $4, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`,
		u.ID, u.Name, u.Email, u.PasswordHash).
		Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, mapUniqueViolation(err)
	}
	return u, nil
}

// Delete removes the account. Association rows go with it via FK cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ReplaceRoles swaps the user's entire role assignment set.
func (r *Repository) ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if len(roleIDs) > 0 {
		if _, err := tx.Exec(ctx, `
INSERT INTO user_roles (user_id, role_id)
SELECT $1, unnest($2::bigint[])`, userID, roleIDs); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListFilters narrows user listings.
type ListFilters struct {
	Keyword string
	Role    string
	Page    int
	PerPage int
}

// List returns a page of users matching the filters plus the total count.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	page := shared.NewPagination(filters.Page, filters.PerPage, 0)
	keyword := ""
	if filters.Keyword != "" {
		keyword = "%" + filters.Keyword + "%"
	}

	const where = `
WHERE ($1 = '' OR u.name ILIKE $1 OR u.email ILIKE $1)
  AND ($2 = '' OR EXISTS (
      SELECT 1 FROM user_roles ur JOIN roles ro ON ro.id = ur.role_id
      WHERE ur.user_id = u.id AND ro.name = $2))`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users u`+where, keyword, filters.Role).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users u`+where+` ORDER BY u.id LIMIT $3 OFFSET $4`,
		keyword, filters.Role, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", shared.ErrDuplicateEmail, pgErr.ConstraintName)
	}
	return err
}

package rbac

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warden-hq/warden/internal/platform/db"
)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL backed store.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const rolePermissionsSQL = `
SELECT DISTINCT p.id, p.name, p.allowed
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
JOIN user_roles ur ON ur.role_id = rp.role_id
WHERE ur.user_id = $1
ORDER BY p.id`

// RolePermissions returns permissions reachable through the user's roles.
func (s *PGStore) RolePermissions(ctx context.Context, userID int64) ([]Permission, error) {
	return queryPermissions(ctx, s.pool, rolePermissionsSQL, userID)
}

// DirectPermissions returns the user's role-independent grants.
func (s *PGStore) DirectPermissions(ctx context.Context, userID int64) ([]Permission, error) {
	const q = `
SELECT p.id, p.name, p.allowed
FROM permissions p
JOIN user_permissions up ON up.permission_id = p.id
WHERE up.user_id = $1
ORDER BY p.id`
	return queryPermissions(ctx, s.pool, q, userID)
}

// ListPermissions returns the whole catalog ordered by id.
func (s *PGStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	return queryPermissions(ctx, s.pool, `SELECT id, name, allowed FROM permissions ORDER BY id`)
}

// WithUserLock opens a transaction, takes an advisory lock on the user id
// and runs fn against a transactional store view.
func (s *PGStore) WithUserLock(ctx context.Context, userID int64, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := db.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		return fn(ctx, &pgTxStore{tx: tx})
	})
}

type pgTxStore struct {
	tx pgx.Tx
}

func (t *pgTxStore) RolePermissions(ctx context.Context, userID int64) ([]Permission, error) {
	return queryPermissions(ctx, t.tx, rolePermissionsSQL, userID)
}

func (t *pgTxStore) AllowedPermissions(ctx context.Context, ids []int64) ([]Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const q = `SELECT id, name, allowed FROM permissions WHERE id = ANY($1) AND allowed ORDER BY id`
	return queryPermissions(ctx, t.tx, q, ids)
}

func (t *pgTxStore) ReplaceDirectPermissions(ctx context.Context, userID int64, ids []int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx, `
INSERT INTO user_permissions (user_id, permission_id)
SELECT $1, unnest($2::bigint[])`, userID, ids)
	return err
}

func queryPermissions(ctx context.Context, q rowQuerier, sql string, args ...any) ([]Permission, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Allowed); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

var _ Store = (*PGStore)(nil)

package rbac

import "context"

// Store provides access to the permission catalog and its associations.
// Pure data access; policy lives in the gate and the reconciler.
type Store interface {
	// RolePermissions returns the permissions a user inherits through
	// every role currently assigned to them.
	RolePermissions(ctx context.Context, userID int64) ([]Permission, error)
	// DirectPermissions returns the grants a user holds independent of
	// role membership.
	DirectPermissions(ctx context.Context, userID int64) ([]Permission, error)
	// ListPermissions returns the full permission catalog.
	ListPermissions(ctx context.Context) ([]Permission, error)
	// WithUserLock runs fn while holding an exclusive per-user lock so a
	// read-compute-write sequence for one user cannot interleave with
	// another for the same user.
	WithUserLock(ctx context.Context, userID int64, fn func(context.Context, TxStore) error) error
}

// TxStore exposes the association operations available under a user lock.
type TxStore interface {
	RolePermissions(ctx context.Context, userID int64) ([]Permission, error)
	// AllowedPermissions resolves ids against the catalog, keeping only
	// entries flagged allowed. Unknown ids are absent from the result,
	// not an error.
	AllowedPermissions(ctx context.Context, ids []int64) ([]Permission, error)
	// ReplaceDirectPermissions swaps the user's entire direct-grant set.
	ReplaceDirectPermissions(ctx context.Context, userID int64, ids []int64) error
}

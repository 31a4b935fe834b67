package rbac

import (
	"context"
	"log/slog"
)

// Reconciler computes and persists the minimal set of direct grants for a
// user. A permission already reachable through a role is never stored as a
// direct grant, so "why does this user have permission X" always has a
// single answer: role or explicit override.
type Reconciler struct {
	store  Store
	logger *slog.Logger
}

// NewReconciler constructs a Reconciler.
func NewReconciler(store Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// Reconcile replaces the user's direct grants with the subset of requested
// ids that is allowed by the catalog and not already covered by a role.
// Unknown and disallowed ids are dropped silently. The whole read-compute-
// write sequence runs under the store's per-user lock; an empty request
// clears every direct grant while leaving role inheritance untouched.
func (r *Reconciler) Reconcile(ctx context.Context, userID int64, requested []int64) ([]Permission, error) {
	var granted []Permission
	err := r.store.WithUserLock(ctx, userID, func(ctx context.Context, tx TxStore) error {
		rolePerms, err := tx.RolePermissions(ctx, userID)
		if err != nil {
			return err
		}
		inherited := make(map[int64]struct{}, len(rolePerms))
		for _, p := range rolePerms {
			inherited[p.ID] = struct{}{}
		}

		seen := make(map[int64]struct{}, len(requested))
		newIDs := make([]int64, 0, len(requested))
		for _, id := range requested {
			if _, ok := inherited[id]; ok {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			newIDs = append(newIDs, id)
		}

		perms, err := tx.AllowedPermissions(ctx, newIDs)
		if err != nil {
			return err
		}
		ids := make([]int64, len(perms))
		for i, p := range perms {
			ids[i] = p.ID
		}
		if err := tx.ReplaceDirectPermissions(ctx, userID, ids); err != nil {
			return err
		}
		granted = perms
		return nil
	})
	if err != nil {
		return nil, err
	}
	if r.logger != nil {
		r.logger.Debug("direct grants reconciled",
			slog.Int64("user_id", userID),
			slog.Int("requested", len(requested)),
			slog.Int("stored", len(granted)))
	}
	return granted, nil
}

package rbac

import (
	"context"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// Resolver answers permission queries for a user. It never caches across
// mutations; singleflight only collapses concurrent duplicate reads so the
// answer always reflects the latest committed assignment state.
type Resolver struct {
	store Store
	group singleflight.Group
}

// NewResolver constructs a Resolver.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// InheritedPermissions returns the deduplicated union of permissions across
// every role assigned to the user.
func (r *Resolver) InheritedPermissions(ctx context.Context, userID int64) ([]Permission, error) {
	perms, err := r.store.RolePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dedupPermissions(perms), nil
}

// DirectPermissions returns the grants held independent of role membership.
func (r *Resolver) DirectPermissions(ctx context.Context, userID int64) ([]Permission, error) {
	perms, err := r.store.DirectPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dedupPermissions(perms), nil
}

// EffectivePermissionNames returns the names of every permission the user
// holds, direct or inherited. Concurrent calls for the same user share one
// store round trip.
func (r *Resolver) EffectivePermissionNames(ctx context.Context, userID int64) ([]string, error) {
	v, err, _ := r.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		direct, err := r.store.DirectPermissions(ctx, userID)
		if err != nil {
			return nil, err
		}
		inherited, err := r.store.RolePermissions(ctx, userID)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(direct)+len(inherited))
		names := make([]string, 0, len(direct)+len(inherited))
		for _, p := range append(direct, inherited...) {
			if _, ok := seen[p.Name]; ok {
				continue
			}
			seen[p.Name] = struct{}{}
			names = append(names, p.Name)
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func dedupPermissions(perms []Permission) []Permission {
	seen := make(map[int64]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

package rbac

import (
	"context"
	"sync"
)

// memoryStore implements Store for tests.
type memoryStore struct {
	mu        sync.Mutex
	catalog   map[int64]Permission
	rolePerms map[int64][]int64
	userRoles map[int64][]int64
	direct    map[int64][]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		catalog:   make(map[int64]Permission),
		rolePerms: make(map[int64][]int64),
		userRoles: make(map[int64][]int64),
		direct:    make(map[int64][]int64),
	}
}

func (s *memoryStore) addPermission(p Permission) {
	s.catalog[p.ID] = p
}

func (s *memoryStore) grantRole(roleID int64, permIDs ...int64) {
	s.rolePerms[roleID] = append(s.rolePerms[roleID], permIDs...)
}

func (s *memoryStore) assignRole(userID, roleID int64) {
	s.userRoles[userID] = append(s.userRoles[userID], roleID)
}

func (s *memoryStore) RolePermissions(_ context.Context, userID int64) ([]Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rolePermissionsLocked(userID), nil
}

func (s *memoryStore) rolePermissionsLocked(userID int64) []Permission {
	var perms []Permission
	for _, roleID := range s.userRoles[userID] {
		for _, permID := range s.rolePerms[roleID] {
			if p, ok := s.catalog[permID]; ok {
				perms = append(perms, p)
			}
		}
	}
	return perms
}

func (s *memoryStore) DirectPermissions(_ context.Context, userID int64) ([]Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var perms []Permission
	for _, id := range s.direct[userID] {
		if p, ok := s.catalog[id]; ok {
			perms = append(perms, p)
		}
	}
	return perms, nil
}

func (s *memoryStore) ListPermissions(_ context.Context) ([]Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	perms := make([]Permission, 0, len(s.catalog))
	for _, p := range s.catalog {
		perms = append(perms, p)
	}
	return perms, nil
}

func (s *memoryStore) WithUserLock(ctx context.Context, _ int64, fn func(context.Context, TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, (*memoryTxStore)(s))
}

type memoryTxStore memoryStore

func (t *memoryTxStore) RolePermissions(_ context.Context, userID int64) ([]Permission, error) {
	return (*memoryStore)(t).rolePermissionsLocked(userID), nil
}

func (t *memoryTxStore) AllowedPermissions(_ context.Context, ids []int64) ([]Permission, error) {
	var perms []Permission
	for _, id := range ids {
		if p, ok := t.catalog[id]; ok && p.Allowed {
			perms = append(perms, p)
		}
	}
	return perms, nil
}

func (t *memoryTxStore) ReplaceDirectPermissions(_ context.Context, userID int64, ids []int64) error {
	t.direct[userID] = append([]int64(nil), ids...)
	return nil
}

var (
	_ Store   = (*memoryStore)(nil)
	_ TxStore = (*memoryTxStore)(nil)
)

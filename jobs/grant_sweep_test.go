package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/warden-hq/warden/internal/jobs"
	"github.com/warden-hq/warden/internal/rbac"
)

type sweepStore struct {
	catalog map[int64]rbac.Permission
	roles   map[int64][]int64
	direct  map[int64][]int64
}

func (s *sweepStore) RolePermissions(ctx context.Context, userID int64) ([]rbac.Permission, error) {
	return s.lookup(s.roles[userID]), nil
}

func (s *sweepStore) DirectPermissions(ctx context.Context, userID int64) ([]rbac.Permission, error) {
	return s.lookup(s.direct[userID]), nil
}

func (s *sweepStore) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	perms := make([]rbac.Permission, 0, len(s.catalog))
	for _, p := range s.catalog {
		perms = append(perms, p)
	}
	return perms, nil
}

func (s *sweepStore) WithUserLock(ctx context.Context, userID int64, fn func(context.Context, rbac.TxStore) error) error {
	return fn(ctx, &sweepTxStore{store: s})
}

func (s *sweepStore) lookup(ids []int64) []rbac.Permission {
	perms := make([]rbac.Permission, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.catalog[id]; ok {
			perms = append(perms, p)
		}
	}
	return perms
}

type sweepTxStore struct {
	store *sweepStore
}

func (t *sweepTxStore) RolePermissions(ctx context.Context, userID int64) ([]rbac.Permission, error) {
	return t.store.RolePermissions(ctx, userID)
}

func (t *sweepTxStore) AllowedPermissions(ctx context.Context, ids []int64) ([]rbac.Permission, error) {
	perms := make([]rbac.Permission, 0, len(ids))
	for _, id := range ids {
		if p, ok := t.store.catalog[id]; ok && p.Allowed {
			perms = append(perms, p)
		}
	}
	return perms, nil
}

func (t *sweepTxStore) ReplaceDirectPermissions(ctx context.Context, userID int64, ids []int64) error {
	t.store.direct[userID] = append([]int64(nil), ids...)
	return nil
}

func TestGrantSweepDropsRoleCoveredGrants(t *testing.T) {
	store := &sweepStore{
		catalog: map[int64]rbac.Permission{
			1: {ID: 1, Name: "reports.view", Allowed: true},
			2: {ID: 2, Name: "reports.edit", Allowed: true},
			3: {ID: 3, Name: "exports.run", Allowed: true},
		},
		roles:  map[int64][]int64{7: {1, 2}},
		direct: map[int64][]int64{7: {1, 3}},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := NewGrantSweepJob(store, rbac.NewReconciler(store, logger), nil, logger, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewGrantSweepTask(GrantSweepPayload{UserID: 7})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []int64{3}, store.direct[7])
}

func TestGrantSweepLeavesCleanAccountsUntouched(t *testing.T) {
	store := &sweepStore{
		catalog: map[int64]rbac.Permission{
			1: {ID: 1, Name: "reports.view", Allowed: true},
			3: {ID: 3, Name: "exports.run", Allowed: true},
		},
		roles:  map[int64][]int64{7: {1}},
		direct: map[int64][]int64{7: {3}},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	job := NewGrantSweepJob(store, rbac.NewReconciler(store, logger), nil, logger, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewGrantSweepTask(GrantSweepPayload{UserID: 7})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []int64{3}, store.direct[7])
}

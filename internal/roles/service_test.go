package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warden-hq/warden/internal/shared"
)

type stubRepo struct {
	roles map[string]Role
}

func (s *stubRepo) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	return out, nil
}

func (s *stubRepo) FindByName(ctx context.Context, name string) (Role, error) {
	if r, ok := s.roles[name]; ok {
		return r, nil
	}
	return Role{}, shared.ErrNotFound
}

func TestFindByNameResolvesKnownRole(t *testing.T) {
	svc := NewService(&stubRepo{roles: map[string]Role{
		"editor": {ID: 10, Name: "editor"},
	}})

	role, err := svc.FindByName(context.Background(), "  editor  ")
	require.NoError(t, err)
	require.Equal(t, int64(10), role.ID)
}

func TestFindByNameMapsUnknownRole(t *testing.T) {
	svc := NewService(&stubRepo{roles: map[string]Role{}})

	_, err := svc.FindByName(context.Background(), "ghost")
	require.ErrorIs(t, err, shared.ErrUnknownRole)

	_, err = svc.FindByName(context.Background(), "")
	require.ErrorIs(t, err, shared.ErrUnknownRole)
}

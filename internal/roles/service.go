package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/warden-hq/warden/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	FindByName(ctx context.Context, name string) (Role, error)
}

// Service handles role lookups.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// FindByName resolves a role by name. An unknown name is a validation
// problem for callers creating accounts, so it maps to ErrUnknownRole.
func (s *Service) FindByName(ctx context.Context, name string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: empty role name", shared.ErrUnknownRole)
	}
	role, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Role{}, fmt.Errorf("%w: %s", shared.ErrUnknownRole, name)
		}
		return Role{}, err
	}
	return role, nil
}

package users

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/warden-hq/warden/internal/rbac"
	"github.com/warden-hq/warden/internal/roles"
	"github.com/warden-hq/warden/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	FindByID(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id int64) error
	ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error
	List(ctx context.Context, filters ListFilters) ([]User, int, error)
}

// RolePort resolves role definitions by name.
type RolePort interface {
	FindByName(ctx context.Context, name string) (roles.Role, error)
}

// GatePort runs the authorization chain ahead of every mutation.
type GatePort interface {
	Check(ctx context.Context, target *rbac.Subject, actor rbac.Principal, opts rbac.CheckOptions) (*rbac.Denial, error)
}

// ReconcilerPort replaces a user's direct grants.
type ReconcilerPort interface {
	Reconcile(ctx context.Context, userID int64, requested []int64) ([]rbac.Permission, error)
}

// ResolverPort answers permission queries.
type ResolverPort interface {
	InheritedPermissions(ctx context.Context, userID int64) ([]rbac.Permission, error)
	DirectPermissions(ctx context.Context, userID int64) ([]rbac.Permission, error)
}

// Service orchestrates the account lifecycle. Every mutation passes through
// the gate before it reaches the repository or the reconciler.
type Service struct {
	repo       RepositoryPort
	roles      RolePort
	gate       GatePort
	reconciler ReconcilerPort
	resolver   ResolverPort
	logger     *slog.Logger
	bcryptCost int
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, rolePort RolePort, gate GatePort, reconciler ReconcilerPort, resolver ResolverPort, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, roles: rolePort, gate: gate, reconciler: reconciler, resolver: resolver, logger: logger, bcryptCost: bcryptCost}
}

// CreateInput carries the validated fields for account creation.
type CreateInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// UpdateInput carries the validated fields for a profile update. A nil
// Password means the caller did not supply a new credential and the stored
// hash stays untouched.
type UpdateInput struct {
	Name     string
	Email    string
	Password *string
}

// PermissionGrants separates override grants from inherited ones so callers
// can tell the two apart; the sets are never merged.
type PermissionGrants struct {
	Direct    []rbac.Permission
	Inherited []rbac.Permission
}

// Create persists a new account with a hashed credential and assigns exactly
// the named role. An unknown role name surfaces as shared.ErrUnknownRole.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	role, err := s.roles.FindByName(ctx, input.Role)
	if err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.Create(ctx, User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		IsActive:     true,
	})
	if err != nil {
		return User{}, err
	}
	if err := s.repo.ReplaceRoles(ctx, user.ID, []int64{role.ID}); err != nil {
		return User{}, err
	}
	user.Roles = []string{role.Name}
	if s.logger != nil {
		s.logger.Info("user created", slog.Int64("user_id", user.ID), slog.String("role", role.Name))
	}
	return user, nil
}

// Get fetches a single account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns a filtered page of users.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]User, shared.Pagination, error) {
	list, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// Update overwrites name and email, and the credential only when a new one
// was supplied. Gated.
func (s *Service) Update(ctx context.Context, actor rbac.Principal, targetID int64, input UpdateInput) (User, *rbac.Denial, error) {
	target, denial, err := s.gated(ctx, actor, targetID, rbac.CheckOptions{})
	if denial != nil || err != nil {
		return User{}, denial, err
	}

	target.Name = input.Name
	target.Email = input.Email
	if input.Password != nil && *input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), s.bcryptCost)
		if err != nil {
			return User{}, nil, err
		}
		target.PasswordHash = string(hash)
	}

	updated, err := s.repo.Update(ctx, target)
	if err != nil {
		return User{}, nil, err
	}
	updated.Roles = target.Roles
	return updated, nil, nil
}

// ChangePermissions replaces the target's direct grants through the
// reconciler. Gated.
func (s *Service) ChangePermissions(ctx context.Context, actor rbac.Principal, targetID int64, permissionIDs []int64) (User, *rbac.Denial, error) {
	target, denial, err := s.gated(ctx, actor, targetID, rbac.CheckOptions{})
	if denial != nil || err != nil {
		return User{}, denial, err
	}
	if _, err := s.reconciler.Reconcile(ctx, targetID, permissionIDs); err != nil {
		return User{}, nil, err
	}
	return target, nil, nil
}

// Delete removes the account. The full gate chain applies here too, and a
// storage-layer failure is reported as a denial rather than propagated, so
// every mutating call shares the "did not happen, here is why" contract.
func (s *Service) Delete(ctx context.Context, actor rbac.Principal, targetID int64) (*rbac.Denial, error) {
	_, denial, err := s.gated(ctx, actor, targetID, rbac.CheckOptions{AdminMessage: "admin can not be deleted"})
	if denial != nil || err != nil {
		return denial, err
	}
	if err := s.repo.Delete(ctx, targetID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &rbac.Denial{Code: rbac.DenialNotFound, Message: "user not found"}, nil
		}
		if s.logger != nil {
			s.logger.Error("delete user failed", slog.Int64("user_id", targetID), slog.Any("error", err))
		}
		return &rbac.Denial{Code: rbac.DenialStorageFailure, Context: "delete", Message: err.Error()}, nil
	}
	return nil, nil
}

// ListPermissions returns direct and role-inherited grants as two distinct
// sets. Read-only; not gated.
func (s *Service) ListPermissions(ctx context.Context, targetID int64) (PermissionGrants, error) {
	direct, err := s.resolver.DirectPermissions(ctx, targetID)
	if err != nil {
		return PermissionGrants{}, err
	}
	inherited, err := s.resolver.InheritedPermissions(ctx, targetID)
	if err != nil {
		return PermissionGrants{}, err
	}
	return PermissionGrants{Direct: direct, Inherited: inherited}, nil
}

// gated resolves the target and runs the authorization chain. A missing
// target is handed to the gate as nil so the denial ordering stays in one
// place.
func (s *Service) gated(ctx context.Context, actor rbac.Principal, targetID int64, opts rbac.CheckOptions) (User, *rbac.Denial, error) {
	target, err := s.repo.FindByID(ctx, targetID)
	var subject *rbac.Subject
	switch {
	case err == nil:
		subject = &rbac.Subject{ID: target.ID, Admin: target.IsAdmin}
	case errors.Is(err, shared.ErrNotFound):
		subject = nil
	default:
		return User{}, nil, err
	}
	denial, err := s.gate.Check(ctx, subject, actor, opts)
	if err != nil {
		return User{}, nil, err
	}
	if denial != nil {
		return User{}, denial, nil
	}
	return target, nil, nil
}

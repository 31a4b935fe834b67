package rbac

import (
	"context"

	"github.com/warden-hq/warden/internal/shared"
)

// Default denial messages.
const (
	msgUserNotFound     = "user not found"
	msgAdminImmutable   = "admin can not be modified"
	msgPermissionDenied = "permission denied"
)

// CapabilitySource answers which permissions an actor effectively holds.
type CapabilitySource interface {
	EffectivePermissionNames(ctx context.Context, userID int64) ([]string, error)
}

// Gate is the ordered chain of authorization checks run before any mutation
// of a user account. Checks short-circuit: the first failing check produces
// the denial, and ordering matters because the denial must describe the most
// specific applicable failure (absence before immutability, immutability
// before actor authority).
type Gate struct {
	caps CapabilitySource
}

// NewGate constructs a Gate.
func NewGate(caps CapabilitySource) *Gate {
	return &Gate{caps: caps}
}

// CheckOptions tunes per-operation gate behavior.
type CheckOptions struct {
	// AdminMessage overrides the immutability denial message; the delete
	// path supplies its own wording.
	AdminMessage string
}

// Check evaluates the chain for a mutation of target by actor. A nil target
// means the account reference did not resolve. The returned Denial is nil
// when the operation may proceed; the error return carries only store
// faults from the capability lookup.
func (g *Gate) Check(ctx context.Context, target *Subject, actor Principal, opts CheckOptions) (*Denial, error) {
	if target == nil {
		return &Denial{Code: DenialNotFound, Message: msgUserNotFound}, nil
	}
	if target.Admin {
		msg := opts.AdminMessage
		if msg == "" {
			msg = msgAdminImmutable
		}
		return &Denial{Code: DenialForbidden, Context: "admin", Message: msg}, nil
	}
	if actor.IsSuperUser() {
		return nil, nil
	}
	if actor.GetID() == target.ID {
		return nil, nil
	}
	names, err := g.caps.EffectivePermissionNames(ctx, actor.GetID())
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if name == shared.PermUserManage {
			return nil, nil
		}
	}
	return &Denial{Code: DenialForbidden, Context: "actor", Message: msgPermissionDenied}, nil
}

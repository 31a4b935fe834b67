package shared

import "context"

// Principal identifies the authenticated actor attached to a request.
type Principal struct {
	ID    int64
	Email string
	Admin bool
}

// GetID returns the actor's user id.
func (p Principal) GetID() int64 { return p.ID }

// IsSuperUser reports whether the actor carries the admin flag.
func (p Principal) IsSuperUser() bool { return p.Admin }

type principalContextKey struct{}

// ContextWithPrincipal stores the acting principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the acting principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

package shared

import (
	"context"
	"strings"
)

// Role identifies the viewer's dashboard.
type Role string

const (
	RoleAgent      Role = "agent"
	RoleFinance    Role = "finance"
	RoleCEO        Role = "ceo"
	RoleCompliance Role = "compliance"
	RoleAdmin      Role = "admin"
)

// ParseRole normalises a role header value. Unknown values map to RoleAgent, the least privileged role.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleFinance:
		return RoleFinance
	case RoleCEO:
		return RoleCEO
	case RoleCompliance:
		return RoleCompliance
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleAgent
	}
}

// Principal describes the viewer as asserted by the upstream gateway.
type Principal struct {
	SessionID     string
	UserID        string
	Role          Role
	Authorization string
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

package auth

import (
	"context"
	"strings"
)

// Role represents a user role.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

var roleRanks = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// NormalizeRole validates a role string, ignoring case.
func NormalizeRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := roleRanks[role]; !ok {
		return "", false
	}
	return role, true
}

// RoleAtLeast returns true when role satisfies required role.
func RoleAtLeast(role Role, required Role) bool {
	return roleRanks[role] >= roleRanks[required]
}

// Identity is the authenticated caller. An empty Grids list means every grid
// of the tenant is visible.
type Identity struct {
	TenantID string
	Role     Role
	Subject  string
	Grids    []string
}

type identityKey struct{}

// WithIdentity stores the caller identity in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext extracts the caller identity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// TenantIDFromContext extracts tenant id from context.
func TenantIDFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.TenantID
}

// RoleFromContext extracts role from context.
func RoleFromContext(ctx context.Context) Role {
	id, _ := IdentityFromContext(ctx)
	return id.Role
}

// SubjectFromContext extracts subject from context.
func SubjectFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.Subject
}

// CanAccessGrid reports whether the caller may read or write a grid.
// Requests without an identity (auth disabled) see every grid.
func CanAccessGrid(ctx context.Context, grid string) bool {
	id, ok := IdentityFromContext(ctx)
	if !ok || len(id.Grids) == 0 {
		return true
	}
	for _, g := range id.Grids {
		if strings.EqualFold(g, grid) {
			return true
		}
	}
	return false
}

// EnsureGridAccess returns ErrGridScope when grid is outside the caller's scope.
func EnsureGridAccess(ctx context.Context, grid string) error {
	if grid == "" || CanAccessGrid(ctx, grid) {
		return nil
	}
	return ErrGridScope
}

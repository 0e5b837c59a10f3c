package auth

import (
	"context"
	"errors"
	"fmt"
)

// Role is the capability tier of a principal.
type Role string

const (
	// RoleClient is the ordinary tier.
	RoleClient Role = "client"
	// RoleAdmin is the elevated tier.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin is the top-elevated tier.
	RoleSuperAdmin Role = "super_admin"
)

// ValidRoles lists every assignable role.
var ValidRoles = []Role{RoleClient, RoleAdmin, RoleSuperAdmin}

// ErrUnknownRole is returned by ParseRole for values outside ValidRoles.
var ErrUnknownRole = errors.New("auth: unknown role")

// ParseRole converts a stored or submitted role tag into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if r.Valid() {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Valid reports whether r is one of ValidRoles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsElevated reports whether r is admin or super_admin.
func (r Role) IsElevated() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func (r Role) String() string {
	return string(r)
}

// Principal is an account as seen by the guard. An empty Role means no role
// is assigned.
type Principal struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Active bool   `json:"is_active"`
}

// ErrPrincipalNotFound must be returned by a CredentialStore when no account
// has the requested identifier.
var ErrPrincipalNotFound = errors.New("auth: principal not found")

// CredentialStore looks up principals by identifier. Implementations must
// hit the backing store on every call.
type CredentialStore interface {
	LookupPrincipal(ctx context.Context, id string) (Principal, error)
}

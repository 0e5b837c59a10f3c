package users

import (
	"fmt"
	"strings"
	"time"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/shared"
)

// User is an account row. An empty Role means no role is assigned.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Role          auth.Role `json:"role"`
	IsActive      bool      `json:"is_active"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Principal projects the user onto the guard's view of an account.
func (u User) Principal() auth.Principal {
	return auth.Principal{ID: u.ID, Email: u.Email, Role: u.Role, Active: u.IsActive}
}

// RegisterInput is the self-service signup payload.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// CreateClientInput is the admin payload for provisioning a client account.
type CreateClientInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// NewProfile seeds the client profile inserted with an account.
type NewProfile struct {
	ID        string
	FirstName string
	LastName  string
}

// LoginInput is the password login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SetActiveInput toggles an account.
type SetActiveInput struct {
	Active *bool `json:"active" validate:"required"`
}

// SetRoleInput assigns a role tier.
type SetRoleInput struct {
	Role string `json:"role" validate:"required,oneof=client admin super_admin"`
}

// ListFilter narrows the admin user listing.
type ListFilter struct {
	Role auth.Role
	Page shared.Page
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        User   `json:"user"`
}

var (
	// ErrEmailTaken is returned when registering an existing address.
	ErrEmailTaken = fmt.Errorf("%w: email already registered", shared.ErrConflict)
	// ErrAccountInactive is returned when a disabled account logs in.
	ErrAccountInactive = fmt.Errorf("%w: account inactive", shared.ErrInvalidCredentials)
	// ErrSelfModification blocks admins from changing their own role or status.
	ErrSelfModification = fmt.Errorf("%w: cannot change your own account", shared.ErrConflict)
	// ErrOutranked blocks admins from toggling super_admin accounts.
	ErrOutranked = fmt.Errorf("%w: target account outranks you", shared.ErrForbidden)
)

// NormalizeEmail lowercases and trims an address for lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

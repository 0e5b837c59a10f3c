package shared

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation indicates a payload failed validation.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a uniqueness or state conflict.
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates the actor may not touch the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrTooManyRequests indicates the caller is temporarily locked out.
	ErrTooManyRequests = errors.New("too many requests")
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a postgres unique constraint
// violation, optionally restricted to the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// UserSafeMessage returns a message that can be shown to API clients.
func UserSafeMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrNotFound):
		return "resource not found"
	case errors.Is(err, ErrConflict):
		return unwrapMessage(err)
	case errors.Is(err, ErrForbidden):
		return "access denied"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, ErrTooManyRequests):
		return "too many attempts, try again later"
	default:
		return "internal error"
	}
}

func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

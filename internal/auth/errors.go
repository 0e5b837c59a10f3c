package auth

import (
	"errors"
	"fmt"
)

// Kind tags a guard failure. The tag is what gets logged and counted.
type Kind string

const (
	KindMissingCredential Kind = "missing_credential"
	KindInvalidInput      Kind = "invalid_input"
	KindExpiredToken      Kind = "expired_token"
	KindNotYetValid       Kind = "not_yet_valid"
	KindMalformedToken    Kind = "malformed_token"
	KindUnknownPrincipal  Kind = "unknown_principal"
	KindInactiveAccount   Kind = "inactive_account"
	KindInsufficientRole  Kind = "insufficient_role"
	KindNoRoleAssigned    Kind = "no_role_assigned"
)

// Sentinels matched with errors.Is against an *Error.
var (
	ErrMissingCredential = errors.New("auth: missing credential")
	ErrInvalidInput      = errors.New("auth: invalid input")
	ErrExpiredToken      = errors.New("auth: token expired")
	ErrNotYetValid       = errors.New("auth: token not yet valid")
	ErrMalformedToken    = errors.New("auth: token malformed")
	ErrUnknownPrincipal  = errors.New("auth: unknown principal")
	ErrInactiveAccount   = errors.New("auth: account inactive")
	ErrInsufficientRole  = errors.New("auth: insufficient role")
	ErrNoRoleAssigned    = errors.New("auth: no role assigned")
)

var sentinels = map[Kind]error{
	KindMissingCredential: ErrMissingCredential,
	KindInvalidInput:      ErrInvalidInput,
	KindExpiredToken:      ErrExpiredToken,
	KindNotYetValid:       ErrNotYetValid,
	KindMalformedToken:    ErrMalformedToken,
	KindUnknownPrincipal:  ErrUnknownPrincipal,
	KindInactiveAccount:   ErrInactiveAccount,
	KindInsufficientRole:  ErrInsufficientRole,
	KindNoRoleAssigned:    ErrNoRoleAssigned,
}

// Error is a guard failure. It matches its Kind's sentinel and, when set,
// the underlying cause.
type Error struct {
	Kind    Kind
	Subject string
	Cause   error
}

func newError(kind Kind, subject string, cause error) *Error {
	return &Error{Kind: kind, Subject: subject, Cause: cause}
}

func (e *Error) Error() string {
	msg := sentinels[e.Kind].Error()
	if e.Subject != "" {
		msg = fmt.Sprintf("%s (subject %s)", msg, e.Subject)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := []error{sentinels[e.Kind]}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Outcome is the externally visible class of a guard failure.
type Outcome int

const (
	// OutcomeNone means the error did not come from the guard.
	OutcomeNone Outcome = iota
	// OutcomeNoCredential means no bearer credential was supplied.
	OutcomeNoCredential
	// OutcomeInvalidCredential means the credential or its account failed a check.
	OutcomeInvalidCredential
	// OutcomeForbidden means the principal lacks the required role.
	OutcomeForbidden
)

// Outcome returns the external class of e.
func (e *Error) Outcome() Outcome {
	switch e.Kind {
	case KindMissingCredential:
		return OutcomeNoCredential
	case KindInsufficientRole, KindNoRoleAssigned:
		return OutcomeForbidden
	default:
		return OutcomeInvalidCredential
	}
}

// KindOf returns the Kind of a guard failure, or "" for other errors.
func KindOf(err error) Kind {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Kind
	}
	return ""
}

// OutcomeOf classifies err for the HTTP boundary.
func OutcomeOf(err error) Outcome {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Outcome()
	}
	return OutcomeNone
}

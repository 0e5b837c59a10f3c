package auth

import (
	"context"
	"errors"
	"fmt"
)

// Resolver turns verified claims into a live principal.
type Resolver struct {
	store CredentialStore
}

// NewResolver returns a resolver over store.
func NewResolver(store CredentialStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve loads the claims subject. It fails with UnknownPrincipal when the
// account is gone and InactiveAccount when it is disabled. Store failures
// are returned wrapped and are not guard failures.
func (r *Resolver) Resolve(ctx context.Context, claims Claims) (Principal, error) {
	p, err := r.store.LookupPrincipal(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return Principal{}, newError(KindUnknownPrincipal, claims.Subject, nil)
		}
		return Principal{}, fmt.Errorf("auth: lookup principal %s: %w", claims.Subject, err)
	}
	if !p.Active {
		return Principal{}, newError(KindInactiveAccount, claims.Subject, nil)
	}
	return p, nil
}

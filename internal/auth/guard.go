package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// FailureRecorder counts guard failures by reason tag.
type FailureRecorder interface {
	RecordAuthFailure(reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthFailure(string) {}

// Guard composes issuer, verifier, resolver and gates. It is safe for
// concurrent use once constructed.
type Guard struct {
	issuer   *Issuer
	verifier *Verifier
	resolver *Resolver
	logger   *slog.Logger
	failures FailureRecorder
}

// GuardOption customises a Guard.
type GuardOption func(*Guard)

// WithLifetime overrides DefaultTokenLifetime.
func WithLifetime(d time.Duration) GuardOption {
	return func(g *Guard) {
		g.issuer.lifetime = d
	}
}

// WithClock replaces time.Now for issuing and verifying.
func WithClock(c Clock) GuardOption {
	return func(g *Guard) {
		g.issuer.clock = c
		g.verifier = NewVerifier(g.verifier.key, c)
	}
}

// WithLogger sets the logger failures are reported to.
func WithLogger(l *slog.Logger) GuardOption {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithFailureRecorder sets the failure counter.
func WithFailureRecorder(r FailureRecorder) GuardOption {
	return func(g *Guard) {
		if r != nil {
			g.failures = r
		}
	}
}

// NewGuard builds a guard around a single signing key and credential store.
func NewGuard(key SigningKey, store CredentialStore, opts ...GuardOption) *Guard {
	g := &Guard{
		issuer:   NewIssuer(key, DefaultTokenLifetime, nil),
		verifier: NewVerifier(key, nil),
		resolver: NewResolver(store),
		logger:   slog.Default(),
		failures: nopRecorder{},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.issuer.lifetime <= 0 {
		g.issuer.lifetime = DefaultTokenLifetime
	}
	return g
}

// TokenLifetime reports how long issued tokens stay valid.
func (g *Guard) TokenLifetime() time.Duration {
	return g.issuer.Lifetime()
}

// IssueToken mints a token for subject.
func (g *Guard) IssueToken(subject string) (string, error) {
	token, err := g.issuer.Issue(subject)
	if err != nil {
		g.reject(context.Background(), err)
		return "", err
	}
	return token, nil
}

// Authenticate verifies token and resolves its subject to an active
// principal. An empty token is reported as a missing credential.
func (g *Guard) Authenticate(ctx context.Context, token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		err := newError(KindMissingCredential, "", nil)
		g.reject(ctx, err)
		return Principal{}, err
	}
	claims, err := g.verifier.Verify(token)
	if err != nil {
		g.reject(ctx, err)
		return Principal{}, err
	}
	p, err := g.resolver.Resolve(ctx, claims)
	if err != nil {
		g.reject(ctx, err)
		return Principal{}, err
	}
	return p, nil
}

// Authorize checks p against gate and returns it unchanged on success.
func (g *Guard) Authorize(ctx context.Context, p Principal, gate Gate) (Principal, error) {
	if err := gate.Allows(p); err != nil {
		g.reject(ctx, err, slog.String("gate", gate.String()), slog.String("role", string(p.Role)))
		return Principal{}, err
	}
	return p, nil
}

func (g *Guard) reject(ctx context.Context, err error, extra ...any) {
	var aerr *Error
	if !errors.As(err, &aerr) {
		g.logger.ErrorContext(ctx, "auth lookup failed", slog.Any("error", err))
		return
	}
	g.failures.RecordAuthFailure(string(aerr.Kind))
	attrs := []any{slog.String("reason", string(aerr.Kind))}
	if aerr.Subject != "" {
		attrs = append(attrs, slog.String("subject", aerr.Subject))
	}
	attrs = append(attrs, extra...)
	g.logger.WarnContext(ctx, "auth rejected", attrs...)
}

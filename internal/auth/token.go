package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenLifetime is applied when no lifetime is configured.
const DefaultTokenLifetime = 24 * time.Hour

// Claims are the verified contents of a bearer token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
}

// Clock returns the current time. Tests inject fixed clocks.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// Issuer mints bearer tokens.
type Issuer struct {
	key      SigningKey
	lifetime time.Duration
	clock    Clock
}

// NewIssuer returns an issuer. A non-positive lifetime selects
// DefaultTokenLifetime and a nil clock uses time.Now.
func NewIssuer(key SigningKey, lifetime time.Duration, clock Clock) *Issuer {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &Issuer{key: key, lifetime: lifetime, clock: clock}
}

// Lifetime returns the default validity window.
func (i *Issuer) Lifetime() time.Duration {
	return i.lifetime
}

// Issue mints a token for subject with the default lifetime.
func (i *Issuer) Issue(subject string) (string, error) {
	return i.IssueWithLifetime(subject, i.lifetime)
}

// IssueWithLifetime mints a token for subject valid from now for lifetime.
func (i *Issuer) IssueWithLifetime(subject string, lifetime time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", newError(KindInvalidInput, "", errors.New("empty subject"))
	}
	if lifetime <= 0 {
		return "", newError(KindInvalidInput, subject, errors.New("non-positive lifetime"))
	}
	if !i.key.valid() {
		return "", newError(KindInvalidInput, subject, errors.New("signing key not configured"))
	}
	now := i.clock.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
	}
	signed, err := jwt.NewWithClaims(i.key.method, claims).SignedString(i.key.secret)
	if err != nil {
		return "", newError(KindInvalidInput, subject, err)
	}
	return signed, nil
}

// Verifier checks bearer tokens against a single signing key and algorithm.
type Verifier struct {
	key    SigningKey
	clock  Clock
	parser *jwt.Parser
}

// NewVerifier returns a verifier. A nil clock uses time.Now.
func NewVerifier(key SigningKey, clock Clock) *Verifier {
	return &Verifier{
		key:   key,
		clock: clock,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{key.Algorithm()}),
			jwt.WithTimeFunc(clock.now),
			jwt.WithIssuedAt(),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify checks the token and returns its claims. Signature and algorithm
// are checked before the time bounds, so a tampered expired token is
// reported as malformed.
func (v *Verifier) Verify(token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, newError(KindMalformedToken, "", errors.New("empty token"))
	}

	var rc jwt.RegisteredClaims
	_, err := v.parser.ParseWithClaims(token, &rc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return v.key.secret, nil
	})
	if err != nil {
		return Claims{}, classifyParseError(err)
	}

	if rc.Subject == "" {
		return Claims{}, newError(KindMalformedToken, "", errors.New("missing subject"))
	}
	if rc.IssuedAt == nil || rc.NotBefore == nil {
		return Claims{}, newError(KindMalformedToken, rc.Subject, errors.New("missing time claims"))
	}

	return Claims{
		Subject:   rc.Subject,
		IssuedAt:  rc.IssuedAt.Time,
		NotBefore: rc.NotBefore.Time,
		ExpiresAt: rc.ExpiresAt.Time,
	}, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return newError(KindExpiredToken, "", err)
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return newError(KindNotYetValid, "", err)
	default:
		return newError(KindMalformedToken, "", err)
	}
}

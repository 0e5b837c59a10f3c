package auth

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = "HS256"

// MinSecretLength is the recommended minimum secret size in bytes.
const MinSecretLength = 32

var ErrUnsupportedAlgorithm = errors.New("auth: unsupported signing algorithm")

var supportedMethods = map[string]*jwt.SigningMethodHMAC{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// SigningKey is the process-wide secret plus the single algorithm tokens are
// signed and verified with.
type SigningKey struct {
	secret []byte
	method *jwt.SigningMethodHMAC
}

// NewSigningKey builds a key for the HMAC algorithm alg. An empty alg selects
// DefaultAlgorithm.
func NewSigningKey(secret []byte, alg string) (SigningKey, error) {
	if alg == "" {
		alg = DefaultAlgorithm
	}
	method, ok := supportedMethods[alg]
	if !ok {
		return SigningKey{}, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}
	if len(secret) == 0 {
		return SigningKey{}, errors.New("auth: empty signing secret")
	}
	buf := make([]byte, len(secret))
	copy(buf, secret)
	return SigningKey{secret: buf, method: method}, nil
}

// GenerateSigningKey creates a key with a random secret of MinSecretLength
// bytes. Tokens signed with it do not survive a restart.
func GenerateSigningKey(alg string) (SigningKey, error) {
	secret := make([]byte, MinSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return SigningKey{}, fmt.Errorf("auth: generate secret: %w", err)
	}
	return NewSigningKey(secret, alg)
}

// Algorithm returns the JWT alg header value.
func (k SigningKey) Algorithm() string {
	if k.method == nil {
		return ""
	}
	return k.method.Alg()
}

// Weak reports whether the secret is shorter than MinSecretLength.
func (k SigningKey) Weak() bool {
	return len(k.secret) < MinSecretLength
}

func (k SigningKey) valid() bool {
	return k.method != nil && len(k.secret) > 0
}

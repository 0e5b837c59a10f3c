package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gulfplacement/placement/internal/platform/httpx"
)

// Middleware wires the guard into HTTP handlers.
type Middleware struct {
	Guard  *Guard
	Logger *slog.Logger
}

// Authenticate requires a valid bearer token and stores the resolved
// principal on the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.Guard.Authenticate(r.Context(), BearerToken(r))
		if err != nil {
			RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

// Require checks the principal stored by Authenticate against gate. Mount it
// after Authenticate.
func (m Middleware) Require(gate Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				if m.Logger != nil {
					m.Logger.WarnContext(r.Context(), "gate mounted without authenticate",
						slog.String("path", r.URL.Path), slog.String("gate", gate.String()))
				}
				RespondError(w, newError(KindMissingCredential, "", nil))
				return
			}
			if _, err := m.Guard.Authorize(r.Context(), p, gate); err != nil {
				RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// It returns "" when the header is absent or uses another scheme.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RespondError writes the external form of a guard failure. Errors that did
// not come from the guard become 500s.
func RespondError(w http.ResponseWriter, err error) {
	switch OutcomeOf(err) {
	case OutcomeNoCredential:
		w.Header().Set("WWW-Authenticate", "Bearer")
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "credentials required")
	case OutcomeInvalidCredential:
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
	case OutcomeForbidden:
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "forbidden")
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

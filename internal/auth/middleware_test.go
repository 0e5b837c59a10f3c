package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                   "",
		"Bearer abc":         "abc",
		"bearer   abc  ":     "abc",
		"Basic dXNlcjpwdw==": "",
		"Bearer":             "",
		"abc":                "",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, BearerToken(req), "header %q", header)
	}
}

func TestMiddlewareOutcomes(t *testing.T) {
	store := newStubStore(
		Principal{ID: "c1", Role: RoleClient, Active: true},
		Principal{ID: "a1", Role: RoleAdmin, Active: true},
		Principal{ID: "s1", Role: RoleSuperAdmin, Active: true},
		Principal{ID: "off", Role: RoleAdmin, Active: false},
	)
	guard := newTestGuard(t, store)
	mw := Middleware{Guard: guard}

	var seen Principal
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	elevated := mw.Authenticate(mw.Require(GateElevated)(ok))
	top := mw.Authenticate(mw.Require(GateTopElevated)(ok))

	token := func(sub string) string {
		tok, err := guard.IssueToken(sub)
		require.NoError(t, err)
		return "Bearer " + tok
	}

	tests := []struct {
		name      string
		handler   http.Handler
		header    string
		status    int
		challenge string
	}{
		{name: "missing header", handler: elevated, status: http.StatusUnauthorized, challenge: "Bearer"},
		{name: "basic scheme", handler: elevated, header: "Basic dXNlcjpwdw==", status: http.StatusUnauthorized, challenge: "Bearer"},
		{name: "garbage token", handler: elevated, header: "Bearer nope", status: http.StatusUnauthorized, challenge: `Bearer error="invalid_token"`},
		{name: "inactive", handler: elevated, header: token("off"), status: http.StatusUnauthorized, challenge: `Bearer error="invalid_token"`},
		{name: "unknown", handler: elevated, header: token("ghost"), status: http.StatusUnauthorized, challenge: `Bearer error="invalid_token"`},
		{name: "client at elevated", handler: elevated, header: token("c1"), status: http.StatusForbidden},
		{name: "admin at elevated", handler: elevated, header: token("a1"), status: http.StatusNoContent},
		{name: "admin at top", handler: top, header: token("a1"), status: http.StatusForbidden},
		{name: "super at top", handler: top, header: token("s1"), status: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			tt.handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.challenge, rr.Header().Get("WWW-Authenticate"))
			if rr.Code >= 400 {
				assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", token("s1"))
	rr := httptest.NewRecorder()
	top.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "s1", seen.ID)
}

func TestRequireWithoutAuthenticate(t *testing.T) {
	mw := Middleware{Guard: newTestGuard(t, newStubStore())}
	h := mw.Require(GateElevated)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

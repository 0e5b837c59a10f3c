package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulfplacement/placement/internal/auth"
)

type testServer struct {
	router http.Handler
	repo   *mockRepository
	svc    *Service
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	repo := newMockRepository()
	guard := newTestGuard(t, repo)
	svc := newTestService(t, repo)
	h := NewHandler(nil, svc, auth.Middleware{Guard: guard})

	r := chi.NewRouter()
	r.Route("/api/auth", h.MountRoutes)
	r.Route("/api/admin/users", h.MountAdminRoutes)
	return testServer{router: r, repo: repo, svc: svc}
}

func (s testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out.AccessToken
}

func TestRegisterLoginMe(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, http.MethodPost, "/api/auth/register", "", `{"email":"jane@example.com","password":"s3cretpass"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "password")

	rr = srv.do(t, http.MethodPost, "/api/auth/register", "", `{"email":"jane@example.com","password":"s3cretpass"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	token := srv.login(t, "jane@example.com", "s3cretpass")

	rr = srv.do(t, http.MethodGet, "/api/auth/me", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var me User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, "jane@example.com", me.Email)
	assert.Equal(t, auth.RoleClient, me.Role)

	rr = srv.do(t, http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))

	rr = srv.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"jane@example.com","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdminUserRoutesAreGated(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, srv.svc.EnsureDefaultAdmin(ctx, "root@example.com", "rootpass1"))
	client, err := srv.svc.Register(ctx, RegisterInput{Email: "jane@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	staff, err := srv.svc.Register(ctx, RegisterInput{Email: "staff@example.com", Password: "staffpass"})
	require.NoError(t, err)
	root, err := srv.repo.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	_, err = srv.svc.SetRole(ctx, root.Principal(), staff.ID, SetRoleInput{Role: "admin"})
	require.NoError(t, err)

	rootToken := srv.login(t, "root@example.com", "rootpass1")
	staffToken := srv.login(t, "staff@example.com", "staffpass")
	clientToken := srv.login(t, "jane@example.com", "s3cretpass")

	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodGet, "/api/admin/users/", clientToken, "").Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/admin/users/", staffToken, "").Code)

	rr := srv.do(t, http.MethodGet, "/api/admin/users/?role=admin", rootToken, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var admins []User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &admins))
	require.Len(t, admins, 1)
	assert.Equal(t, staff.ID, admins[0].ID)

	path := "/api/admin/users/" + client.ID + "/active"
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodPut, path, clientToken, `{"active":false}`).Code)

	rr = srv.do(t, http.MethodPut, path, staffToken, `{"active":false}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// the client's earlier token stops working on the next request
	rr = srv.do(t, http.MethodGet, "/api/auth/me", clientToken, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, `Bearer error="invalid_token"`, rr.Header().Get("WWW-Authenticate"))

	rr = srv.do(t, http.MethodPut, "/api/admin/users/"+staff.ID+"/role", rootToken, `{"role":"client"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodGet, "/api/admin/users/", staffToken, "").Code)
}

func TestAdminCannotToggleSuperAdmin(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, srv.svc.EnsureDefaultAdmin(ctx, "root@example.com", "rootpass1"))
	root, err := srv.repo.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	staff, err := srv.svc.Register(ctx, RegisterInput{Email: "staff@example.com", Password: "staffpass"})
	require.NoError(t, err)
	other, err := srv.svc.Register(ctx, RegisterInput{Email: "other@example.com", Password: "otherpass"})
	require.NoError(t, err)
	_, err = srv.svc.SetRole(ctx, root.Principal(), staff.ID, SetRoleInput{Role: "admin"})
	require.NoError(t, err)
	_, err = srv.svc.SetRole(ctx, root.Principal(), other.ID, SetRoleInput{Role: "super_admin"})
	require.NoError(t, err)

	staffToken := srv.login(t, "staff@example.com", "staffpass")
	rootToken := srv.login(t, "root@example.com", "rootpass1")

	rr := srv.do(t, http.MethodPut, "/api/admin/users/"+root.ID+"/active", staffToken, `{"active":false}`)
	assert.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())
	stored, err := srv.repo.Get(ctx, root.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)

	rr = srv.do(t, http.MethodPut, "/api/admin/users/"+staff.ID+"/role", staffToken, `{"role":"super_admin"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = srv.do(t, http.MethodPut, "/api/admin/users/"+other.ID+"/active", rootToken, `{"active":false}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.False(t, updated.IsActive)
}

package users

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/shared"
	_ "github.com/gulfplacement/placement/testing"
)

func newTestGuard(t *testing.T, store auth.CredentialStore) *auth.Guard {
	t.Helper()
	key, err := auth.NewSigningKey([]byte("0123456789abcdef0123456789abcdef"), "HS256")
	require.NoError(t, err)
	return auth.NewGuard(key, store)
}

func newTestService(t *testing.T, repo *mockRepository, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithHashCost(bcrypt.MinCost)}, opts...)
	return NewService(repo, newTestGuard(t, repo), opts...)
}

func TestRegisterCreatesClientWithProfile(t *testing.T) {
	repo := newMockRepository()
	notifier := &recordingNotifier{}
	svc := newTestService(t, repo, WithNotifier(notifier))

	u, err := svc.Register(context.Background(), RegisterInput{Email: "  Jane@Example.com ", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, auth.RoleClient, u.Role)
	assert.True(t, u.IsActive)
	assert.NotEmpty(t, repo.profiles[u.ID].ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cretpass")))
	assert.Equal(t, []string{"jane@example.com"}, notifier.sent)

	_, err = svc.Register(context.Background(), RegisterInput{Email: "jane@example.com", Password: "another-pass"})
	require.ErrorIs(t, err, ErrEmailTaken)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t, newMockRepository())

	_, err := svc.Register(context.Background(), RegisterInput{Email: "not-an-email", Password: "short"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(t, repo)
	registered, err := svc.Register(context.Background(), RegisterInput{Email: "jane@example.com", Password: "s3cretpass"})
	require.NoError(t, err)

	out, err := svc.Login(context.Background(), LoginInput{Email: "JANE@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", out.TokenType)
	assert.Equal(t, int64(24*60*60), out.ExpiresIn)
	assert.Equal(t, registered.ID, out.User.ID)

	p, err := newTestGuard(t, repo).Authenticate(context.Background(), out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.Principal(), p)
}

func TestLoginFailures(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(t, repo)
	u, err := svc.Register(context.Background(), RegisterInput{Email: "jane@example.com", Password: "s3cretpass"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "wrong-pass"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "s3cretpass"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	require.NoError(t, repo.SetActive(context.Background(), u.ID, false, time.Now()))
	_, err = svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "s3cretpass"})
	require.ErrorIs(t, err, ErrAccountInactive)
}

func TestLoginLockout(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMockRepository()
	svc := newTestService(t, repo, WithLoginLimiter(NewRedisLoginLimiter(client, 3, time.Minute)))
	_, err := svc.Register(context.Background(), RegisterInput{Email: "jane@example.com", Password: "s3cretpass"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "wrong-pass"})
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	}

	_, err = svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "s3cretpass"})
	require.ErrorIs(t, err, shared.ErrTooManyRequests)

	mr.FastForward(time.Minute + time.Second)

	_, err = svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("login:fail:jane@example.com"))
}

func TestLoginLimiterUnavailableFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMockRepository()
	svc := newTestService(t, repo, WithLoginLimiter(NewRedisLoginLimiter(client, 3, time.Minute)))
	_, err := svc.Register(context.Background(), RegisterInput{Email: "jane@example.com", Password: "s3cretpass"})
	require.NoError(t, err)

	mr.Close()

	_, err = svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
}

func TestSetActiveAndRole(t *testing.T) {
	repo := newMockRepository()
	audit := &recordingAudit{}
	svc := newTestService(t, repo, WithAudit(audit))
	u, err := svc.Register(context.Background(), RegisterInput{Email: "jane@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	actor := auth.Principal{ID: "root", Role: auth.RoleSuperAdmin, Active: true}

	off := false
	updated, err := svc.SetActive(context.Background(), actor, u.ID, SetActiveInput{Active: &off})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	updated, err = svc.SetRole(context.Background(), actor, u.ID, SetRoleInput{Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, updated.Role)

	_, err = svc.SetRole(context.Background(), actor, u.ID, SetRoleInput{Role: "owner"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.SetActive(context.Background(), actor, u.ID, SetActiveInput{})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.SetRole(context.Background(), actor, "root", SetRoleInput{Role: "client"})
	require.ErrorIs(t, err, ErrSelfModification)

	_, err = svc.SetActive(context.Background(), actor, "missing", SetActiveInput{Active: &off})
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.Len(t, audit.logs, 2)
	assert.Equal(t, "user.set_active", audit.logs[0].Action)
	assert.Equal(t, "user.set_role", audit.logs[1].Action)
}

func TestEnsureDefaultAdmin(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(t, repo)

	require.NoError(t, svc.EnsureDefaultAdmin(context.Background(), "", "pw"))
	assert.Empty(t, repo.users)

	require.NoError(t, svc.EnsureDefaultAdmin(context.Background(), "Root@Example.com", "rootpass1"))
	require.NoError(t, svc.EnsureDefaultAdmin(context.Background(), "root@example.com", "rootpass1"))
	require.Len(t, repo.users, 1)

	admin, err := repo.FindByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleSuperAdmin, admin.Role)
	assert.True(t, admin.IsActive)
}

func TestSetActiveRespectsRank(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(t, repo)
	require.NoError(t, svc.EnsureDefaultAdmin(context.Background(), "root@example.com", "rootpass1"))
	root, err := repo.FindByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	client, err := svc.Register(context.Background(), RegisterInput{Email: "jane@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	admin := auth.Principal{ID: "staff", Role: auth.RoleAdmin, Active: true}

	off := false
	_, err = svc.SetActive(context.Background(), admin, root.ID, SetActiveInput{Active: &off})
	require.ErrorIs(t, err, ErrOutranked)
	require.ErrorIs(t, err, shared.ErrForbidden)

	updated, err := svc.SetActive(context.Background(), admin, client.ID, SetActiveInput{Active: &off})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestLoginComparesHashForUnknownEmail(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(t, repo)
	_, err := svc.Register(context.Background(), RegisterInput{Email: "jane@example.com", Password: "s3cretpass"})
	require.NoError(t, err)

	var compared [][]byte
	svc.compare = func(hash, password []byte) error {
		compared = append(compared, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	_, err = svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "s3cretpass"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "wrong-pass"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	require.Len(t, compared, 2)
	cost, err := bcrypt.Cost(compared[0])
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

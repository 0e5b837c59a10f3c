package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/shared"
)

type mockRepository struct {
	mu       sync.Mutex
	users    map[string]User
	profiles map[string]NewProfile
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[string]User), profiles: make(map[string]NewProfile)}
}

func (m *mockRepository) LookupPrincipal(ctx context.Context, id string) (auth.Principal, error) {
	u, err := m.Get(ctx, id)
	if err != nil {
		return auth.Principal{}, auth.ErrPrincipalNotFound
	}
	return u.Principal(), nil
}

func (m *mockRepository) Get(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepository) FindByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (m *mockRepository) Create(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockRepository) CreateWithProfile(ctx context.Context, u User, profile NewProfile) error {
	if err := m.Create(ctx, u); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[u.ID] = profile
	return nil
}

func (m *mockRepository) List(_ context.Context, filter ListFilter) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *mockRepository) SetActive(_ context.Context, id string, active bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = active
	u.UpdatedAt = at
	m.users[id] = u
	return nil
}

func (m *mockRepository) SetRole(_ context.Context, id string, role auth.Role, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = at
	m.users[id] = u
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) Notify(_ context.Context, to, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to)
	return nil
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

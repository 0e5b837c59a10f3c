package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Get(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u User) error
	CreateWithProfile(ctx context.Context, u User, profile NewProfile) error
	List(ctx context.Context, filter ListFilter) ([]User, error)
	SetActive(ctx context.Context, id string, active bool, at time.Time) error
	SetRole(ctx context.Context, id string, role auth.Role, at time.Time) error
}

// TokenIssuer mints bearer tokens for authenticated users. *auth.Guard
// satisfies it.
type TokenIssuer interface {
	IssueToken(subject string) (string, error)
	TokenLifetime() time.Duration
}

// Service handles account business logic.
type Service struct {
	repo      RepositoryPort
	tokens    TokenIssuer
	limiter   LoginLimiter
	notifier  shared.Notifier
	audit     shared.AuditRecorder
	stats     shared.StatsInvalidator
	validator *shared.Validator
	logger    *slog.Logger
	hashCost  int
	now       func() time.Time
	compare   func(hash, password []byte) error

	dummyOnce sync.Once
	dummyHash []byte
}

// Option customises a Service.
type Option func(*Service)

// WithLoginLimiter enables login lockout.
func WithLoginLimiter(l LoginLimiter) Option {
	return func(s *Service) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithNotifier sets the outbound email queue.
func WithNotifier(n shared.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithAudit sets the audit recorder.
func WithAudit(a shared.AuditRecorder) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithStatsInvalidator refreshes cached dashboard figures after signups.
func WithStatsInvalidator(st shared.StatsInvalidator) Option {
	return func(s *Service) {
		if st != nil {
			s.stats = st
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHashCost overrides bcrypt.DefaultCost.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		s.hashCost = cost
	}
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		tokens:    tokens,
		limiter:   NopLoginLimiter{},
		notifier:  shared.NopNotifier{},
		audit:     shared.NopAuditRecorder{},
		stats:     shared.NopStatsInvalidator{},
		validator: shared.NewValidator(),
		logger:    slog.Default(),
		hashCost:  bcrypt.DefaultCost,
		now:       func() time.Time { return time.Now().UTC() },
		compare:   bcrypt.CompareHashAndPassword,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an active client account together with its empty profile.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return User{}, err
	}
	return s.createClient(ctx, in.Email, in.Password, NewProfile{ID: uuid.NewString()})
}

// CreateClient provisions a client account on behalf of staff and returns
// the new profile id.
func (s *Service) CreateClient(ctx context.Context, actor auth.Principal, in CreateClientInput) (string, error) {
	in.Email = NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := s.validator.Struct(in); err != nil {
		return "", err
	}
	profile := NewProfile{ID: uuid.NewString(), FirstName: in.FirstName, LastName: in.LastName}
	u, err := s.createClient(ctx, in.Email, in.Password, profile)
	if err != nil {
		return "", err
	}
	s.record(ctx, actor, "user.create_client", u.ID, map[string]any{"profile_id": profile.ID})
	return profile.ID, nil
}

func (s *Service) createClient(ctx context.Context, email, password string, profile NewProfile) (User, error) {
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, shared.ErrNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	now := s.now()
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         auth.RoleClient,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateWithProfile(ctx, u, profile); err != nil {
		return User{}, err
	}
	s.stats.Invalidate(ctx)
	if err := s.notifier.Notify(ctx, u.Email, "Welcome", "Your account has been created. Complete your profile to start your application."); err != nil {
		s.logger.WarnContext(ctx, "queue welcome email", slog.String("user_id", u.ID), slog.Any("error", err))
	}
	return u, nil
}

// Login checks the password and mints a bearer token.
func (s *Service) Login(ctx context.Context, in LoginInput) (TokenResponse, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return TokenResponse{}, err
	}

	locked, err := s.limiter.Locked(ctx, in.Email)
	if err != nil {
		s.logger.WarnContext(ctx, "login limiter unavailable", slog.Any("error", err))
	}
	if locked {
		return TokenResponse{}, shared.ErrTooManyRequests
	}

	u, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return TokenResponse{}, err
	}
	hash := []byte(u.PasswordHash)
	if err != nil {
		// unknown addresses still run a bcrypt comparison
		hash = s.placeholderHash()
	}
	if s.compare(hash, []byte(in.Password)) != nil || err != nil {
		if ferr := s.limiter.Fail(ctx, in.Email); ferr != nil {
			s.logger.WarnContext(ctx, "login limiter unavailable", slog.Any("error", ferr))
		}
		return TokenResponse{}, shared.ErrInvalidCredentials
	}
	if !u.IsActive {
		return TokenResponse{}, ErrAccountInactive
	}

	token, err := s.tokens.IssueToken(u.ID)
	if err != nil {
		return TokenResponse{}, err
	}
	if err := s.limiter.Reset(ctx, in.Email); err != nil {
		s.logger.WarnContext(ctx, "login limiter unavailable", slog.Any("error", err))
	}
	return TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TokenLifetime() / time.Second),
		User:        u,
	}, nil
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.Get(ctx, id)
}

// List returns users, optionally filtered by role.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]User, error) {
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

// SetActive enables or disables an account. The change applies to the
// target's next request. Only a super_admin may toggle another super_admin.
func (s *Service) SetActive(ctx context.Context, actor auth.Principal, id string, in SetActiveInput) (User, error) {
	if err := s.validator.Struct(in); err != nil {
		return User{}, err
	}
	if actor.ID == id {
		return User{}, ErrSelfModification
	}
	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if target.Role == auth.RoleSuperAdmin && actor.Role != auth.RoleSuperAdmin {
		return User{}, ErrOutranked
	}
	if err := s.repo.SetActive(ctx, id, *in.Active, s.now()); err != nil {
		return User{}, err
	}
	s.record(ctx, actor, "user.set_active", id, map[string]any{"active": *in.Active})
	return s.repo.Get(ctx, id)
}

// SetRole assigns a role tier to an account.
func (s *Service) SetRole(ctx context.Context, actor auth.Principal, id string, in SetRoleInput) (User, error) {
	if err := s.validator.Struct(in); err != nil {
		return User{}, err
	}
	role, err := auth.ParseRole(in.Role)
	if err != nil {
		return User{}, shared.NewValidationError("role", "must be one of client admin super_admin")
	}
	if actor.ID == id {
		return User{}, ErrSelfModification
	}
	if err := s.repo.SetRole(ctx, id, role, s.now()); err != nil {
		return User{}, err
	}
	s.record(ctx, actor, "user.set_role", id, map[string]any{"role": string(role)})
	return s.repo.Get(ctx, id)
}

// EnsureDefaultAdmin creates a super_admin account when email is set and no
// account uses it yet.
func (s *Service) EnsureDefaultAdmin(ctx context.Context, email, password string) error {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("users: hash password: %w", err)
	}
	now := s.now()
	u := User{
		ID:            uuid.NewString(),
		Email:         email,
		PasswordHash:  string(hash),
		Role:          auth.RoleSuperAdmin,
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil
		}
		return err
	}
	s.logger.InfoContext(ctx, "default super admin created", slog.String("email", email))
	return nil
}

func (s *Service) placeholderHash() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.hashCost)
		if err != nil {
			s.logger.Error("users: placeholder hash", slog.Any("error", err))
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *Service) record(ctx context.Context, actor auth.Principal, action, id string, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "user",
		EntityID: id,
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit record", slog.String("action", action), slog.Any("error", err))
	}
}

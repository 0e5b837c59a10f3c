package profiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/shared"
	"github.com/gulfplacement/placement/internal/users"
)

// RepositoryPort defines data access methods for profiles.
type RepositoryPort interface {
	Get(ctx context.Context, id string) (Profile, error)
	GetByUserID(ctx context.Context, userID string) (Profile, error)
	Create(ctx context.Context, p Profile) error
	Update(ctx context.Context, p Profile) error
	List(ctx context.Context, filter ListFilter) ([]Profile, error)
	Delete(ctx context.Context, id string) ([]string, error)
}

// AccountCreator provisions a client login together with its profile and
// returns the profile id. *users.Service satisfies it.
type AccountCreator interface {
	CreateClient(ctx context.Context, actor auth.Principal, in users.CreateClientInput) (string, error)
}

// FileRemover deletes stored uploads.
type FileRemover interface {
	Remove(ctx context.Context, key string) error
}

// Service handles client profile business logic.
type Service struct {
	repo      RepositoryPort
	files     FileRemover
	accounts  AccountCreator
	notifier  shared.Notifier
	audit     shared.AuditRecorder
	stats     shared.StatsInvalidator
	validator *shared.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithAccounts enables staff-created client accounts.
func WithAccounts(a AccountCreator) Option {
	return func(s *Service) {
		s.accounts = a
	}
}

// WithStatsInvalidator refreshes cached dashboard figures after status
// changes.
func WithStatsInvalidator(st shared.StatsInvalidator) Option {
	return func(s *Service) {
		if st != nil {
			s.stats = st
		}
	}
}

// NewService builds Service instance. files, notifier and audit may be nil.
func NewService(repo RepositoryPort, files FileRemover, notifier shared.Notifier, audit shared.AuditRecorder, logger *slog.Logger, opts ...Option) *Service {
	if notifier == nil {
		notifier = shared.NopNotifier{}
	}
	if audit == nil {
		audit = shared.NopAuditRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:      repo,
		files:     files,
		notifier:  notifier,
		audit:     audit,
		stats:     shared.NopStatsInvalidator{},
		validator: shared.NewValidator(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mine returns the caller's profile, creating an empty one when missing.
func (s *Service) Mine(ctx context.Context, actor auth.Principal) (Profile, error) {
	p, err := s.repo.GetByUserID(ctx, actor.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Profile{}, err
	}
	now := s.now()
	if err := s.repo.Create(ctx, Profile{ID: uuid.NewString(), UserID: actor.ID, Status: StatusNew, CreatedAt: now}); err != nil {
		return Profile{}, fmt.Errorf("profiles: create: %w", err)
	}
	s.logger.InfoContext(ctx, "profile created on first access", slog.String("user_id", actor.ID))
	return s.repo.GetByUserID(ctx, actor.ID)
}

// UpdateMine applies the caller's edits to their own profile.
func (s *Service) UpdateMine(ctx context.Context, actor auth.Principal, in UpdateInput) (Profile, error) {
	if err := s.validator.Struct(in); err != nil {
		return Profile{}, err
	}
	p, err := s.Mine(ctx, actor)
	if err != nil {
		return Profile{}, err
	}
	return s.save(ctx, actor, p, in)
}

// MyOnboarding reports intake completion for the caller.
func (s *Service) MyOnboarding(ctx context.Context, actor auth.Principal) (OnboardingStatus, error) {
	p, err := s.Mine(ctx, actor)
	if err != nil {
		return OnboardingStatus{}, err
	}
	return Onboarding(p), nil
}

// Get returns a profile by id.
func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	return s.repo.Get(ctx, id)
}

// GetByUserID returns the profile owned by userID.
func (s *Service) GetByUserID(ctx context.Context, userID string) (Profile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// List returns client profiles for admins.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Profile, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, shared.NewValidationError("status", "unknown status")
	}
	out, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Profile{}
	}
	return out, nil
}

// CreateClient provisions a client login with its profile for staff.
func (s *Service) CreateClient(ctx context.Context, actor auth.Principal, in users.CreateClientInput) (Profile, error) {
	if s.accounts == nil {
		return Profile{}, errors.New("profiles: account creation not configured")
	}
	id, err := s.accounts.CreateClient(ctx, actor, in)
	if err != nil {
		return Profile{}, err
	}
	s.record(ctx, actor, "client.create", id, nil)
	return s.repo.Get(ctx, id)
}

// Update applies an admin's edits to a client profile.
func (s *Service) Update(ctx context.Context, actor auth.Principal, id string, in UpdateInput) (Profile, error) {
	if err := s.validator.Struct(in); err != nil {
		return Profile{}, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	out, err := s.save(ctx, actor, p, in)
	if err != nil {
		return Profile{}, err
	}
	s.record(ctx, actor, "client.update", id, nil)
	return out, nil
}

// Verify marks a client verified.
func (s *Service) Verify(ctx context.Context, actor auth.Principal, id string, in VerifyInput) (Profile, error) {
	if err := s.validator.Struct(in); err != nil {
		return Profile{}, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if !verifiableFrom[p.Status] {
		return Profile{}, fmt.Errorf("%w: cannot verify a %s client", ErrInvalidTransition, p.Status)
	}
	now := s.now()
	p.Status = StatusVerified
	p.VerifiedBy = &actor.ID
	p.VerifiedAt = &now
	p.VerificationNotes = in.Notes
	p.LastModifiedBy = &actor.ID
	p.UpdatedAt = now
	if err := s.repo.Update(ctx, p); err != nil {
		return Profile{}, err
	}
	s.record(ctx, actor, "client.verify", id, nil)
	s.stats.Invalidate(ctx)
	s.notify(ctx, p, "Your profile has been verified")
	return p, nil
}

// UpdateStatus moves a client along the case workflow.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Principal, id string, in StatusInput) (Profile, error) {
	if err := s.validator.Struct(in); err != nil {
		return Profile{}, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	from := p.Status
	if err := CheckTransition(from, in.Status); err != nil {
		return Profile{}, err
	}
	now := s.now()
	p.Status = in.Status
	if in.Notes != "" {
		p.VerificationNotes = in.Notes
	}
	p.LastModifiedBy = &actor.ID
	p.UpdatedAt = now
	if err := s.repo.Update(ctx, p); err != nil {
		return Profile{}, err
	}
	s.record(ctx, actor, "client.status", id, map[string]any{"from": string(from), "to": string(in.Status)})
	s.stats.Invalidate(ctx)
	s.notify(ctx, p, "Your case status is now "+string(in.Status))
	return p, nil
}

// Delete removes a client with everything attached to it.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	keys, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.record(ctx, actor, "client.delete", id, map[string]any{"documents": len(keys)})
	s.stats.Invalidate(ctx)
	if s.files == nil {
		return nil
	}
	for _, key := range keys {
		if err := s.files.Remove(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "remove client file", slog.String("key", key), slog.Any("error", err))
		}
	}
	return nil
}

func (s *Service) save(ctx context.Context, actor auth.Principal, p Profile, in UpdateInput) (Profile, error) {
	in.Apply(&p)
	p.LastModifiedBy = &actor.ID
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (s *Service) notify(ctx context.Context, p Profile, subject string) {
	if p.Email == "" {
		return
	}
	if err := s.notifier.Notify(ctx, p.Email, subject, subject+"."); err != nil {
		s.logger.WarnContext(ctx, "queue status email", slog.String("profile_id", p.ID), slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, actor auth.Principal, action, id string, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: "client_profile", EntityID: id, Meta: meta, At: s.now()})
	if err != nil {
		s.logger.WarnContext(ctx, "audit record", slog.String("action", action), slog.Any("error", err))
	}
}

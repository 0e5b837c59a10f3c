package postings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/profiles"
	"github.com/gulfplacement/placement/internal/shared"
)

// RepositoryPort defines data access methods for postings and applications.
type RepositoryPort interface {
	CreatePosting(ctx context.Context, p Posting) error
	GetPosting(ctx context.Context, id string) (Posting, error)
	ListPostings(ctx context.Context, filter PostingFilter) ([]Posting, error)
	UpdatePosting(ctx context.Context, p Posting) error
	DeletePosting(ctx context.Context, id string) error
	CreateApplication(ctx context.Context, a Application) error
	GetApplication(ctx context.Context, id string) (Application, error)
	ListApplications(ctx context.Context, clientID string, page shared.Page) ([]Application, error)
	UpdateApplication(ctx context.Context, a Application) error
}

// ProfileFinder looks up the caller's client profile.
type ProfileFinder interface {
	GetByUserID(ctx context.Context, userID string) (profiles.Profile, error)
}

// Service handles posting business logic.
type Service struct {
	repo      RepositoryPort
	profiles  ProfileFinder
	notifier  shared.Notifier
	audit     shared.AuditRecorder
	stats     shared.StatsInvalidator
	validator *shared.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithStatsInvalidator refreshes cached dashboard figures after postings or
// applications change.
func WithStatsInvalidator(st shared.StatsInvalidator) Option {
	return func(s *Service) {
		if st != nil {
			s.stats = st
		}
	}
}

// NewService builds Service instance. notifier and audit may be nil.
func NewService(repo RepositoryPort, profiles ProfileFinder, notifier shared.Notifier, audit shared.AuditRecorder, logger *slog.Logger, opts ...Option) *Service {
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
		profiles:  profiles,
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

// Create publishes a new active posting.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in PostingInput) (Posting, error) {
	if err := s.validator.Struct(in); err != nil {
		return Posting{}, err
	}
	p := Posting{
		ID:        uuid.NewString(),
		JobType:   JobTypeFullTime,
		Currency:  "USD",
		IsActive:  true,
		CreatedBy: &actor.ID,
		CreatedAt: s.now(),
	}
	in.Apply(&p)
	if err := p.check(); err != nil {
		return Posting{}, err
	}
	if err := s.repo.CreatePosting(ctx, p); err != nil {
		return Posting{}, err
	}
	s.record(ctx, actor, "posting.create", p.ID, nil)
	s.stats.Invalidate(ctx)
	return p, nil
}

// Get returns a posting.
func (s *Service) Get(ctx context.Context, id string) (Posting, error) {
	return s.repo.GetPosting(ctx, id)
}

// List returns postings for the public board.
func (s *Service) List(ctx context.Context, filter PostingFilter) ([]Posting, error) {
	return s.repo.ListPostings(ctx, filter)
}

// Update changes the provided fields of a posting.
func (s *Service) Update(ctx context.Context, actor auth.Principal, id string, in PostingInput) (Posting, error) {
	if err := s.validator.Struct(in); err != nil {
		return Posting{}, err
	}
	p, err := s.repo.GetPosting(ctx, id)
	if err != nil {
		return Posting{}, err
	}
	in.Apply(&p)
	if err := p.check(); err != nil {
		return Posting{}, err
	}
	if err := s.repo.UpdatePosting(ctx, p); err != nil {
		return Posting{}, err
	}
	s.record(ctx, actor, "posting.update", id, nil)
	s.stats.Invalidate(ctx)
	return p, nil
}

// Delete removes a posting together with its applications.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	if err := s.repo.DeletePosting(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "posting.delete", id, nil)
	s.stats.Invalidate(ctx)
	return nil
}

// Apply submits the caller's application to an active posting.
func (s *Service) Apply(ctx context.Context, actor auth.Principal, jobID string) (Application, error) {
	p, err := s.repo.GetPosting(ctx, jobID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Application{}, ErrPostingClosed
		}
		return Application{}, err
	}
	if !p.IsActive {
		return Application{}, ErrPostingClosed
	}
	profile, err := s.profileOf(ctx, actor)
	if err != nil {
		return Application{}, err
	}
	now := s.now()
	a := Application{
		ID:                uuid.NewString(),
		ClientID:          profile.ID,
		JobID:             p.ID,
		JobTitle:          p.Title,
		ApplicationStatus: ApplicationApplied,
		AppliedDate:       shared.NewDate(now),
		CreatedAt:         now,
		UpdatedAt:         now,
		ClientEmail:       profile.Email,
	}
	if err := s.repo.CreateApplication(ctx, a); err != nil {
		return Application{}, err
	}
	s.stats.Invalidate(ctx)
	s.logger.InfoContext(ctx, "application submitted",
		slog.String("application_id", a.ID),
		slog.String("job_id", p.ID),
		slog.String("client_id", profile.ID))
	return a, nil
}

// Mine lists the caller's applications.
func (s *Service) Mine(ctx context.Context, actor auth.Principal, page shared.Page) ([]Application, error) {
	profile, err := s.profileOf(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.repo.ListApplications(ctx, profile.ID, page)
}

// Applications lists every application for staff.
func (s *Service) Applications(ctx context.Context, page shared.Page) ([]Application, error) {
	return s.repo.ListApplications(ctx, "", page)
}

// UpdateApplicationStatus moves an application and emails the applicant.
func (s *Service) UpdateApplicationStatus(ctx context.Context, actor auth.Principal, id string, in StatusInput) (Application, error) {
	if err := s.validator.Struct(in); err != nil {
		return Application{}, err
	}
	a, err := s.repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	from := a.ApplicationStatus
	a.ApplicationStatus = in.Status
	if in.InterviewDate != nil {
		t := in.InterviewDate.UTC()
		a.InterviewDate = &t
	}
	if in.Notes != nil {
		a.Notes = strings.TrimSpace(*in.Notes)
	}
	a.ProcessedBy = &actor.ID
	a.UpdatedAt = s.now()
	if err := s.repo.UpdateApplication(ctx, a); err != nil {
		return Application{}, err
	}
	s.record(ctx, actor, "application.status", id, map[string]any{"from": string(from), "to": string(in.Status)})

	if a.ClientEmail != "" {
		subject := fmt.Sprintf("Your application for %s is now %s", a.JobTitle, a.ApplicationStatus)
		if err := s.notifier.Notify(ctx, a.ClientEmail, subject, subject+"."); err != nil {
			s.logger.WarnContext(ctx, "queue application email", slog.String("application_id", a.ID), slog.Any("error", err))
		}
	}
	return a, nil
}

func (s *Service) profileOf(ctx context.Context, actor auth.Principal) (profiles.Profile, error) {
	profile, err := s.profiles.GetByUserID(ctx, actor.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return profiles.Profile{}, ErrNoProfile
	}
	return profile, err
}

func (s *Service) record(ctx context.Context, actor auth.Principal, action, id string, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: "job", EntityID: id, Meta: meta, At: s.now()})
	if err != nil {
		s.logger.WarnContext(ctx, "audit record", slog.String("action", action), slog.Any("error", err))
	}
}

package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/profiles"
	"github.com/gulfplacement/placement/internal/shared"
)

// RepositoryPort defines data access methods for documents.
type RepositoryPort interface {
	Create(ctx context.Context, d Document) error
	Get(ctx context.Context, id string) (Document, error)
	ListByClient(ctx context.Context, clientID string) ([]Document, error)
	SetVerified(ctx context.Context, id string, verified bool, by *string, at *time.Time) error
}

// ProfileSource resolves client profiles.
type ProfileSource interface {
	Mine(ctx context.Context, actor auth.Principal) (profiles.Profile, error)
	Get(ctx context.Context, id string) (profiles.Profile, error)
}

// Service handles document business logic.
type Service struct {
	repo     RepositoryPort
	storage  Storage
	profiles ProfileSource
	audit    shared.AuditRecorder
	logger   *slog.Logger
	maxBytes int64
	now      func() time.Time
}

// NewService builds Service instance. maxBytes <= 0 selects DefaultMaxUploadBytes.
func NewService(repo RepositoryPort, storage Storage, profiles ProfileSource, audit shared.AuditRecorder, logger *slog.Logger, maxBytes int64) *Service {
	if audit == nil {
		audit = shared.NopAuditRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Service{
		repo:     repo,
		storage:  storage,
		profiles: profiles,
		audit:    audit,
		logger:   logger,
		maxBytes: maxBytes,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// MaxBytes returns the upload size limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload stores a file for the caller's profile.
func (s *Service) Upload(ctx context.Context, actor auth.Principal, in UploadInput) (Document, error) {
	if !in.DocumentType.Valid() {
		return Document{}, shared.NewValidationError("document_type", "unknown document type")
	}
	if len(in.Data) == 0 {
		return Document{}, shared.NewValidationError("file", "file is empty")
	}
	if int64(len(in.Data)) > s.maxBytes {
		return Document{}, ErrFileTooLarge
	}
	mt := mimetype.Detect(in.Data)
	if !mimetype.EqualsAny(mt.String(), AllowedMIMETypes...) {
		return Document{}, ErrUnsupportedType
	}

	profile, err := s.profiles.Mine(ctx, actor)
	if err != nil {
		return Document{}, err
	}

	id := uuid.NewString()
	doc := Document{
		ID:           id,
		ClientID:     profile.ID,
		DocumentType: in.DocumentType,
		FileName:     cleanFileName(in.FileName, mt.Extension()),
		StorageKey:   id + mt.Extension(),
		FileSize:     int64(len(in.Data)),
		MimeType:     mt.String(),
		ExpiryDate:   in.ExpiryDate,
		UploadedAt:   s.now(),
	}
	if err := s.storage.Save(ctx, doc.StorageKey, in.Data); err != nil {
		return Document{}, err
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		if rmErr := s.storage.Remove(ctx, doc.StorageKey); rmErr != nil {
			s.logger.WarnContext(ctx, "orphaned upload", slog.String("storage_key", doc.StorageKey), slog.Any("error", rmErr))
		}
		return Document{}, err
	}
	s.logger.InfoContext(ctx, "document uploaded",
		slog.String("document_id", doc.ID),
		slog.String("client_id", doc.ClientID),
		slog.String("mime_type", doc.MimeType))
	return doc, nil
}

// Mine lists the caller's documents.
func (s *Service) Mine(ctx context.Context, actor auth.Principal) ([]Document, error) {
	profile, err := s.profiles.Mine(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByClient(ctx, profile.ID)
}

// ForClient lists a client's documents for staff.
func (s *Service) ForClient(ctx context.Context, clientID string) ([]Document, error) {
	if _, err := s.profiles.Get(ctx, clientID); err != nil {
		return nil, err
	}
	return s.repo.ListByClient(ctx, clientID)
}

// Open returns a document and its contents. Only the owning client and
// elevated principals may read it.
func (s *Service) Open(ctx context.Context, actor auth.Principal, id string) (Document, io.ReadCloser, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	if !actor.Role.IsElevated() {
		profile, err := s.profiles.Mine(ctx, actor)
		if err != nil {
			return Document{}, nil, err
		}
		if profile.ID != doc.ClientID {
			return Document{}, nil, shared.ErrForbidden
		}
	}
	rc, err := s.storage.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.ErrorContext(ctx, "document file missing", slog.String("document_id", doc.ID))
		}
		return Document{}, nil, err
	}
	return doc, rc, nil
}

// Verify sets or clears the verification flag.
func (s *Service) Verify(ctx context.Context, actor auth.Principal, id string, in VerifyInput) (Document, error) {
	if in.Verified == nil {
		return Document{}, shared.NewValidationError("is_verified", "is required")
	}
	var (
		by *string
		at *time.Time
	)
	if *in.Verified {
		actorID := actor.ID
		now := s.now()
		by, at = &actorID, &now
	}
	if err := s.repo.SetVerified(ctx, id, *in.Verified, by, at); err != nil {
		return Document{}, err
	}
	s.record(ctx, actor, "document.verify", id, map[string]any{"is_verified": *in.Verified})
	return s.repo.Get(ctx, id)
}

func (s *Service) record(ctx context.Context, actor auth.Principal, action, entityID string, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "document",
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func cleanFileName(name, ext string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return fmt.Sprintf("upload%s", ext)
	}
	return name
}

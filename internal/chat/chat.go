// Package chat stores direct messages between clients and staff. Clients poll
// for new rows; there is no push delivery.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/shared"
)

// Message is a single chat row.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	SentAt     time.Time `json:"sent_at"`
}

// SendInput is the payload for a new message.
type SendInput struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	Content    string `json:"content" validate:"required,max=5000"`
}

// ErrSelfMessage is returned when sender and receiver are the same user.
var ErrSelfMessage = fmt.Errorf("%w: cannot message yourself", shared.ErrValidation)

// RepositoryPort defines data access methods for messages.
type RepositoryPort interface {
	Create(ctx context.Context, m Message) error
	Get(ctx context.Context, id string) (Message, error)
	Conversation(ctx context.Context, userID, withUserID string, page shared.Page) ([]Message, error)
	Inbox(ctx context.Context, receiverID string, page shared.Page) ([]Message, error)
	MarkRead(ctx context.Context, id string) error
}

// Service handles chat business logic.
type Service struct {
	repo      RepositoryPort
	users     auth.CredentialStore
	validator *shared.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service instance. users resolves message receivers.
func NewService(repo RepositoryPort, users auth.CredentialStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		users:     users,
		validator: shared.NewValidator(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Send stores a message from actor to an active receiver.
func (s *Service) Send(ctx context.Context, actor auth.Principal, in SendInput) (Message, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := s.validator.Struct(in); err != nil {
		return Message{}, err
	}
	if in.ReceiverID == actor.ID {
		return Message{}, ErrSelfMessage
	}
	receiver, err := s.users.LookupPrincipal(ctx, in.ReceiverID)
	switch {
	case err == nil && !receiver.Active:
		return Message{}, shared.NewValidationError("receiver_id", "receiver is not active")
	case errors.Is(err, auth.ErrPrincipalNotFound):
		return Message{}, shared.NewValidationError("receiver_id", "unknown receiver")
	case err != nil:
		return Message{}, fmt.Errorf("chat: lookup receiver: %w", err)
	}
	m := Message{
		ID:         uuid.NewString(),
		SenderID:   actor.ID,
		ReceiverID: receiver.ID,
		Content:    in.Content,
		SentAt:     s.now(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return Message{}, err
	}
	s.logger.DebugContext(ctx, "chat message stored", slog.String("message_id", m.ID))
	return m, nil
}

// History returns the conversation between actor and another user, oldest first.
func (s *Service) History(ctx context.Context, actor auth.Principal, withUserID string, page shared.Page) ([]Message, error) {
	if strings.TrimSpace(withUserID) == "" {
		return nil, shared.NewValidationError("with_user_id", "is required")
	}
	return s.repo.Conversation(ctx, actor.ID, withUserID, page)
}

// Inbox returns messages received by actor, newest first.
func (s *Service) Inbox(ctx context.Context, actor auth.Principal, page shared.Page) ([]Message, error) {
	return s.repo.Inbox(ctx, actor.ID, page)
}

// MarkRead flags a message as read. Only its receiver may do so.
func (s *Service) MarkRead(ctx context.Context, actor auth.Principal, id string) (Message, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return Message{}, err
	}
	if m.ReceiverID != actor.ID {
		return Message{}, shared.ErrForbidden
	}
	if m.IsRead {
		return m, nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return Message{}, err
	}
	m.IsRead = true
	return m, nil
}

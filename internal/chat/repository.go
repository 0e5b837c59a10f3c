package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gulfplacement/placement/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const messageSelect = `SELECT id, sender_id, receiver_id, content, is_read, sent_at FROM chat_messages`

// Create inserts a message.
func (r *Repository) Create(ctx context.Context, m Message) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO chat_messages (id, sender_id, receiver_id, content, is_read, sent_at)
VALUES ($1, $2, $3, $4, $5, $6)`, m.ID, m.SenderID, m.ReceiverID, m.Content, m.IsRead, m.SentAt)
	if err != nil {
		return fmt.Errorf("chat: insert: %w", err)
	}
	return nil
}

// Get fetches a message by id.
func (r *Repository) Get(ctx context.Context, id string) (Message, error) {
	var m Message
	err := r.pool.QueryRow(ctx, messageSelect+` WHERE id = $1`, id).
		Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsRead, &m.SentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, shared.ErrNotFound
	}
	return m, err
}

// Conversation returns messages exchanged between two users, oldest first.
func (r *Repository) Conversation(ctx context.Context, userID, withUserID string, page shared.Page) ([]Message, error) {
	return r.list(ctx, messageSelect+`
WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
ORDER BY sent_at ASC LIMIT $3 OFFSET $4`, userID, withUserID, page.Limit, page.Skip)
}

// Inbox returns messages addressed to receiverID, newest first.
func (r *Repository) Inbox(ctx context.Context, receiverID string, page shared.Page) ([]Message, error) {
	return r.list(ctx, messageSelect+` WHERE receiver_id = $1 ORDER BY sent_at DESC LIMIT $2 OFFSET $3`,
		receiverID, page.Limit, page.Skip)
}

// MarkRead sets is_read on a message.
func (r *Repository) MarkRead(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE chat_messages SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("chat: mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Message])
}

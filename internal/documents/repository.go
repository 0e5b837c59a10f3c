package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const documentSelect = `SELECT id, client_id, document_type, file_name, storage_key, file_size, mime_type,
	is_verified, verified_by, verified_at, expiry_date, uploaded_at
FROM documents`

// Create inserts document metadata.
func (r *Repository) Create(ctx context.Context, d Document) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO documents
	(id, client_id, document_type, file_name, storage_key, file_size, mime_type, expiry_date, uploaded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.ClientID, string(d.DocumentType), d.FileName, d.StorageKey, d.FileSize, d.MimeType,
		d.ExpiryDate.TimePtr(), d.UploadedAt)
	if err != nil {
		return fmt.Errorf("documents: insert: %w", err)
	}
	return nil
}

// Get fetches a document by id.
func (r *Repository) Get(ctx context.Context, id string) (Document, error) {
	return scanDocument(r.pool.QueryRow(ctx, documentSelect+` WHERE id = $1`, id))
}

// ListByClient returns a client's documents, newest first.
func (r *Repository) ListByClient(ctx context.Context, clientID string) ([]Document, error) {
	rows, err := r.pool.Query(ctx, documentSelect+` WHERE client_id = $1 ORDER BY uploaded_at DESC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetVerified records the verification flag.
func (r *Repository) SetVerified(ctx context.Context, id string, verified bool, by *string, at *time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE documents SET is_verified = $2, verified_by = $3, verified_at = $4 WHERE id = $1`,
		id, verified, by, at)
	if err != nil {
		return fmt.Errorf("documents: verify: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (Document, error) {
	var (
		d      Document
		typ    string
		expiry *time.Time
	)
	err := row.Scan(&d.ID, &d.ClientID, &typ, &d.FileName, &d.StorageKey, &d.FileSize, &d.MimeType,
		&d.IsVerified, &d.VerifiedBy, &d.VerifiedAt, &expiry, &d.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, shared.ErrNotFound
		}
		return Document{}, err
	}
	d.DocumentType = Type(typ)
	d.ExpiryDate = shared.DatePtr(expiry)
	return d, nil
}

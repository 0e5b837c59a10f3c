package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gulfplacement/placement/internal/platform/db"
	"github.com/gulfplacement/placement/internal/shared"
)

// ErrDuplicateIdentity is returned when a NIN or passport number belongs to
// another client.
var ErrDuplicateIdentity = fmt.Errorf("%w: identity number already registered", shared.ErrConflict)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const profileSelect = `SELECT p.id, p.user_id, u.email, p.first_name, p.middle_name, p.last_name, p.date_of_birth,
	p.gender, p.nationality, p.nin, p.passport_number, p.passport_expiry, p.phone_primary, p.phone_secondary,
	p.address_current, p.address_permanent, p.emergency_contact_name, p.emergency_contact_phone,
	p.emergency_contact_relationship, p.profile_photo_url, p.status, p.verification_notes, p.verified_by,
	p.verified_at, p.last_modified_by, p.created_at, p.updated_at
FROM client_profiles p JOIN users u ON u.id = p.user_id`

// Get fetches a profile by id.
func (r *Repository) Get(ctx context.Context, id string) (Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, profileSelect+` WHERE p.id = $1`, id))
}

// GetByUserID fetches the profile owned by a user.
func (r *Repository) GetByUserID(ctx context.Context, userID string) (Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, profileSelect+` WHERE p.user_id = $1`, userID))
}

// Create inserts an empty profile.
func (r *Repository) Create(ctx context.Context, p Profile) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO client_profiles (id, user_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4) ON CONFLICT (user_id) DO NOTHING`, p.ID, p.UserID, string(p.Status), p.CreatedAt)
	return err
}

// Update writes every mutable column of p.
func (r *Repository) Update(ctx context.Context, p Profile) error {
	tag, err := r.pool.Exec(ctx, `UPDATE client_profiles SET
	first_name = $2, middle_name = $3, last_name = $4, date_of_birth = $5, gender = $6, nationality = $7,
	nin = $8, passport_number = $9, passport_expiry = $10, phone_primary = $11, phone_secondary = $12,
	address_current = $13, address_permanent = $14, emergency_contact_name = $15, emergency_contact_phone = $16,
	emergency_contact_relationship = $17, profile_photo_url = $18, status = $19, verification_notes = $20,
	verified_by = $21, verified_at = $22, last_modified_by = $23, updated_at = $24
WHERE id = $1`,
		p.ID, p.FirstName, p.MiddleName, p.LastName, p.DateOfBirth.TimePtr(), p.Gender, p.Nationality,
		p.NIN, p.PassportNumber, p.PassportExpiry.TimePtr(), p.PhonePrimary, p.PhoneSecondary,
		p.AddressCurrent, p.AddressPermanent, p.EmergencyContactName, p.EmergencyContactPhone,
		p.EmergencyContactRelationship, p.ProfilePhotoURL, string(p.Status), p.VerificationNotes,
		p.VerifiedBy, p.VerifiedAt, p.LastModifiedBy, p.UpdatedAt)
	if err != nil {
		if shared.IsUniqueViolation(err, "client_profiles_nin_key") || shared.IsUniqueViolation(err, "client_profiles_passport_key") {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("profiles: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List returns profiles, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Profile, error) {
	query := profileSelect
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` WHERE p.status = $1`
	}
	args = append(args, filter.Page.Limit, filter.Page.Skip)
	query += fmt.Sprintf(` ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes the client's account. Documents, applications and messages
// go with it through foreign key cascades. The storage keys of the removed
// documents are returned so the files can be cleaned up.
func (r *Repository) Delete(ctx context.Context, id string) ([]string, error) {
	var keys []string
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var userID string
		if err := tx.QueryRow(ctx, `SELECT user_id FROM client_profiles WHERE id = $1 FOR UPDATE`, id).Scan(&userID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		rows, err := tx.Query(ctx, `SELECT storage_key FROM documents WHERE client_id = $1`, id)
		if err != nil {
			return err
		}
		keys, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("profiles: delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var (
		p         Profile
		status    string
		dob, pexp *time.Time
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Email, &p.FirstName, &p.MiddleName, &p.LastName, &dob,
		&p.Gender, &p.Nationality, &p.NIN, &p.PassportNumber, &pexp, &p.PhonePrimary, &p.PhoneSecondary,
		&p.AddressCurrent, &p.AddressPermanent, &p.EmergencyContactName, &p.EmergencyContactPhone,
		&p.EmergencyContactRelationship, &p.ProfilePhotoURL, &status, &p.VerificationNotes, &p.VerifiedBy,
		&p.VerifiedAt, &p.LastModifiedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, shared.ErrNotFound
		}
		return Profile{}, err
	}
	p.Status = Status(status)
	p.DateOfBirth = shared.DatePtr(dob)
	p.PassportExpiry = shared.DatePtr(pexp)
	return p, nil
}

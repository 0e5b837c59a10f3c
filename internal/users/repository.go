package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/platform/db"
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

const userColumns = `id, email, password_hash, role, is_active, email_verified, created_at, updated_at`

// LookupPrincipal reads the account behind a token subject. Every call goes to
// the database.
func (r *Repository) LookupPrincipal(ctx context.Context, id string) (auth.Principal, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return auth.Principal{}, auth.ErrPrincipalNotFound
		}
		return auth.Principal{}, err
	}
	return u.Principal(), nil
}

// Get fetches a user by id.
func (r *Repository) Get(ctx context.Context, id string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByEmail fetches a user by normalized email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// Create inserts a user without a client profile.
func (r *Repository) Create(ctx context.Context, u User) error {
	return insertUser(ctx, r.pool, u)
}

// CreateWithProfile inserts a user and its empty client profile atomically.
func (r *Repository) CreateWithProfile(ctx context.Context, u User, profile NewProfile) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO client_profiles (id, user_id, first_name, last_name, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, 'new', $5, $5)`, profile.ID, u.ID, profile.FirstName, profile.LastName, u.CreatedAt)
		if err != nil {
			return fmt.Errorf("users: insert profile: %w", err)
		}
		return nil
	})
}

// List returns users ordered by creation time.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]User, error) {
	var (
		where []string
		args  []any
	)
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Page.Limit, filter.Page.Skip)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetActive updates the active flag.
func (r *Repository) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = $3 WHERE id = $1`, id, active, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetRole updates the role tier.
func (r *Repository) SetRole(ctx context.Context, id string, role auth.Role, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`, id, string(role), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func insertUser(ctx context.Context, q db.Execer, u User) error {
	var role *string
	if u.Role != "" {
		s := string(u.Role)
		role = &s
	}
	_, err := q.Exec(ctx, `INSERT INTO users (id, email, password_hash, role, is_active, email_verified, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`, u.ID, u.Email, u.PasswordHash, role, u.IsActive, u.EmailVerified, u.CreatedAt)
	if err != nil {
		if shared.IsUniqueViolation(err, "users_email_key") {
			return ErrEmailTaken
		}
		return fmt.Errorf("users: insert: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u    User
		role *string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.IsActive, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	if role != nil && *role != "" {
		parsed, err := auth.ParseRole(*role)
		if err != nil {
			return User{}, fmt.Errorf("users: %s: %w", u.ID, err)
		}
		u.Role = parsed
	}
	return u, nil
}
